package ingesting

import (
	"context"

	"github.com/coder/quartz"

	"github.com/vfg2006/saas-metrics-api/infrastructure/repository"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
)

// Handlers apply decoded events to local state.
type Handlers struct {
	connectionRepository   repository.ConnectionRepository
	subscriptionRepository repository.SubscriptionRepository
	clock                  quartz.Clock
}

func NewHandlers(
	connectionRepo repository.ConnectionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	clock quartz.Clock,
) *Handlers {
	return &Handlers{
		connectionRepository:   connectionRepo,
		subscriptionRepository: subscriptionRepo,
		clock:                  clock,
	}
}

// HandleSubscription upserts the subscription status keyed by the provider subscription id.
func (h *Handlers) HandleSubscription(ctx context.Context, event *domain.InboundEvent) (*HandlerResult, error) {
	const op = "ingesting.HandleSubscription"

	payload, ok := event.Payload.(domain.SubscriptionPayload)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, op, domain.ErrUnexpectedObject)
	}
	if err := requireFields(op, payload.ID, payload.CustomerID, true); err != nil {
		return nil, err
	}

	workspaceID, err := h.resolveWorkspace(ctx, op, event)
	if err != nil || workspaceID == "" {
		return nil, err
	}

	err = h.subscriptionRepository.Upsert(ctx, &domain.Subscription{
		WorkspaceID:            workspaceID,
		ProviderSubscriptionID: payload.ID,
		ProviderCustomerID:     payload.CustomerID,
		Status:                 domain.MapSubscriptionStatus(payload.Status),
		UpdatedAt:              h.clock.Now().UTC(),
	})
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}

	return &HandlerResult{WorkspaceID: workspaceID}, nil
}

// HandleInvoice persists nothing; the workspace is recalculated.
func (h *Handlers) HandleInvoice(ctx context.Context, event *domain.InboundEvent) (*HandlerResult, error) {
	const op = "ingesting.HandleInvoice"

	payload, ok := event.Payload.(domain.InvoicePayload)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, op, domain.ErrUnexpectedObject)
	}
	if err := requireFields(op, payload.ID, payload.CustomerID, true); err != nil {
		return nil, err
	}

	return h.resolveResult(ctx, op, event)
}

func (h *Handlers) HandleCustomer(ctx context.Context, event *domain.InboundEvent) (*HandlerResult, error) {
	const op = "ingesting.HandleCustomer"

	payload, ok := event.Payload.(domain.CustomerPayload)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, op, domain.ErrUnexpectedObject)
	}
	if err := requireFields(op, payload.ID, "", false); err != nil {
		return nil, err
	}

	return h.resolveResult(ctx, op, event)
}

// HandlePrice only validates; price changes reach metrics through subscription events.
func (h *Handlers) HandlePrice(ctx context.Context, event *domain.InboundEvent) (*HandlerResult, error) {
	const op = "ingesting.HandlePrice"

	payload, ok := event.Payload.(domain.PricePayload)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, op, domain.ErrUnexpectedObject)
	}
	if err := requireFields(op, payload.ID, "", false); err != nil {
		return nil, err
	}

	if event.AccountReference() == "" {
		return nil, nil
	}

	return h.resolveResult(ctx, op, event)
}

func (h *Handlers) resolveResult(ctx context.Context, op string, event *domain.InboundEvent) (*HandlerResult, error) {
	workspaceID, err := h.resolveWorkspace(ctx, op, event)
	if err != nil || workspaceID == "" {
		return nil, err
	}
	return &HandlerResult{WorkspaceID: workspaceID}, nil
}

// resolveWorkspace returns "" without error when no connection matches the
// event's account reference.
func (h *Handlers) resolveWorkspace(ctx context.Context, op string, event *domain.InboundEvent) (string, error) {
	ref := event.AccountReference()

	conn, err := h.connectionRepository.GetByProviderAccount(ctx, domain.ProviderStripe, ref)
	if err != nil {
		return "", domain.NewError(domain.KindInternal, op, err)
	}

	if conn == nil {
		log.ForContext(ctx).WithFields(log.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"operation":  op,
			"account":    ref,
		}).Warn("ingesting: no workspace connected for account")
		return "", nil
	}

	return conn.WorkspaceID, nil
}

func requireFields(op, objectID, customerID string, needCustomer bool) error {
	if objectID == "" {
		return domain.NewError(domain.KindValidation, op, domain.ErrMissingObjectID)
	}
	if needCustomer && customerID == "" {
		return domain.NewError(domain.KindValidation, op, domain.ErrMissingCustomer)
	}
	return nil
}
