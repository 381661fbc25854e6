package ingesting

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HandlerFunc applies one decoded event. A nil result with a nil error means
// the event belongs to no known workspace.
type HandlerFunc func(ctx context.Context, event *domain.InboundEvent) (*HandlerResult, error)

type HandlerResult struct {
	WorkspaceID string
}

type Route struct {
	Category    domain.EventCategory
	Handler     HandlerFunc
	Recalculate bool
}

// Router maps the closed set of handled event types to their handlers.
type Router struct {
	routes map[string]Route
}

func NewRouter(h *Handlers) *Router {
	subscription := Route{Category: domain.EventCategorySubscription, Handler: h.HandleSubscription, Recalculate: true}
	invoice := Route{Category: domain.EventCategoryInvoice, Handler: h.HandleInvoice, Recalculate: true}
	customer := Route{Category: domain.EventCategoryCustomer, Handler: h.HandleCustomer, Recalculate: true}
	price := Route{Category: domain.EventCategoryPrice, Handler: h.HandlePrice}

	return &Router{
		routes: map[string]Route{
			"customer.subscription.created":        subscription,
			"customer.subscription.updated":        subscription,
			"customer.subscription.deleted":        subscription,
			"customer.subscription.paused":         subscription,
			"customer.subscription.resumed":        subscription,
			"customer.subscription.trial_will_end": subscription,

			"invoice.paid":              invoice,
			"invoice.payment_succeeded": invoice,
			"invoice.payment_failed":    invoice,
			"invoice.finalized":         invoice,

			"customer.created": customer,
			"customer.updated": customer,
			"customer.deleted": customer,

			"price.created": price,
			"price.updated": price,
			"price.deleted": price,
		},
	}
}

// Route returns the route for eventType. Unknown types report false.
func (r *Router) Route(eventType string) (Route, bool) {
	route, ok := r.routes[eventType]
	return route, ok
}

// Decode converts a verified event into an InboundEvent whose payload matches
// category. The provider object types handle expanded and collapsed references.
func (r *Router) Decode(event *stripeapi.Event, category domain.EventCategory) (*domain.InboundEvent, error) {
	const op = "ingesting.Decode"

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Err: ErrInvalidMetadata, Details: "event has no data object"}
	}

	payload, err := decodePayload(event.Data.Raw, category)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, op, err)
	}

	return &domain.InboundEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Account:  event.Account,
		Category: category,
		Created:  time.Unix(event.Created, 0).UTC(),
		Payload:  payload,
	}, nil
}

func decodePayload(raw []byte, category domain.EventCategory) (domain.EventPayload, error) {
	switch category {
	case domain.EventCategorySubscription:
		var sub stripeapi.Subscription
		if err := unmarshalObject(raw, &sub, &sub.Object, "subscription"); err != nil {
			return nil, err
		}
		p := domain.SubscriptionPayload{ID: sub.ID, Status: string(sub.Status)}
		if sub.Customer != nil {
			p.CustomerID = sub.Customer.ID
		}
		return p, nil

	case domain.EventCategoryInvoice:
		var inv stripeapi.Invoice
		if err := unmarshalObject(raw, &inv, &inv.Object, "invoice"); err != nil {
			return nil, err
		}
		p := domain.InvoicePayload{ID: inv.ID, Status: string(inv.Status), AmountPaid: inv.AmountPaid}
		if inv.Customer != nil {
			p.CustomerID = inv.Customer.ID
		}
		return p, nil

	case domain.EventCategoryCustomer:
		var c stripeapi.Customer
		if err := unmarshalObject(raw, &c, &c.Object, "customer"); err != nil {
			return nil, err
		}
		return domain.CustomerPayload{ID: c.ID, Email: c.Email}, nil

	case domain.EventCategoryPrice:
		var price stripeapi.Price
		if err := unmarshalObject(raw, &price, &price.Object, "price"); err != nil {
			return nil, err
		}
		p := domain.PricePayload{ID: price.ID, UnitAmount: price.UnitAmount, Active: price.Active}
		if price.Product != nil {
			p.ProductID = price.Product.ID
		}
		if price.Recurring != nil {
			p.Interval = domain.BillingInterval(price.Recurring.Interval)
		}
		return p, nil
	}

	return nil, domain.ErrUnexpectedObject
}

func unmarshalObject(raw []byte, dst any, object *string, expected string) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *object != "" && *object != expected {
		return domain.ErrUnexpectedObject
	}
	return nil
}
