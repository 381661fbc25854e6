package stripe

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	stripeapi "github.com/stripe/stripe-go/v82"

	stripedomain "github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/domain"
	"github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/stripeclient"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

var activeStatuses = []string{
	string(stripeapi.SubscriptionStatusActive),
	string(stripeapi.SubscriptionStatusTrialing),
}

type BillingIntegrator interface {
	ListActiveSubscriptions(ctx context.Context, accessToken string) ([]domain.BillingSubscription, error)
	ListCustomers(ctx context.Context, accessToken string) ([]domain.BillingCustomer, error)
}

type StripeService struct {
	cfg    *config.Config
	Client stripeclient.Client
}

func New(cfg *config.Config, client stripeclient.Client) BillingIntegrator {
	return &StripeService{
		cfg:    cfg,
		Client: client,
	}
}

// ListActiveSubscriptions returns active and trialing subscriptions.
func (s *StripeService) ListActiveSubscriptions(ctx context.Context, accessToken string) ([]domain.BillingSubscription, error) {
	const op = "stripe.ListActiveSubscriptions"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := make([]domain.BillingSubscription, 0)
	for _, status := range activeStatuses {
		subs, err := s.Client.ListSubscriptions(ctx, stripedomain.ListSubscriptionsParams{
			AccessToken: accessToken,
			Status:      status,
			PageSize:    s.cfg.Metrics.SubscriptionPageSize,
		})
		if err != nil {
			return nil, Classify(op, err)
		}

		for _, sub := range subs {
			result = append(result, toBillingSubscription(sub))
		}
	}

	return result, nil
}

func (s *StripeService) ListCustomers(ctx context.Context, accessToken string) ([]domain.BillingCustomer, error) {
	const op = "stripe.ListCustomers"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	customers, err := s.Client.ListCustomers(ctx, stripedomain.ListCustomersParams{
		AccessToken: accessToken,
		PageSize:    s.cfg.Metrics.SubscriptionPageSize,
		Limit:       s.cfg.Metrics.CustomerLimit,
	})
	if err != nil {
		return nil, Classify(op, err)
	}

	result := make([]domain.BillingCustomer, 0, len(customers))
	for _, c := range customers {
		if c == nil {
			continue
		}
		result = append(result, domain.BillingCustomer{ID: c.ID, Email: c.Email})
	}

	return result, nil
}

func (s *StripeService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Stripe.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func toBillingSubscription(sub *stripeapi.Subscription) domain.BillingSubscription {
	out := domain.BillingSubscription{
		ID:     sub.ID,
		Status: domain.MapSubscriptionStatus(string(sub.Status)),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items == nil {
		return out
	}

	for _, item := range sub.Items.Data {
		if item == nil {
			continue
		}
		line := domain.BillingLineItem{Quantity: item.Quantity}
		if item.Price != nil {
			line.PriceID = item.Price.ID
			line.UnitAmount = item.Price.UnitAmount
			if item.Price.Recurring != nil {
				line.Interval = domain.BillingInterval(item.Price.Recurring.Interval)
			}
		}
		out.Items = append(out.Items, line)
	}

	return out
}

// Classify maps a provider or transport failure onto the error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		e := domain.NewError(kindForStatus(stripeErr.HTTPStatusCode), op, err)
		e.Details = string(stripeErr.Code)
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewError(domain.KindTimeout, op, err)
	}

	return domain.NewError(domain.KindExternalService, op, err)
}

func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return domain.KindAuthentication
	case status == http.StatusForbidden:
		return domain.KindAuthorization
	case status == http.StatusBadRequest, status == http.StatusPaymentRequired:
		return domain.KindValidation
	case status == http.StatusNotFound:
		return domain.KindNotFound
	default:
		// 429, 5xx and anything unexpected
		return domain.KindExternalService
	}
}
