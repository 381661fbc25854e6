package stripeclient

import (
	"context"

	"github.com/pkg/errors"
	stripeapi "github.com/stripe/stripe-go/v82"

	stripedomain "github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/domain"
)

func (c *StripeClient) ListSubscriptions(ctx context.Context, params stripedomain.ListSubscriptionsParams) ([]*stripeapi.Subscription, error) {
	lp := &stripeapi.SubscriptionListParams{}
	if params.Status != "" {
		lp.Status = stripeapi.String(params.Status)
	}
	lp.Limit = stripeapi.Int64(params.PageSize)
	lp.Context = ctx

	subscriptions := make([]*stripeapi.Subscription, 0)
	it := c.api(params.AccessToken).Subscriptions.List(lp)
	for it.Next() {
		subscriptions = append(subscriptions, it.Subscription())
	}
	if err := it.Err(); err != nil {
		return subscriptions, errors.Wrapf(err, "list %s subscriptions", params.Status)
	}

	return subscriptions, nil
}
