package stripeclient

import (
	"context"

	"github.com/pkg/errors"
	stripeapi "github.com/stripe/stripe-go/v82"

	stripedomain "github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/domain"
)

func (c *StripeClient) ListCustomers(ctx context.Context, params stripedomain.ListCustomersParams) ([]*stripeapi.Customer, error) {
	lp := &stripeapi.CustomerListParams{}
	lp.Limit = stripeapi.Int64(params.PageSize)
	lp.Context = ctx

	customers := make([]*stripeapi.Customer, 0)
	it := c.api(params.AccessToken).Customers.List(lp)
	for it.Next() {
		customers = append(customers, it.Customer())
		if params.Limit > 0 && int64(len(customers)) >= params.Limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return customers, errors.Wrap(err, "list customers")
	}

	return customers, nil
}
