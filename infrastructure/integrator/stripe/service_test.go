package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v82"
	"go.uber.org/mock/gomock"

	stripedomain "github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/domain"
	"github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/stripeclient/mocks"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Stripe:  config.Stripe{RequestTimeout: time.Second},
		Metrics: config.Metrics{SubscriptionPageSize: 100, CustomerLimit: 1000},
	}
}

func TestListActiveSubscriptions(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(client *mocks.MockClient)
		validate func(t *testing.T, subs []domain.BillingSubscription, err error)
	}{
		{
			name: "merges active and trialing and converts items",
			setup: func(client *mocks.MockClient) {
				client.EXPECT().
					ListSubscriptions(gomock.Any(), stripedomain.ListSubscriptionsParams{AccessToken: "tok", Status: "active", PageSize: 100}).
					Return([]*stripeapi.Subscription{{
						ID:       "sub_1",
						Status:   stripeapi.SubscriptionStatusActive,
						Customer: &stripeapi.Customer{ID: "cus_1"},
						Items: &stripeapi.SubscriptionItemList{Data: []*stripeapi.SubscriptionItem{{
							Quantity: 2,
							Price: &stripeapi.Price{
								ID:         "price_1",
								UnitAmount: 1000,
								Recurring:  &stripeapi.PriceRecurring{Interval: stripeapi.PriceRecurringIntervalMonth},
							},
						}}},
					}}, nil)
				client.EXPECT().
					ListSubscriptions(gomock.Any(), stripedomain.ListSubscriptionsParams{AccessToken: "tok", Status: "trialing", PageSize: 100}).
					Return([]*stripeapi.Subscription{{
						ID:       "sub_2",
						Status:   stripeapi.SubscriptionStatusTrialing,
						Customer: &stripeapi.Customer{ID: "cus_2"},
					}}, nil)
			},
			validate: func(t *testing.T, subs []domain.BillingSubscription, err error) {
				require.NoError(t, err)
				require.Len(t, subs, 2)
				assert.Equal(t, domain.SubscriptionStatusActive, subs[0].Status)
				assert.Equal(t, "cus_1", subs[0].CustomerID)
				assert.Equal(t, []domain.BillingLineItem{{
					PriceID: "price_1", UnitAmount: 1000, Quantity: 2, Interval: domain.BillingIntervalMonth,
				}}, subs[0].Items)
				assert.Equal(t, domain.SubscriptionStatusTrialing, subs[1].Status)
				assert.Empty(t, subs[1].Items)
			},
		},
		{
			name: "revoked token is an authentication error",
			setup: func(client *mocks.MockClient) {
				client.EXPECT().
					ListSubscriptions(gomock.Any(), gomock.Any()).
					Return(nil, &stripeapi.Error{HTTPStatusCode: http.StatusUnauthorized, Msg: "Invalid API Key"})
			},
			validate: func(t *testing.T, subs []domain.BillingSubscription, err error) {
				require.Error(t, err)
				assert.Nil(t, subs)
				assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
				assert.False(t, domain.IsRetryable(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			tt.setup(client)

			svc := New(testConfig(), client)
			subs, err := svc.ListActiveSubscriptions(context.Background(), "tok")
			tt.validate(t, subs, err)
		})
	}
}

func TestListCustomers(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		ListCustomers(gomock.Any(), stripedomain.ListCustomersParams{AccessToken: "tok", PageSize: 100, Limit: 1000}).
		DoAndReturn(func(ctx context.Context, _ stripedomain.ListCustomersParams) ([]*stripeapi.Customer, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return []*stripeapi.Customer{{ID: "cus_1", Email: "a@example.com"}, nil}, nil
		})

	customers, err := New(testConfig(), client).ListCustomers(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, []domain.BillingCustomer{{ID: "cus_1", Email: "a@example.com"}}, customers)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      domain.ErrorKind
		retryable bool
	}{
		{name: "unauthorized", err: &stripeapi.Error{HTTPStatusCode: 401}, kind: domain.KindAuthentication},
		{name: "forbidden", err: &stripeapi.Error{HTTPStatusCode: 403}, kind: domain.KindAuthorization},
		{name: "bad request", err: &stripeapi.Error{HTTPStatusCode: 400}, kind: domain.KindValidation},
		{name: "card declined", err: &stripeapi.Error{HTTPStatusCode: 402}, kind: domain.KindValidation},
		{name: "missing resource", err: &stripeapi.Error{HTTPStatusCode: 404}, kind: domain.KindNotFound},
		{name: "rate limited", err: &stripeapi.Error{HTTPStatusCode: 429}, kind: domain.KindExternalService, retryable: true},
		{name: "provider outage", err: &stripeapi.Error{HTTPStatusCode: 503}, kind: domain.KindExternalService, retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, kind: domain.KindTimeout, retryable: true},
		{name: "network timeout", err: timeoutErr{}, kind: domain.KindTimeout, retryable: true},
		{name: "transport", err: errors.New("connection reset by peer"), kind: domain.KindExternalService, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", tt.err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, tt.retryable, domain.IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify("op", nil))
}
