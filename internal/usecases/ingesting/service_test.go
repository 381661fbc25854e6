package ingesting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v82"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/saas-metrics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	calcmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/calculating/mocks"
	"github.com/vfg2006/saas-metrics-api/pkg/idempotency"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

type serviceFixture struct {
	connections   *mocks.MockConnectionRepository
	subscriptions *mocks.MockSubscriptionRepository
	calculator    *calcmocks.MockCalculator
	cache         *idempotency.MemoryCache
	service       *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	log.SetupTestLogger()

	cfg := &config.Config{
		Webhook: config.Webhook{
			RetryMaxAttempts:     3,
			RetryInitialInterval: time.Millisecond,
			ProcessingBudget:     5 * time.Second,
		},
	}

	ctrl := gomock.NewController(t)
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	f := &serviceFixture{
		connections:   mocks.NewMockConnectionRepository(ctrl),
		subscriptions: mocks.NewMockSubscriptionRepository(ctrl),
		calculator:    calcmocks.NewMockCalculator(ctrl),
		cache:         idempotency.NewMemoryCache(24*time.Hour, 100, clock),
	}

	handlers := NewHandlers(f.connections, f.subscriptions, clock)
	f.service = NewService(cfg, testVerifier(), NewRouter(handlers), f.cache, f.calculator, metrics.New(), clock)

	return f
}

func subscriptionUpdated(id string) *stripeapi.Event {
	return newEvent(id, "customer.subscription.updated", `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active"}`)
}

func (f *serviceFixture) expectSubscriptionHandled(times int) {
	f.connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "cus_1").
		Return(&domain.Connection{WorkspaceID: "ws_1"}, nil).Times(times)
	f.subscriptions.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil).Times(times)
}

func seen(t *testing.T, cache idempotency.Cache, id string) bool {
	t.Helper()
	ok, err := cache.Seen(context.Background(), id)
	require.NoError(t, err)
	return ok
}

func TestProcess(t *testing.T) {
	externalErr := domain.NewError(domain.KindExternalService, "stripe.ListCustomers", errors.New("503"))

	tests := []struct {
		name     string
		event    *stripeapi.Event
		setup    func(f *serviceFixture)
		validate func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error)
	}{
		{
			name:  "processes and recalculates",
			event: subscriptionUpdated("evt_1"),
			setup: func(f *serviceFixture) {
				f.expectSubscriptionHandled(1)
				f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, nil)
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusProcessed, result.Status)
				assert.Equal(t, "ws_1", result.WorkspaceID)
				assert.Equal(t, 1, result.Attempts)
				assert.True(t, seen(t, f.cache, "evt_1"))
			},
		},
		{
			name:  "unknown event type is acknowledged without handlers",
			event: newEvent("evt_2", "payout.paid", `{"id":"po_1","object":"payout"}`),
			setup: func(*serviceFixture) {},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusIgnored, result.Status)
				assert.Equal(t, "payout.paid", result.EventType)
				assert.Zero(t, result.Attempts)
			},
		},
		{
			name: "price events never recalculate",
			event: func() *stripeapi.Event {
				e := newEvent("evt_3", "price.updated", `{"id":"price_1","object":"price"}`)
				e.Account = "acct_1"
				return e
			}(),
			setup: func(f *serviceFixture) {
				f.connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "acct_1").
					Return(&domain.Connection{WorkspaceID: "ws_1"}, nil)
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusProcessed, result.Status)
			},
		},
		{
			name:  "unlinked account skips recalculation",
			event: subscriptionUpdated("evt_4"),
			setup: func(f *serviceFixture) {
				f.connections.EXPECT().GetByProviderAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusProcessed, result.Status)
				assert.Empty(t, result.WorkspaceID)
			},
		},
		{
			name:  "transient failures are retried until success",
			event: subscriptionUpdated("evt_5"),
			setup: func(f *serviceFixture) {
				f.expectSubscriptionHandled(3)
				gomock.InOrder(
					f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, externalErr),
					f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, externalErr),
					f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, nil),
				)
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusProcessed, result.Status)
				assert.Equal(t, 3, result.Attempts)
			},
		},
		{
			name:  "exhausted retries are acknowledged as failed",
			event: subscriptionUpdated("evt_6"),
			setup: func(f *serviceFixture) {
				f.expectSubscriptionHandled(3)
				f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, externalErr).Times(3)
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusFailed, result.Status)
				assert.Equal(t, 3, result.Attempts)
				assert.ErrorIs(t, result.Err, externalErr)
				assert.True(t, seen(t, f.cache, "evt_6"))
			},
		},
		{
			name:  "not connected fails fast",
			event: subscriptionUpdated("evt_7"),
			setup: func(f *serviceFixture) {
				f.expectSubscriptionHandled(1)
				f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").
					Return(nil, domain.NewError(domain.KindNotConnected, "calculating.Recalculate", domain.ErrNotConnected))
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusFailed, result.Status)
				assert.Equal(t, 1, result.Attempts)
			},
		},
		{
			name:  "invalid payload fails fast",
			event: newEvent("evt_8", "invoice.paid", `{"id":"in_1","object":"invoice"}`),
			setup: func(*serviceFixture) {},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, domain.ProcessingStatusFailed, result.Status)
				assert.Equal(t, 1, result.Attempts)
				assert.ErrorIs(t, result.Err, domain.ErrMissingCustomer)
			},
		},
		{
			name:  "internal fault is returned and not recorded",
			event: subscriptionUpdated("evt_9"),
			setup: func(f *serviceFixture) {
				f.connections.EXPECT().GetByProviderAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			validate: func(t *testing.T, f *serviceFixture, result *domain.ProcessingResult, err error) {
				assert.Nil(t, result)
				assert.Equal(t, domain.KindInternal, domain.KindOf(err))
				assert.False(t, seen(t, f.cache, "evt_9"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			tt.setup(f)

			result, err := f.service.Process(context.Background(), tt.event)
			tt.validate(t, f, result, err)
		})
	}
}

func TestProcess_DuplicateHasNoSideEffects(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.expectSubscriptionHandled(1)
	f.calculator.EXPECT().Recalculate(gomock.Any(), "ws_1").Return(nil, nil).Times(1)

	first, err := f.service.Process(ctx, subscriptionUpdated("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingStatusProcessed, first.Status)

	second, err := f.service.Process(ctx, subscriptionUpdated("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingStatusDuplicate, second.Status)
	assert.Equal(t, "evt_1", second.EventID)
}
