package ingesting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/saas-metrics-api/infrastructure/repository/mocks"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

func TestHandleSubscription(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		event    *domain.InboundEvent
		setup    func(connections *mocks.MockConnectionRepository, subscriptions *mocks.MockSubscriptionRepository)
		validate func(t *testing.T, result *HandlerResult, err error)
	}{
		{
			name: "upserts with the mapped status",
			event: &domain.InboundEvent{
				ID:      "evt_1",
				Payload: domain.SubscriptionPayload{ID: "sub_1", CustomerID: "cus_1", Status: "canceled"},
			},
			setup: func(connections *mocks.MockConnectionRepository, subscriptions *mocks.MockSubscriptionRepository) {
				connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "cus_1").
					Return(&domain.Connection{WorkspaceID: "ws_1"}, nil)
				subscriptions.EXPECT().Upsert(gomock.Any(), &domain.Subscription{
					WorkspaceID:            "ws_1",
					ProviderSubscriptionID: "sub_1",
					ProviderCustomerID:     "cus_1",
					Status:                 domain.SubscriptionStatusCancelled,
					UpdatedAt:              now,
				}).Return(nil)
			},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, &HandlerResult{WorkspaceID: "ws_1"}, result)
			},
		},
		{
			name: "unknown provider status maps to unknown",
			event: &domain.InboundEvent{
				Account: "acct_1",
				Payload: domain.SubscriptionPayload{ID: "sub_1", CustomerID: "cus_1", Status: "paused"},
			},
			setup: func(connections *mocks.MockConnectionRepository, subscriptions *mocks.MockSubscriptionRepository) {
				connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "acct_1").
					Return(&domain.Connection{WorkspaceID: "ws_1"}, nil)
				subscriptions.EXPECT().Upsert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, sub *domain.Subscription) error {
						assert.Equal(t, domain.SubscriptionStatusUnknown, sub.Status)
						return nil
					})
			},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:  "missing customer fails validation before any lookup",
			event: &domain.InboundEvent{Payload: domain.SubscriptionPayload{ID: "sub_1"}},
			setup: func(*mocks.MockConnectionRepository, *mocks.MockSubscriptionRepository) {},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				assert.Nil(t, result)
				assert.ErrorIs(t, err, domain.ErrMissingCustomer)
				assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			},
		},
		{
			name:  "missing object id",
			event: &domain.InboundEvent{Payload: domain.SubscriptionPayload{CustomerID: "cus_1"}},
			setup: func(*mocks.MockConnectionRepository, *mocks.MockSubscriptionRepository) {},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				assert.ErrorIs(t, err, domain.ErrMissingObjectID)
			},
		},
		{
			name:  "unlinked account is not an error",
			event: &domain.InboundEvent{Payload: domain.SubscriptionPayload{ID: "sub_1", CustomerID: "cus_404"}},
			setup: func(connections *mocks.MockConnectionRepository, _ *mocks.MockSubscriptionRepository) {
				connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "cus_404").Return(nil, nil)
			},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				assert.NoError(t, err)
				assert.Nil(t, result)
			},
		},
		{
			name:  "lookup failure is internal",
			event: &domain.InboundEvent{Payload: domain.SubscriptionPayload{ID: "sub_1", CustomerID: "cus_1"}},
			setup: func(connections *mocks.MockConnectionRepository, _ *mocks.MockSubscriptionRepository) {
				connections.EXPECT().GetByProviderAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				assert.Equal(t, domain.KindInternal, domain.KindOf(err))
			},
		},
		{
			name:  "payload of another category",
			event: &domain.InboundEvent{Payload: domain.CustomerPayload{ID: "cus_1"}},
			setup: func(*mocks.MockConnectionRepository, *mocks.MockSubscriptionRepository) {},
			validate: func(t *testing.T, result *HandlerResult, err error) {
				assert.ErrorIs(t, err, domain.ErrUnexpectedObject)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			connections := mocks.NewMockConnectionRepository(ctrl)
			subscriptions := mocks.NewMockSubscriptionRepository(ctrl)
			tt.setup(connections, subscriptions)

			clock := quartz.NewMock(t)
			clock.Set(now)

			h := NewHandlers(connections, subscriptions, clock)
			result, err := h.HandleSubscription(context.Background(), tt.event)
			tt.validate(t, result, err)
		})
	}
}

func TestHandleInvoiceCustomerPrice(t *testing.T) {
	ctrl := gomock.NewController(t)
	connections := mocks.NewMockConnectionRepository(ctrl)
	h := NewHandlers(connections, mocks.NewMockSubscriptionRepository(ctrl), quartz.NewMock(t))
	ctx := context.Background()

	connections.EXPECT().GetByProviderAccount(gomock.Any(), domain.ProviderStripe, "cus_1").
		Return(&domain.Connection{WorkspaceID: "ws_1"}, nil).Times(2)

	result, err := h.HandleInvoice(ctx, &domain.InboundEvent{Payload: domain.InvoicePayload{ID: "in_1", CustomerID: "cus_1"}})
	require.NoError(t, err)
	assert.Equal(t, "ws_1", result.WorkspaceID)

	_, err = h.HandleInvoice(ctx, &domain.InboundEvent{Payload: domain.InvoicePayload{ID: "in_1"}})
	assert.ErrorIs(t, err, domain.ErrMissingCustomer)

	result, err = h.HandleCustomer(ctx, &domain.InboundEvent{Payload: domain.CustomerPayload{ID: "cus_1"}})
	require.NoError(t, err)
	assert.Equal(t, "ws_1", result.WorkspaceID)

	// platform-level prices carry no account to resolve
	result, err = h.HandlePrice(ctx, &domain.InboundEvent{Payload: domain.PricePayload{ID: "price_1"}})
	assert.NoError(t, err)
	assert.Nil(t, result)

	_, err = h.HandlePrice(ctx, &domain.InboundEvent{Payload: domain.PricePayload{}})
	assert.ErrorIs(t, err, domain.ErrMissingObjectID)
}
