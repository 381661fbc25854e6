package calculating

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

func TestMonthlyRecurringRevenue(t *testing.T) {
	tests := []struct {
		name     string
		subs     []domain.BillingSubscription
		expected string
		err      error
	}{
		{
			name: "yearly items are excluded",
			subs: []domain.BillingSubscription{{
				Status: domain.SubscriptionStatusActive,
				Items: []domain.BillingLineItem{
					{UnitAmount: 1000, Quantity: 2, Interval: domain.BillingIntervalMonth},
					{UnitAmount: 500, Quantity: 1, Interval: domain.BillingIntervalYear},
				},
			}},
			expected: "20",
		},
		{
			name: "trialing subscriptions bring no revenue",
			subs: []domain.BillingSubscription{
				{Status: domain.SubscriptionStatusTrialing, Items: []domain.BillingLineItem{{UnitAmount: 9900, Quantity: 1, Interval: domain.BillingIntervalMonth}}},
				{Status: domain.SubscriptionStatusActive, Items: []domain.BillingLineItem{{UnitAmount: 1999, Quantity: 3, Interval: domain.BillingIntervalMonth}}},
			},
			expected: "59.97",
		},
		{
			name:     "no subscriptions",
			expected: "0",
		},
		{
			name: "negative quantity is malformed",
			subs: []domain.BillingSubscription{{
				Status: domain.SubscriptionStatusActive,
				Items:  []domain.BillingLineItem{{UnitAmount: 1000, Quantity: -1, Interval: domain.BillingIntervalMonth}},
			}},
			expected: "0",
			err:      ErrMalformedLineItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mrr, err := MonthlyRecurringRevenue(tt.subs)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(mrr), "got %s", mrr)
		})
	}
}

func TestActiveCustomers(t *testing.T) {
	subs := []domain.BillingSubscription{
		{CustomerID: "cus_1", Status: domain.SubscriptionStatusActive},
		{CustomerID: "cus_1", Status: domain.SubscriptionStatusTrialing},
		{CustomerID: "cus_2", Status: domain.SubscriptionStatusTrialing},
		{CustomerID: "cus_3", Status: domain.SubscriptionStatusPastDue},
		{CustomerID: "", Status: domain.SubscriptionStatusActive},
	}

	assert.Equal(t, int64(2), ActiveCustomers(subs).IntPart())
}

func TestChurnRate(t *testing.T) {
	tests := []struct {
		name      string
		customers int
		baseline  float64
		expected  string
	}{
		{name: "no customers", customers: 0, baseline: 0.05, expected: "0"},
		{name: "small base keeps the baseline", customers: 9, baseline: 0.05, expected: "0.05"},
		{name: "hundred customers halves it", customers: 100, baseline: 0.05, expected: "0.025"},
		{name: "thousand customers", customers: 1000, baseline: 0.06, expected: "0.02"},
		{name: "capped at fifty percent", customers: 1, baseline: 0.9, expected: "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChurnRate(tt.customers, tt.baseline).Round(4)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestLifetimeValue(t *testing.T) {
	hundred := decimal.NewFromInt(100)

	assert.True(t, decimal.NewFromInt(2000).Equal(LifetimeValue(hundred, decimal.RequireFromString("0.05"))))
	assert.True(t, LifetimeValue(hundred, decimal.Zero).IsZero())
	assert.True(t, LifetimeValue(hundred, decimal.NewFromInt(1)).IsZero())
}
