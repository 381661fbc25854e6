package calculating

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

var (
	maxMRR             = decimal.NewFromInt(100_000_000)
	maxActiveCustomers = decimal.NewFromInt(1_000_000)
	maxLTV             = decimal.NewFromInt(10_000_000)
	maxChurnRate       = decimal.NewFromFloat(0.5)

	minorUnitsPerMajor = decimal.NewFromInt(100)
)

var ErrMalformedLineItem = errors.New("subscription line item has a negative quantity")

// MonthlyRecurringRevenue sums unit amount times quantity over the monthly
// line items of active subscriptions, in major currency units. The result is
// not clamped.
func MonthlyRecurringRevenue(subscriptions []domain.BillingSubscription) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, sub := range subscriptions {
		if sub.Status != domain.SubscriptionStatusActive {
			continue
		}
		for _, item := range sub.Items {
			if item.Interval != domain.BillingIntervalMonth {
				continue
			}
			if item.Quantity < 0 {
				return decimal.Zero, ErrMalformedLineItem
			}
			total = total.Add(decimal.NewFromInt(item.UnitAmount).Mul(decimal.NewFromInt(item.Quantity)))
		}
	}
	return total.Div(minorUnitsPerMajor), nil
}

// ActiveCustomers counts distinct customers holding an active or trialing subscription.
func ActiveCustomers(subscriptions []domain.BillingSubscription) decimal.Decimal {
	seen := make(map[string]struct{})
	for _, sub := range subscriptions {
		if sub.CustomerID == "" {
			continue
		}
		if sub.Status == domain.SubscriptionStatusActive || sub.Status == domain.SubscriptionStatusTrialing {
			seen[sub.CustomerID] = struct{}{}
		}
	}
	return decimal.NewFromInt(int64(len(seen)))
}

// ChurnRate approximates churn without cohort history: the baseline rate
// divided by the order of magnitude of the customer base, capped at 50%.
// It is an estimate, not a measurement.
func ChurnRate(customers int, baseline float64) decimal.Decimal {
	if customers <= 0 || baseline <= 0 {
		return decimal.Zero
	}
	scale := math.Max(1, math.Log10(float64(customers)))
	rate := decimal.NewFromFloat(baseline / scale)
	return decimal.Min(rate, maxChurnRate)
}

// LifetimeValue is MRR over churn when churn is in (0, 1), zero otherwise.
func LifetimeValue(mrr, churn decimal.Decimal) decimal.Decimal {
	if !churn.IsPositive() || churn.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero
	}
	return mrr.Div(churn)
}
