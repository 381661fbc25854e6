package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MetricName string

const (
	MetricMRR                 MetricName = "mrr"
	MetricChurnRate           MetricName = "churn_rate"
	MetricLTV                 MetricName = "ltv"
	MetricActiveCustomers     MetricName = "active_customers"
	MetricCAC                 MetricName = "cac"
	MetricConversionRate      MetricName = "conversion_rate"
	MetricNetRevenueRetention MetricName = "net_revenue_retention"
)

var metricNames = map[MetricName]struct{}{
	MetricMRR:                 {},
	MetricChurnRate:           {},
	MetricLTV:                 {},
	MetricActiveCustomers:     {},
	MetricCAC:                 {},
	MetricConversionRate:      {},
	MetricNetRevenueRetention: {},
}

func (m MetricName) IsValid() bool {
	_, ok := metricNames[m]
	return ok
}

// MetricSnapshot is one recorded value of a metric. At most one exists per
// workspace, metric and UTC calendar day.
type MetricSnapshot struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	MetricName  MetricName      `json:"metric_name"`
	Value       decimal.Decimal `json:"value"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// RecordedOn is the calendar day the uniqueness constraint is keyed on.
func (s *MetricSnapshot) RecordedOn() time.Time {
	return SnapshotDay(s.RecordedAt)
}

func SnapshotDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

type SnapshotFilter struct {
	WorkspaceID string
	MetricName  MetricName
	Since       time.Time
}

// RecalculationResult is returned by the throttled recalculation trigger.
type RecalculationResult struct {
	Recalculated     bool              `json:"recalculated"`
	Message          string            `json:"message,omitempty"`
	LastCalculatedAt time.Time         `json:"last_calculated_at"`
	Snapshots        []*MetricSnapshot `json:"snapshots,omitempty"`
}
