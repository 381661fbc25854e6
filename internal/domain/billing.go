package domain

// Billing state as read from the provider during recalculation.

type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

type BillingLineItem struct {
	PriceID    string
	UnitAmount int64 // minor units
	Quantity   int64
	Interval   BillingInterval
}

type BillingSubscription struct {
	ID         string
	CustomerID string
	Status     SubscriptionStatus
	Items      []BillingLineItem
}

type BillingCustomer struct {
	ID    string
	Email string
}
