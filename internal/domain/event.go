package domain

import "time"

type EventCategory string

const (
	EventCategorySubscription EventCategory = "subscription"
	EventCategoryInvoice      EventCategory = "invoice"
	EventCategoryCustomer     EventCategory = "customer"
	EventCategoryPrice        EventCategory = "price"
)

// InboundEvent is a verified webhook delivery with its payload decoded once.
type InboundEvent struct {
	ID       string
	Type     string
	Account  string
	Category EventCategory
	Created  time.Time
	Payload  EventPayload
}

// EventPayload is implemented by exactly one payload type per category.
type EventPayload interface {
	ObjectID() string
	Category() EventCategory
}

type SubscriptionPayload struct {
	ID         string
	CustomerID string
	Status     string
}

func (p SubscriptionPayload) ObjectID() string        { return p.ID }
func (p SubscriptionPayload) Category() EventCategory { return EventCategorySubscription }

type InvoicePayload struct {
	ID         string
	CustomerID string
	Status     string
	AmountPaid int64
}

func (p InvoicePayload) ObjectID() string        { return p.ID }
func (p InvoicePayload) Category() EventCategory { return EventCategoryInvoice }

type CustomerPayload struct {
	ID    string
	Email string
}

func (p CustomerPayload) ObjectID() string        { return p.ID }
func (p CustomerPayload) Category() EventCategory { return EventCategoryCustomer }

type PricePayload struct {
	ID         string
	ProductID  string
	UnitAmount int64
	Interval   BillingInterval
	Active     bool
}

func (p PricePayload) ObjectID() string        { return p.ID }
func (p PricePayload) Category() EventCategory { return EventCategoryPrice }

// AccountReference is the provider-side identifier used to find the owning workspace:
// the connected account when the delivery carries one, the customer otherwise.
func (e *InboundEvent) AccountReference() string {
	if e.Account != "" {
		return e.Account
	}
	switch p := e.Payload.(type) {
	case SubscriptionPayload:
		return p.CustomerID
	case InvoicePayload:
		return p.CustomerID
	case CustomerPayload:
		return p.ID
	}
	return ""
}

type ProcessingStatus string

const (
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusDuplicate ProcessingStatus = "duplicate"
	ProcessingStatusIgnored   ProcessingStatus = "ignored"
	ProcessingStatusFailed    ProcessingStatus = "processing_failed"
)

// ProcessingResult summarizes what happened to one delivery.
type ProcessingResult struct {
	EventID     string
	EventType   string
	Status      ProcessingStatus
	WorkspaceID string
	Attempts    int
	Err         error
}
