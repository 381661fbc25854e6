package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusCancelled         SubscriptionStatus = "cancelled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusUnknown           SubscriptionStatus = "unknown"
)

var providerStatuses = map[string]SubscriptionStatus{
	"active":             SubscriptionStatusActive,
	"canceled":           SubscriptionStatusCancelled,
	"cancelled":          SubscriptionStatusCancelled,
	"incomplete":         SubscriptionStatusIncomplete,
	"incomplete_expired": SubscriptionStatusIncompleteExpired,
	"past_due":           SubscriptionStatusPastDue,
	"trialing":           SubscriptionStatusTrialing,
	"unpaid":             SubscriptionStatusUnpaid,
}

// MapSubscriptionStatus translates a provider status. Unrecognized values map to unknown.
func MapSubscriptionStatus(providerStatus string) SubscriptionStatus {
	if s, ok := providerStatuses[providerStatus]; ok {
		return s
	}
	return SubscriptionStatusUnknown
}

type Subscription struct {
	WorkspaceID            string             `json:"workspace_id"`
	ProviderSubscriptionID string             `json:"provider_subscription_id"`
	ProviderCustomerID     string             `json:"provider_customer_id"`
	Status                 SubscriptionStatus `json:"status"`
	UpdatedAt              time.Time          `json:"updated_at"`
}
