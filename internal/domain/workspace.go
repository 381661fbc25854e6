package domain

import "time"

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID int       `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Provider string

const (
	ProviderStripe    Provider = "stripe"
	ProviderAnalytics Provider = "analytics"
	ProviderManual    Provider = "manual"
)

// Connection binds a workspace to one external provider account.
// It is written by the OAuth flow and only read here.
type Connection struct {
	ID                string            `json:"id"`
	WorkspaceID       string            `json:"workspace_id"`
	Provider          Provider          `json:"provider"`
	ProviderAccountID string            `json:"provider_account_id"`
	AccessToken       string            `json:"-"`
	RefreshToken      string            `json:"-"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// HasUsableToken reports whether the connection can authenticate against its provider.
func (c *Connection) HasUsableToken() bool {
	return c != nil && c.AccessToken != ""
}
