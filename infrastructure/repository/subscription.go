package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const subscriptionsTable = "subscriptions"

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.Subscription) error
}

type subscriptionRepository struct {
	conn *postgres.Connection
}

func NewSubscriptionRepository(conn *postgres.Connection) SubscriptionRepository {
	return &subscriptionRepository{conn: conn}
}

// Upsert stores the latest observed status keyed by the provider subscription id.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query, args, err := squirrel.
		Insert(subscriptionsTable).
		Columns("provider_subscription_id", "workspace_id", "provider_customer_id", "status", "updated_at").
		Values(sub.ProviderSubscriptionID, sub.WorkspaceID, sub.ProviderCustomerID, string(sub.Status), sub.UpdatedAt).
		Suffix(`ON CONFLICT (provider_subscription_id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("subscription repository: build upsert: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("subscription repository: upsert %s: %w", sub.ProviderSubscriptionID, err)
	}

	return nil
}
