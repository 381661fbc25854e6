package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	jsoniter "github.com/json-iterator/go"
	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const connectionsTable = "connections"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var connectionColumns = []string{
	"id", "workspace_id", "provider", "provider_account_id", "access_token", "refresh_token", "metadata", "created_at", "updated_at",
}

type ConnectionRepository interface {
	GetByProviderAccount(ctx context.Context, provider domain.Provider, providerAccountID string) (*domain.Connection, error)
	GetByWorkspace(ctx context.Context, workspaceID string, provider domain.Provider) (*domain.Connection, error)
}

type connectionRepository struct {
	conn *postgres.Connection
}

func NewConnectionRepository(conn *postgres.Connection) ConnectionRepository {
	return &connectionRepository{conn: conn}
}

func (r *connectionRepository) GetByProviderAccount(ctx context.Context, provider domain.Provider, providerAccountID string) (*domain.Connection, error) {
	return r.get(ctx, squirrel.Eq{"provider": string(provider), "provider_account_id": providerAccountID})
}

func (r *connectionRepository) GetByWorkspace(ctx context.Context, workspaceID string, provider domain.Provider) (*domain.Connection, error) {
	return r.get(ctx, squirrel.Eq{"workspace_id": workspaceID, "provider": string(provider)})
}

func (r *connectionRepository) get(ctx context.Context, where squirrel.Eq) (*domain.Connection, error) {
	query, args, err := squirrel.
		Select(connectionColumns...).
		From(connectionsTable).
		Where(where).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("connection repository: build select: %w", err)
	}

	var (
		c        domain.Connection
		metadata []byte
	)
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.Provider,
		&c.ProviderAccountID,
		&c.AccessToken,
		&c.RefreshToken,
		&metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("connection repository: select: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("connection repository: decode metadata of %s: %w", c.ID, err)
		}
	}

	return &c, nil
}
