package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

type WorkspaceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	ListConnected(ctx context.Context, provider domain.Provider) ([]*domain.Workspace, error)
}

type workspaceRepository struct {
	conn *postgres.Connection
}

func NewWorkspaceRepository(conn *postgres.Connection) WorkspaceRepository {
	return &workspaceRepository{conn: conn}
}

func (r *workspaceRepository) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	query, args, err := squirrel.
		Select("w.id", "w.name", "w.owner_user_id", "w.created_at").
		From("workspaces w").
		Where(squirrel.Eq{"w.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("workspace repository: build select: %w", err)
	}

	var ws domain.Workspace
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(&ws.ID, &ws.Name, &ws.OwnerUserID, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace repository: select: %w", err)
	}

	return &ws, nil
}

// ListConnected returns workspaces holding a connection to provider with a non-empty token.
func (r *workspaceRepository) ListConnected(ctx context.Context, provider domain.Provider) ([]*domain.Workspace, error) {
	query, args, err := squirrel.
		Select("w.id", "w.name", "w.owner_user_id", "w.created_at").
		From("workspaces w").
		Join("connections c ON c.workspace_id = w.id").
		Where(squirrel.Eq{"c.provider": string(provider)}).
		Where(squirrel.NotEq{"c.access_token": ""}).
		OrderBy("w.created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("workspace repository: build list: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace repository: list: %w", err)
	}
	defer rows.Close()

	workspaces := make([]*domain.Workspace, 0)
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.OwnerUserID, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("workspace repository: scan: %w", err)
		}
		workspaces = append(workspaces, &ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workspace repository: iterate: %w", err)
	}

	return workspaces, nil
}
