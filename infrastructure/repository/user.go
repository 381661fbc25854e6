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

const (
	usersTable      = "users"
	workspacesTable = "workspaces"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepository interface {
	CreateWithWorkspace(ctx context.Context, user *domain.User, workspace *domain.Workspace) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID int) (*domain.User, error)
}

type userRepository struct {
	conn *postgres.Connection
}

func NewUserRepository(conn *postgres.Connection) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

// CreateWithWorkspace inserts the user and the workspace it owns in one transaction.
func (r *userRepository) CreateWithWorkspace(ctx context.Context, user *domain.User, workspace *domain.Workspace) (*domain.User, error) {
	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		userSQL, userArgs, err := squirrel.
			Insert(usersTable).
			Columns("name", "lastname", "email", "password_hash", "active", "role_id").
			Values(user.Name, user.Lastname, user.Email, user.PasswordHash, user.Active, user.RoleID).
			Suffix("RETURNING id, created_at, updated_at").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("user repository: build insert user: %w", err)
		}

		if err := tx.QueryRowContext(ctx, userSQL, userArgs...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if postgres.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("user repository: insert user: %w", err)
		}

		workspace.OwnerUserID = user.ID
		wsSQL, wsArgs, err := squirrel.
			Insert(workspacesTable).
			Columns("id", "name", "owner_user_id").
			Values(workspace.ID, workspace.Name, workspace.OwnerUserID).
			Suffix("RETURNING created_at").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("user repository: build insert workspace: %w", err)
		}

		if err := tx.QueryRowContext(ctx, wsSQL, wsArgs...).Scan(&workspace.CreatedAt); err != nil {
			return fmt.Errorf("user repository: insert workspace: %w", err)
		}

		linkSQL, linkArgs, err := squirrel.
			Update(usersTable).
			Set("workspace_id", workspace.ID).
			Where(squirrel.Eq{"id": user.ID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("user repository: build link workspace: %w", err)
		}

		if _, err := tx.ExecContext(ctx, linkSQL, linkArgs...); err != nil {
			return fmt.Errorf("user repository: link workspace: %w", err)
		}

		user.WorkspaceID = workspace.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, squirrel.Eq{"email": email})
}

func (r *userRepository) GetUserByID(ctx context.Context, userID int) (*domain.User, error) {
	return r.getUser(ctx, squirrel.Eq{"id": userID})
}

func (r *userRepository) getUser(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	query, args, err := squirrel.
		Select("id", "name", "lastname", "email", "password_hash", "active", "role_id", "COALESCE(workspace_id, '')", "created_at", "updated_at").
		From(usersTable).
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("user repository: build select: %w", err)
	}

	var user domain.User
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Lastname,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.RoleID,
		&user.WorkspaceID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository: select: %w", err)
	}

	return &user, nil
}
