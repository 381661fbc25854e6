package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = 1
	RoleMember = 2
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Lastname     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password,omitempty"`
	Active       bool      `json:"active"`
	RoleID       int       `json:"role_id"`
	WorkspaceID  string    `json:"workspace_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Name          string `json:"name"`
	Lastname      string `json:"lastname"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	WorkspaceName string `json:"workspace_name"`
}

type Claims struct {
	UserID      int
	UserEmail   string
	UserRoleID  int
	WorkspaceID string
	jwt.RegisteredClaims
}
