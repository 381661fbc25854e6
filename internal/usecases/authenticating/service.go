package authenticating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vfg2006/saas-metrics-api/infrastructure/repository"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/utils"
)

type Authenticator interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	LoginUser(ctx context.Context, email, password string) (string, error)
	GetUserProfile(ctx context.Context, userID int) (*domain.User, error)
	ValidateToken(tokenString string) (*domain.Claims, error)
	ValidatePasswordStrength(password string) error
}

type Service struct {
	userRepo repository.UserRepository
	cfg      *config.Config
	clock    quartz.Clock
}

func NewService(userRepo repository.UserRepository, cfg *config.Config, clock quartz.Clock) Authenticator {
	return &Service{
		userRepo: userRepo,
		cfg:      cfg,
		clock:    clock,
	}
}

// Register creates the user and the workspace it owns.
func (s *Service) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	if req.Email == "" || req.Name == "" || req.Lastname == "" || req.Password == "" {
		return nil, NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "email, name, lastname and password are required")
	}

	if err := s.ValidatePasswordStrength(req.Password); err != nil {
		return nil, NewAuthError(ErrWeakPassword, apiErrors.ErrInvalidFormat, err.Error())
	}

	email := handleEmail(req.Email)

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, NewAuthError(err, apiErrors.ErrDatabaseOperation, "could not look up user")
	}
	if existing != nil {
		return nil, NewAuthError(ErrUserAlreadyExists, apiErrors.ErrUserAlreadyExists, "email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	workspaceName := strings.TrimSpace(req.WorkspaceName)
	if workspaceName == "" {
		workspaceName = fmt.Sprintf("%s's workspace", req.Name)
	}

	workspaceID, err := utils.GenerateID()
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         req.Name,
		Lastname:     req.Lastname,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Active:       true,
		RoleID:       domain.RoleMember,
	}

	created, err := s.userRepo.CreateWithWorkspace(ctx, user, &domain.Workspace{ID: workspaceID, Name: workspaceName})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, NewAuthError(ErrUserAlreadyExists, apiErrors.ErrUserAlreadyExists, "email already registered")
		}
		return nil, NewAuthError(err, apiErrors.ErrDatabaseOperation, "could not create user")
	}

	log.ForContext(ctx).WithFields(log.Fields{
		"user_id":      created.ID,
		"workspace_id": created.WorkspaceID,
	}).Info("authenticating: user registered")

	created.PasswordHash = ""
	return created, nil
}

func handleEmail(s string) string {
	email := strings.ToLower(s)
	email = strings.TrimSpace(email)
	email = strings.ReplaceAll(email, " ", "")
	return email
}

func (s *Service) LoginUser(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "email and password are required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, handleEmail(email))
	if err != nil {
		return "", NewAuthError(err, apiErrors.ErrDatabaseOperation, "could not look up user")
	}

	if user == nil {
		return "", NewAuthError(ErrUserNotFound, apiErrors.ErrUserNotFound, "user not found")
	}

	if !user.Active {
		return "", NewUserAuthError(ErrUserDisabled, apiErrors.ErrUserDisabled, user.ID, "account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", NewUserAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, user.ID, "wrong password")
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", NewAuthError(err, apiErrors.ErrInternalServer, "could not sign token")
	}

	return token, nil
}

func (s *Service) GetUserProfile(ctx context.Context, userID int) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		log.ForContext(ctx).WithError(err).Error("authenticating: load profile")
		return nil, NewAuthError(err, apiErrors.ErrDatabaseOperation, "could not load user")
	}
	if user == nil {
		return nil, NewAuthError(ErrUserNotFound, apiErrors.ErrUserNotFound, "user not found")
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) generateJWT(user *domain.User) (string, error) {
	now := s.clock.Now()
	claims := domain.Claims{
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserRoleID:  user.RoleID,
		WorkspaceID: user.WorkspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Auth.SecretKey))
}

func (s *Service) tokenDuration() time.Duration {
	if s.cfg.Auth.TokenDuration <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.Auth.TokenDuration
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Auth.SecretKey), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clock.Now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewAuthError(ErrExpiredToken, apiErrors.ErrExpiredToken, "")
		}
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, "")
	}

	return claims, nil
}

// ValidatePasswordStrength requires at least 8 characters mixing upper and
// lower case letters, digits and symbols.
func (s *Service) ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password must have at least 8 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	const (
		lowerChars   = "abcdefghijklmnopqrstuvwxyz"
		upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		numberChars  = "0123456789"
		specialChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	)

	for _, char := range password {
		switch {
		case strings.ContainsRune(lowerChars, char):
			hasLower = true
		case strings.ContainsRune(upperChars, char):
			hasUpper = true
		case strings.ContainsRune(numberChars, char):
			hasNumber = true
		case strings.ContainsRune(specialChars, char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return errors.New("password must contain an upper case letter")
	}
	if !hasLower {
		return errors.New("password must contain a lower case letter")
	}
	if !hasNumber {
		return errors.New("password must contain a digit")
	}
	if !hasSpecial {
		return errors.New("password must contain a symbol")
	}

	return nil
}
