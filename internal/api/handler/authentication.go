package handler

import (
	"errors"
	"net/http"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/authenticating"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/middleware"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "invalid request body", nil)
			return
		}

		token, err := service.LoginUser(r.Context(), req.Email, req.Password)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]string{"token": token})
	}
}

// Register creates a user together with the workspace it owns.
func Register(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "invalid request body", nil)
			return
		}

		user, err := service.Register(r.Context(), &req)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}

		user.PasswordHash = ""
		writeJSON(w, r, http.StatusCreated, user)
	}
}

// GetMe returns the profile of the authenticated user.
func GetMe(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "user not authenticated", nil)
			return
		}

		user, err := service.GetUserProfile(r.Context(), userClaims.UserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, user)
	}
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *authenticating.AuthError
	if errors.As(err, &authErr) {
		var details any
		if authErr.UserID != 0 {
			details = map[string]any{"user_id": authErr.UserID}
		}
		if authErr.Code == apiErrors.ErrDatabaseOperation || authErr.Code == apiErrors.ErrInternalServer {
			log.ForContext(r.Context()).WithError(err).Error("handler: authentication failed")
			apiErrors.WriteError(w, authErr.Code, "internal server error", nil)
			return
		}
		apiErrors.WriteError(w, authErr.Code, authErr.Error(), details)
		return
	}

	switch {
	case errors.Is(err, authenticating.ErrInvalidCredentials):
		apiErrors.WriteError(w, apiErrors.ErrInvalidCredentials, "invalid credentials", nil)
	case errors.Is(err, authenticating.ErrUserDisabled):
		apiErrors.WriteError(w, apiErrors.ErrUserDisabled, "user disabled", nil)
	case errors.Is(err, authenticating.ErrUserNotFound):
		apiErrors.WriteError(w, apiErrors.ErrUserNotFound, "user not found", nil)
	default:
		log.ForContext(r.Context()).WithError(err).Error("handler: authentication failed")
		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "internal server error", nil)
	}
}
