package middleware

import (
	"net/http"
	"slices"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
)

// RoleMiddleware restricts a route to the given role ids.
func RoleMiddleware(allowedRoles []int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(ContextKeyUser).(*domain.Claims)
			if !ok {
				log.ForContext(r.Context()).Warn("middleware: unauthenticated access attempt")
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "user not authenticated", nil)
				return
			}

			if !slices.Contains(allowedRoles, userClaims.UserRoleID) {
				log.ForContext(r.Context()).WithFields(log.Fields{
					"user_id":   userClaims.UserID,
					"user_role": userClaims.UserRoleID,
					"path":      r.URL.Path,
				}).Warn("middleware: access denied")
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "insufficient privileges for this resource", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AdminOnly() func(http.Handler) http.Handler {
	return RoleMiddleware([]int{domain.RoleAdmin})
}

func AllRoles() func(http.Handler) http.Handler {
	return RoleMiddleware([]int{domain.RoleAdmin, domain.RoleMember})
}

// RequireWorkspace rejects tokens that are not bound to a workspace.
func RequireWorkspace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(ContextKeyUser).(*domain.Claims)
			if !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "user not authenticated", nil)
				return
			}
			if userClaims.WorkspaceID == "" {
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "user has no workspace", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
