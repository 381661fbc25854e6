package handler

import (
	"net/http"
	"strconv"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/reporting"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/middleware"
)

type MetricsResponse struct {
	WorkspaceID string                   `json:"workspace_id"`
	Metric      domain.MetricName        `json:"metric,omitempty"`
	Days        int                      `json:"days"`
	Snapshots   []*domain.MetricSnapshot `json:"snapshots"`
}

// GetMetrics lists the snapshots of the caller's workspace.
func GetMetrics(service reporting.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "user not authenticated", nil)
			return
		}

		query := r.URL.Query()
		metric := domain.MetricName(query.Get("metric"))

		days := reporting.DefaultDays
		if raw := query.Get("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "days must be an integer", nil)
				return
			}
			days = parsed
		}

		snapshots, err := service.ListSnapshots(r.Context(), userClaims.WorkspaceID, metric, days)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, MetricsResponse{
			WorkspaceID: userClaims.WorkspaceID,
			Metric:      metric,
			Days:        days,
			Snapshots:   snapshots,
		})
	}
}

// RecalculateMetrics runs the throttled recalculation for the caller's workspace.
func RecalculateMetrics(service calculating.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "user not authenticated", nil)
			return
		}

		result, err := service.TriggerRecalculation(r.Context(), userClaims.WorkspaceID)
		if err != nil && result == nil {
			writeDomainError(w, r, err)
			return
		}
		if err != nil {
			log.ForContext(r.Context()).WithError(err).WithField("workspace_id", userClaims.WorkspaceID).
				Warn("handler: recalculation partially succeeded")
		}

		writeJSON(w, r, http.StatusOK, result)
	}
}
