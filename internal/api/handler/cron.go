package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/vfg2006/saas-metrics-api/internal/scheduler"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
)

const (
	CronJobTypeMetrics               = "metrics"
	CronJobTypeIdempotencyCompaction = "idempotency-compaction"
	CronJobTypeAll                   = "all"
)

// CronJobServices holds the jobs that can be triggered by hand.
type CronJobServices struct {
	MetricsSyncService           *scheduler.MetricsSyncService
	IdempotencyCompactionService *scheduler.IdempotencyCompactionService
}

// RunCronJob triggers a scheduler job outside its schedule. Admin only.
func RunCronJob(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cronType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		if cronType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "cron job type is required", nil)
			return
		}

		started := map[string]bool{}

		switch cronType {
		case CronJobTypeMetrics:
			if services.MetricsSyncService == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "metrics sync is not available", nil)
				return
			}
			started[CronJobTypeMetrics] = services.MetricsSyncService.TriggerManualSync()

		case CronJobTypeIdempotencyCompaction:
			if services.IdempotencyCompactionService == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "idempotency compaction is not available", nil)
				return
			}
			started[CronJobTypeIdempotencyCompaction] = services.IdempotencyCompactionService.TriggerManualCompaction()

		case CronJobTypeAll:
			if services.MetricsSyncService != nil {
				started[CronJobTypeMetrics] = services.MetricsSyncService.TriggerManualSync()
			}
			if services.IdempotencyCompactionService != nil {
				started[CronJobTypeIdempotencyCompaction] = services.IdempotencyCompactionService.TriggerManualCompaction()
			}

		default:
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest,
				"invalid cron job type, accepted values: metrics, idempotency-compaction, all", nil)
			return
		}

		log.ForContext(r.Context()).WithField("job", cronType).Info("handler: cron job triggered")

		writeJSON(w, r, http.StatusAccepted, map[string]any{
			"type":    cronType,
			"started": started,
		})
	}
}

func GetCronStatus(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{}
		if services.MetricsSyncService != nil {
			status[CronJobTypeMetrics] = services.MetricsSyncService.GetStatus()
		}
		if services.IdempotencyCompactionService != nil {
			status[CronJobTypeIdempotencyCompaction] = services.IdempotencyCompactionService.GetStatus()
		}

		writeJSON(w, r, http.StatusOK, status)
	}
}
