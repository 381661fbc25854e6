package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/go-co-op/gocron"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

const jobMetricsSync = "metrics_sync"

type MetricsSyncConfig struct {
	CronSchedule      string
	MaxConcurrentJobs int
	SyncEnabled       bool
}

// MetricsSyncService recalculates every connected workspace on a schedule.
type MetricsSyncService struct {
	scheduler  *gocron.Scheduler
	config     MetricsSyncConfig
	calculator calculating.Calculator
	collectors *metrics.Collectors
	clock      quartz.Clock

	ctx                 context.Context
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastResult          *calculating.BatchResult
}

func NewMetricsSyncService(
	calculator calculating.Calculator,
	collectors *metrics.Collectors,
	clock quartz.Clock,
	appConfig *config.Config,
) *MetricsSyncService {
	syncConfig := MetricsSyncConfig{
		CronSchedule:      appConfig.Scheduler.MetricsSyncCron,
		MaxConcurrentJobs: appConfig.Scheduler.MetricsSyncMaxConcurrency,
		SyncEnabled:       appConfig.Scheduler.MetricsSyncEnabled,
	}

	log.L.WithFields(log.Fields{
		"job":                 jobMetricsSync,
		"cron_schedule":       syncConfig.CronSchedule,
		"max_concurrent_jobs": syncConfig.MaxConcurrentJobs,
		"sync_enabled":        syncConfig.SyncEnabled,
	}).Info("scheduler: metrics sync configured")

	return &MetricsSyncService{
		scheduler:  gocron.NewScheduler(time.UTC),
		config:     syncConfig,
		calculator: calculator,
		collectors: collectors,
		clock:      clock,
		ctx:        context.Background(),
	}
}

// Start schedules the sync and stops the scheduler when ctx is done.
func (s *MetricsSyncService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		log.L.WithField("job", jobMetricsSync).Info("scheduler: metrics sync disabled")
		return nil
	}

	s.ctx = ctx

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(s.syncAllWorkspaces)
	if err != nil {
		return fmt.Errorf("scheduler: schedule metrics sync: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		log.L.WithField("job", jobMetricsSync).Info("scheduler: stopping metrics sync")
		s.scheduler.Stop()
	}()

	return nil
}

func (s *MetricsSyncService) syncAllWorkspaces() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		log.L.WithField("job", jobMetricsSync).Info("scheduler: metrics sync already running, skipping")
		return
	}
	s.syncRunning = true
	s.lastSyncStartedAt = s.clock.Now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.syncMutex.Unlock()
	}()

	start := s.clock.Now()
	result, err := s.calculator.RecalculateAll(s.ctx, s.config.MaxConcurrentJobs)
	if err != nil {
		log.L.WithError(err).WithField("job", jobMetricsSync).Error("scheduler: metrics sync failed")
		s.collectors.SchedulerRuns.WithLabelValues(jobMetricsSync, "failed").Inc()
		return
	}

	log.L.WithFields(log.Fields{
		"job":         jobMetricsSync,
		"workspaces":  result.Workspaces,
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"duration_ms": s.clock.Since(start).Milliseconds(),
	}).Info("scheduler: metrics sync completed")
	s.collectors.SchedulerRuns.WithLabelValues(jobMetricsSync, "completed").Inc()

	s.syncMutex.Lock()
	s.lastSyncCompletedAt = s.clock.Now()
	s.lastResult = result
	s.syncMutex.Unlock()
}

// TriggerManualSync starts a sync in the background unless one is running.
func (s *MetricsSyncService) TriggerManualSync() bool {
	s.syncMutex.Lock()
	running := s.syncRunning
	s.syncMutex.Unlock()

	if running {
		log.L.WithField("job", jobMetricsSync).Info("scheduler: metrics sync already running, ignoring manual trigger")
		return false
	}

	log.L.WithField("job", jobMetricsSync).Info("scheduler: manual metrics sync")
	go s.syncAllWorkspaces()
	return true
}

func (s *MetricsSyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_max_concurrent":    s.config.MaxConcurrentJobs,
		"sync_running":           s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_result":            s.lastResult,
	}
}
