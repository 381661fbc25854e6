package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/go-co-op/gocron"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

const jobIdempotencyCompaction = "idempotency_compaction"

// Compactor evicts expired entries and reports how many were removed.
type Compactor interface {
	Compact(now time.Time) int
	Len() int
}

// IdempotencyCompactionService evicts expired event ids from the in-process
// cache between deliveries. Shared stores expire keys on their own and need no job.
type IdempotencyCompactionService struct {
	scheduler    *gocron.Scheduler
	cronSchedule string
	compactor    Compactor
	collectors   *metrics.Collectors
	clock        quartz.Clock
}

func NewIdempotencyCompactionService(
	compactor Compactor,
	collectors *metrics.Collectors,
	clock quartz.Clock,
	appConfig *config.Config,
) *IdempotencyCompactionService {
	return &IdempotencyCompactionService{
		scheduler:    gocron.NewScheduler(time.UTC),
		cronSchedule: appConfig.Scheduler.IdempotencyCompactionCron,
		compactor:    compactor,
		collectors:   collectors,
		clock:        clock,
	}
}

func (s *IdempotencyCompactionService) Start(ctx context.Context) error {
	if s.compactor == nil || s.cronSchedule == "" {
		log.L.WithField("job", jobIdempotencyCompaction).Info("scheduler: idempotency compaction disabled")
		return nil
	}

	_, err := s.scheduler.Cron(s.cronSchedule).Do(s.compact)
	if err != nil {
		return fmt.Errorf("scheduler: schedule idempotency compaction: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		s.scheduler.Stop()
	}()

	return nil
}

func (s *IdempotencyCompactionService) compact() {
	evicted := s.compactor.Compact(s.clock.Now())
	s.collectors.IdempotencyEvictions.Add(float64(evicted))
	s.collectors.SchedulerRuns.WithLabelValues(jobIdempotencyCompaction, "completed").Inc()

	log.L.WithFields(log.Fields{
		"job":       jobIdempotencyCompaction,
		"evicted":   evicted,
		"remaining": s.compactor.Len(),
	}).Debug("scheduler: idempotency cache compacted")
}

// TriggerManualCompaction compacts immediately. It reports false when there is
// no in-process cache to compact.
func (s *IdempotencyCompactionService) TriggerManualCompaction() bool {
	if s.compactor == nil {
		return false
	}
	s.compact()
	return true
}

func (s *IdempotencyCompactionService) GetStatus() map[string]any {
	status := map[string]any{
		"compaction_enabled": s.compactor != nil,
		"compaction_cron":    s.cronSchedule,
	}
	if s.compactor != nil {
		status["cached_event_ids"] = s.compactor.Len()
	}
	return status
}
