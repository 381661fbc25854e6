package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	calcmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/calculating/mocks"
	"github.com/vfg2006/saas-metrics-api/pkg/idempotency"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

func TestMain(m *testing.M) {
	log.SetupTestLogger()
	goleak.VerifyTestMain(m)
}

func syncConfig(enabled bool, cron string) *config.Config {
	return &config.Config{Scheduler: config.Scheduler{
		MetricsSyncCron:           cron,
		MetricsSyncEnabled:        enabled,
		MetricsSyncMaxConcurrency: 3,
		IdempotencyCompactionCron: cron,
	}}
}

func TestMetricsSyncService_SyncAllWorkspaces(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(calc *calcmocks.MockCalculator)
		validate func(t *testing.T, s *MetricsSyncService)
	}{
		{
			name: "records the batch result",
			setup: func(calc *calcmocks.MockCalculator) {
				calc.EXPECT().RecalculateAll(gomock.Any(), 3).
					Return(&calculating.BatchResult{Workspaces: 4, Succeeded: 3, Failed: 1}, nil)
			},
			validate: func(t *testing.T, s *MetricsSyncService) {
				status := s.GetStatus()
				assert.Equal(t, &calculating.BatchResult{Workspaces: 4, Succeeded: 3, Failed: 1}, status["last_result"])
				assert.False(t, status["last_sync_completed_at"].(time.Time).IsZero())
				assert.Equal(t, false, status["sync_running"])
				assert.Equal(t, 1.0, testutil.ToFloat64(s.collectors.SchedulerRuns.WithLabelValues(jobMetricsSync, "completed")))
			},
		},
		{
			name: "listing failure is counted",
			setup: func(calc *calcmocks.MockCalculator) {
				calc.EXPECT().RecalculateAll(gomock.Any(), 3).Return(nil, errors.New("db down"))
			},
			validate: func(t *testing.T, s *MetricsSyncService) {
				assert.Nil(t, s.GetStatus()["last_result"])
				assert.Equal(t, 1.0, testutil.ToFloat64(s.collectors.SchedulerRuns.WithLabelValues(jobMetricsSync, "failed")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			calc := calcmocks.NewMockCalculator(ctrl)
			tt.setup(calc)

			s := NewMetricsSyncService(calc, metrics.New(), quartz.NewMock(t), syncConfig(true, "0 2 * * *"))
			s.syncAllWorkspaces()
			tt.validate(t, s)
		})
	}
}

func TestMetricsSyncService_TriggerManualSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	calc := calcmocks.NewMockCalculator(ctrl)

	release := make(chan struct{})
	done := make(chan struct{})
	calc.EXPECT().RecalculateAll(gomock.Any(), 3).
		DoAndReturn(func(context.Context, int) (*calculating.BatchResult, error) {
			<-release
			return &calculating.BatchResult{}, nil
		}).Times(1)

	s := NewMetricsSyncService(calc, metrics.New(), quartz.NewMock(t), syncConfig(false, "0 2 * * *"))

	require.True(t, s.TriggerManualSync())
	require.Eventually(t, func() bool { return s.GetStatus()["sync_running"] == true }, time.Second, time.Millisecond)

	assert.False(t, s.TriggerManualSync(), "a running sync rejects another trigger")

	go func() {
		defer close(done)
		for s.GetStatus()["sync_running"] == true {
			time.Sleep(time.Millisecond)
		}
	}()
	close(release)
	<-done
}

func TestMetricsSyncService_Start(t *testing.T) {
	ctrl := gomock.NewController(t)
	calc := calcmocks.NewMockCalculator(ctrl)

	disabled := NewMetricsSyncService(calc, metrics.New(), quartz.NewMock(t), syncConfig(false, "0 2 * * *"))
	assert.NoError(t, disabled.Start(context.Background()))

	invalid := NewMetricsSyncService(calc, metrics.New(), quartz.NewMock(t), syncConfig(true, "not a cron"))
	assert.Error(t, invalid.Start(context.Background()))
}

func TestIdempotencyCompactionService(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(start)

	cache := idempotency.NewMemoryCache(time.Hour, 1000, clock)
	require.NoError(t, cache.Record(ctx, "evt_old", start))
	require.NoError(t, cache.Record(ctx, "evt_new", start.Add(90*time.Minute)))
	clock.Set(start.Add(2 * time.Hour))

	collectors := metrics.New()
	s := NewIdempotencyCompactionService(cache, collectors, clock, syncConfig(false, "*/30 * * * *"))
	s.compact()

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.IdempotencyEvictions))
	assert.Equal(t, 1, s.GetStatus()["cached_event_ids"])

	assert.True(t, s.TriggerManualCompaction())
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.IdempotencyEvictions))

	noop := NewIdempotencyCompactionService(nil, collectors, clock, syncConfig(false, "*/30 * * * *"))
	assert.NoError(t, noop.Start(ctx))
	assert.False(t, noop.TriggerManualCompaction())
	assert.Equal(t, false, noop.GetStatus()["compaction_enabled"])
}
