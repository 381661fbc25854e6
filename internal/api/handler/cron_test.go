package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/internal/scheduler"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	calcmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/calculating/mocks"
	"github.com/vfg2006/saas-metrics-api/pkg/idempotency"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

func TestCronJobs(t *testing.T) {
	adminClaims := &domain.Claims{UserID: 1, UserRoleID: domain.RoleAdmin}
	cfg := &config.Config{Scheduler: config.Scheduler{
		MetricsSyncCron:           "0 2 * * *",
		MetricsSyncMaxConcurrency: 2,
		IdempotencyCompactionCron: "*/30 * * * *",
	}}

	tests := []struct {
		name     string
		req      *http.Request
		setup    func(calc *calcmocks.MockCalculator, done chan struct{})
		validate func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{})
	}{
		{
			name: "runs metrics sync",
			req:  withClaims(httptest.NewRequest(http.MethodPost, "/v1/cron/metrics/run", nil), adminClaims),
			setup: func(calc *calcmocks.MockCalculator, done chan struct{}) {
				calc.EXPECT().RecalculateAll(gomock.Any(), 2).
					DoAndReturn(func(context.Context, int) (*calculating.BatchResult, error) {
						close(done)
						return &calculating.BatchResult{}, nil
					})
			},
			validate: func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{}) {
				assert.Equal(t, http.StatusAccepted, rec.Code)
				assert.Contains(t, rec.Body.String(), `"metrics":true`)
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("metrics sync was not started")
				}
			},
		},
		{
			name:  "runs idempotency compaction",
			req:   withClaims(httptest.NewRequest(http.MethodPost, "/v1/cron/idempotency-compaction/run", nil), adminClaims),
			setup: func(calc *calcmocks.MockCalculator, done chan struct{}) {},
			validate: func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{}) {
				assert.Equal(t, http.StatusAccepted, rec.Code)
				assert.Contains(t, rec.Body.String(), `"idempotency-compaction":true`)
			},
		},
		{
			name:  "unknown job type",
			req:   withClaims(httptest.NewRequest(http.MethodPost, "/v1/cron/ranking/run", nil), adminClaims),
			setup: func(calc *calcmocks.MockCalculator, done chan struct{}) {},
			validate: func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{}) {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			},
		},
		{
			name:  "members cannot trigger jobs",
			req:   withClaims(httptest.NewRequest(http.MethodPost, "/v1/cron/metrics/run", nil), memberClaims),
			setup: func(calc *calcmocks.MockCalculator, done chan struct{}) {},
			validate: func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{}) {
				assert.Equal(t, http.StatusForbidden, rec.Code)
			},
		},
		{
			name:  "status",
			req:   withClaims(httptest.NewRequest(http.MethodGet, "/v1/cron", nil), adminClaims),
			setup: func(calc *calcmocks.MockCalculator, done chan struct{}) {},
			validate: func(t *testing.T, rec *httptest.ResponseRecorder, done chan struct{}) {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Contains(t, rec.Body.String(), `"sync_cron":"0 2 * * *"`)
				assert.Contains(t, rec.Body.String(), `"compaction_enabled":true`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			calc := calcmocks.NewMockCalculator(ctrl)
			done := make(chan struct{})
			tt.setup(calc, done)

			clock := quartz.NewMock(t)
			collectors := metrics.New()
			services := CronJobServices{
				MetricsSyncService: scheduler.NewMetricsSyncService(calc, collectors, clock, cfg),
				IdempotencyCompactionService: scheduler.NewIdempotencyCompactionService(
					idempotency.NewMemoryCache(time.Hour, 100, clock), collectors, clock, cfg),
			}

			rec := serve(CronJobs(services), tt.req)
			tt.validate(t, rec, done)
		})
	}
}
