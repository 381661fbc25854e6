package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"

	"github.com/vfg2006/saas-metrics-api/internal/api/handler"
	"github.com/vfg2006/saas-metrics-api/internal/api/handler/router"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/scheduler"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/authenticating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/ingesting"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/reporting"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
	"github.com/vfg2006/saas-metrics-api/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

type Services struct {
	Authenticator                authenticating.Authenticator
	Ingester                     ingesting.Ingester
	Calculator                   calculating.Calculator
	Reporter                     reporting.Reporter
	MetricsSyncService           *scheduler.MetricsSyncService
	IdempotencyCompactionService *scheduler.IdempotencyCompactionService
	Collectors                   *metrics.Collectors
}

func New(config *config.Config, services Services) (*Server, error) {
	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           NewHandler(config, services),
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	return srv, nil
}

// NewHandler builds the routed handler with the global middleware chain.
func NewHandler(config *config.Config, services Services) http.Handler {
	cronServices := handler.CronJobServices{
		MetricsSyncService:           services.MetricsSyncService,
		IdempotencyCompactionService: services.IdempotencyCompactionService,
	}

	rt := router.New(
		router.WithRoutes(handler.Healthcheck()...),
		router.WithRoutes(handler.Exposition(services.Collectors.Handler())...),
		router.WithRoutes(handler.Webhooks(services.Ingester)...),
		router.WithRoutes(handler.Authentication(services.Authenticator)...),
		router.WithRoutes(handler.Metrics(services.Reporter, services.Calculator)...),
		router.WithRoutes(handler.CronJobs(cronServices)...),
	)

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(config.Cors.AllowedOrigins),
		middleware.AuthMiddleware(services.Authenticator),
	}

	return alice.New(middlewares...).Then(rt)
}

// Run serves until an interrupt or ctx cancellation, then shuts down gracefully.
func (s Server) Run(ctx context.Context) error {
	go func() {
		log.L.WithField("address", s.httpServer.Addr).Info("server: listening")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.L.WithError(err).Error("server: listen failed")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.L.Info("server: interrupt received")
	case <-ctx.Done():
		log.L.Info("server: context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.L.WithError(err).Error("server: shutdown failed")
		return err
	}

	log.L.Info("server: stopped")
	return nil
}

func (s Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
