package ingesting

import (
	"context"
	"net/http"

	"github.com/coder/quartz"
	stripeapi "github.com/stripe/stripe-go/v82"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/pkg/idempotency"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
	"github.com/vfg2006/saas-metrics-api/pkg/retry"
)

type Ingester interface {
	Verify(r *http.Request) (*stripeapi.Event, error)
	// Process applies a verified event at most once per idempotency window.
	// Failures the sender should not redeliver are reported in the result;
	// a returned error is an internal fault.
	Process(ctx context.Context, event *stripeapi.Event) (*domain.ProcessingResult, error)
}

type Service struct {
	verifier   *Verifier
	router     *Router
	cache      idempotency.Cache
	calculator calculating.Calculator
	controller *retry.Controller
	collectors *metrics.Collectors
	clock      quartz.Clock
}

func NewService(
	cfg *config.Config,
	verifier *Verifier,
	router *Router,
	cache idempotency.Cache,
	calculator calculating.Calculator,
	collectors *metrics.Collectors,
	clock quartz.Clock,
) *Service {
	policy := retry.DefaultPolicy(domain.IsRetryable)
	policy.MaxAttempts = cfg.Webhook.RetryMaxAttempts
	policy.InitialInterval = cfg.Webhook.RetryInitialInterval
	policy.Budget = cfg.Webhook.ProcessingBudget

	return &Service{
		verifier:   verifier,
		router:     router,
		cache:      cache,
		calculator: calculator,
		controller: retry.NewController(policy),
		collectors: collectors,
		clock:      clock,
	}
}

func (s *Service) Verify(r *http.Request) (*stripeapi.Event, error) {
	return s.verifier.Verify(r)
}

func (s *Service) Process(ctx context.Context, event *stripeapi.Event) (*domain.ProcessingResult, error) {
	start := s.clock.Now()
	eventType := string(event.Type)

	logger := log.ForContext(ctx).WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": eventType,
	})

	result := &domain.ProcessingResult{EventID: event.ID, EventType: eventType}

	seen, err := s.cache.Seen(ctx, event.ID)
	if err != nil {
		// a cache outage only costs a recompute
		logger.WithError(err).Warn("ingesting: idempotency lookup failed")
	}
	if seen {
		logger.Info("ingesting: duplicate delivery")
		result.Status = domain.ProcessingStatusDuplicate
		s.collectors.WebhookEvents.WithLabelValues(eventType, string(result.Status)).Inc()
		return result, nil
	}

	route, ok := s.router.Route(eventType)
	if !ok {
		logger.Info("ingesting: unhandled event type acknowledged")
		result.Status = domain.ProcessingStatusIgnored
		s.record(ctx, logger, event.ID)
		s.collectors.WebhookEvents.WithLabelValues(eventType, string(result.Status)).Inc()
		return result, nil
	}

	outcome := s.controller.Do(ctx, func(ctx context.Context) error {
		inbound, err := s.router.Decode(event, route.Category)
		if err != nil {
			return err
		}

		handled, err := route.Handler(ctx, inbound)
		if err != nil {
			return err
		}
		if handled == nil {
			return nil
		}
		result.WorkspaceID = handled.WorkspaceID

		if !route.Recalculate {
			return nil
		}
		_, err = s.calculator.Recalculate(ctx, handled.WorkspaceID)
		return err
	})

	result.Attempts = outcome.Attempts
	elapsed := s.clock.Since(start)
	s.collectors.WebhookDuration.WithLabelValues(string(route.Category)).Observe(elapsed.Seconds())

	logger = logger.WithFields(log.Fields{
		"workspace_id": result.WorkspaceID,
		"operation":    "ingesting.Process",
		"attempts":     outcome.Attempts,
		"duration_ms":  elapsed.Milliseconds(),
	})

	if outcome.Err != nil {
		result.Err = outcome.Err

		if domain.KindOf(outcome.Err) == domain.KindInternal && !outcome.TimedOut {
			logger.WithError(outcome.Err).Error("ingesting: internal fault, delivery not recorded")
			s.collectors.RetryAttempts.WithLabelValues("internal").Observe(float64(outcome.Attempts))
			s.collectors.WebhookEvents.WithLabelValues(eventType, "internal_error").Inc()
			return nil, outcome.Err
		}

		logger.WithError(outcome.Err).WithField("timed_out", outcome.TimedOut).
			Error("ingesting: processing failed, acknowledging receipt")
		result.Status = domain.ProcessingStatusFailed
		s.record(ctx, logger, event.ID)
		s.collectors.RetryAttempts.WithLabelValues("failed").Observe(float64(outcome.Attempts))
		s.collectors.WebhookEvents.WithLabelValues(eventType, string(result.Status)).Inc()
		return result, nil
	}

	logger.Info("ingesting: event processed")
	result.Status = domain.ProcessingStatusProcessed
	s.record(ctx, logger, event.ID)
	s.collectors.RetryAttempts.WithLabelValues("succeeded").Observe(float64(outcome.Attempts))
	s.collectors.WebhookEvents.WithLabelValues(eventType, string(result.Status)).Inc()

	return result, nil
}

func (s *Service) record(ctx context.Context, logger log.Logger, eventID string) {
	if err := s.cache.Record(ctx, eventID, s.clock.Now()); err != nil {
		logger.WithError(err).Warn("ingesting: failed to record processed event")
	}
}

var _ Ingester = (*Service)(nil)
