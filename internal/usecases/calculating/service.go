package calculating

import (
	"context"
	"errors"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe"
	"github.com/vfg2006/saas-metrics-api/infrastructure/repository"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
	"github.com/vfg2006/saas-metrics-api/pkg/throttle"
	"github.com/vfg2006/saas-metrics-api/pkg/utils"
)

const calculatedRecently = "calculated recently"

const (
	TriggerWebhook   = "webhook"
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

type Calculator interface {
	// Recalculate derives the workspace metrics from live billing data and
	// stores one snapshot per metric for the current day.
	Recalculate(ctx context.Context, workspaceID string) ([]*domain.MetricSnapshot, error)
	TriggerRecalculation(ctx context.Context, workspaceID string) (*domain.RecalculationResult, error)
	RecalculateAll(ctx context.Context, concurrency int) (*BatchResult, error)
}

// BatchResult summarizes a RecalculateAll run.
type BatchResult struct {
	Workspaces int `json:"workspaces"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

type Service struct {
	cfg                      *config.Config
	connectionRepository     repository.ConnectionRepository
	workspaceRepository      repository.WorkspaceRepository
	metricSnapshotRepository repository.MetricSnapshotRepository
	billing                  stripe.BillingIntegrator
	window                   throttle.Window
	collectors               *metrics.Collectors
	clock                    quartz.Clock
}

func NewService(
	cfg *config.Config,
	connectionRepo repository.ConnectionRepository,
	workspaceRepo repository.WorkspaceRepository,
	snapshotRepo repository.MetricSnapshotRepository,
	billing stripe.BillingIntegrator,
	window throttle.Window,
	collectors *metrics.Collectors,
	clock quartz.Clock,
) *Service {
	return &Service{
		cfg:                      cfg,
		connectionRepository:     connectionRepo,
		workspaceRepository:      workspaceRepo,
		metricSnapshotRepository: snapshotRepo,
		billing:                  billing,
		window:                   window,
		collectors:               collectors,
		clock:                    clock,
	}
}

func (s *Service) Recalculate(ctx context.Context, workspaceID string) ([]*domain.MetricSnapshot, error) {
	return s.recalculate(ctx, workspaceID, TriggerWebhook)
}

// TriggerRecalculation admits one attempt per workspace per window. A repeat
// inside the window reports when the admitted attempt started.
func (s *Service) TriggerRecalculation(ctx context.Context, workspaceID string) (*domain.RecalculationResult, error) {
	const op = "calculating.TriggerRecalculation"

	now := s.clock.Now()
	allowed, last, err := s.window.Acquire(ctx, workspaceID, now)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}

	if !allowed {
		log.ForContext(ctx).WithFields(log.Fields{
			"workspace_id": workspaceID,
			"operation":    op,
		}).Info("calculating: recalculation throttled")
		s.collectors.Recalculations.WithLabelValues(TriggerManual, "throttled").Inc()

		return &domain.RecalculationResult{
			Recalculated:     false,
			Message:          calculatedRecently,
			LastCalculatedAt: last,
		}, nil
	}

	snapshots, err := s.recalculate(ctx, workspaceID, TriggerManual)
	if err != nil && len(snapshots) == 0 {
		return nil, err
	}

	return &domain.RecalculationResult{
		Recalculated:     true,
		LastCalculatedAt: now,
		Snapshots:        snapshots,
	}, err
}

// RecalculateAll refreshes every workspace with a billing connection, at
// most concurrency at a time. Per-workspace failures are counted, not returned.
func (s *Service) RecalculateAll(ctx context.Context, concurrency int) (*BatchResult, error) {
	workspaces, err := s.workspaceRepository.ListConnected(ctx, domain.ProviderStripe)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, "calculating.RecalculateAll", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = &BatchResult{Workspaces: len(workspaces)}
		sem    = make(chan struct{}, concurrency)
	)

	for _, ws := range workspaces {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(workspaceID string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.recalculate(ctx, workspaceID, TriggerScheduled)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				return
			}
			result.Succeeded++
		}(ws.ID)
	}

	wg.Wait()

	return result, nil
}

type upstream struct {
	subscriptions    []domain.BillingSubscription
	subscriptionsErr error
	customers        []domain.BillingCustomer
	customersErr     error
}

func (s *Service) recalculate(ctx context.Context, workspaceID, trigger string) ([]*domain.MetricSnapshot, error) {
	const op = "calculating.Recalculate"

	logger := log.ForContext(ctx).WithFields(log.Fields{
		"workspace_id": workspaceID,
		"operation":    op,
	})

	conn, err := s.connectionRepository.GetByWorkspace(ctx, workspaceID, domain.ProviderStripe)
	if err != nil {
		s.collectors.Recalculations.WithLabelValues(trigger, "failed").Inc()
		return nil, domain.NewError(domain.KindInternal, op, err)
	}
	if !conn.HasUsableToken() {
		s.collectors.Recalculations.WithLabelValues(trigger, "not_connected").Inc()
		return nil, domain.NewError(domain.KindNotConnected, op, domain.ErrNotConnected)
	}

	data := s.fetch(ctx, conn.AccessToken)
	if data.subscriptionsErr != nil && data.customersErr != nil {
		logger.WithError(data.subscriptionsErr).Error("calculating: billing provider unavailable")
		s.collectors.Recalculations.WithLabelValues(trigger, "failed").Inc()
		return nil, data.subscriptionsErr
	}

	values := s.compute(logger, data)

	now := s.clock.Now().UTC()
	snapshots := make([]*domain.MetricSnapshot, 0, len(values))
	for _, v := range values {
		stored, created, err := s.metricSnapshotRepository.Save(ctx, &domain.MetricSnapshot{
			ID:          uuid.New().String(),
			WorkspaceID: workspaceID,
			MetricName:  v.name,
			Value:       v.value,
			RecordedAt:  now,
		})
		if err != nil {
			s.collectors.Recalculations.WithLabelValues(trigger, "failed").Inc()
			return snapshots, domain.NewError(domain.KindInternal, op, err)
		}
		if !created {
			logger.WithField("metric", v.name).Debug("calculating: snapshot already stored today")
		}
		snapshots = append(snapshots, stored)
	}

	upstreamErr := errors.Join(data.subscriptionsErr, data.customersErr)
	if upstreamErr != nil {
		logger.WithError(upstreamErr).Warn("calculating: partial recalculation")
		s.collectors.Recalculations.WithLabelValues(trigger, "partial").Inc()
		// keep the classified provider error, not the join
		if data.subscriptionsErr != nil {
			return snapshots, data.subscriptionsErr
		}
		return snapshots, data.customersErr
	}

	logger.WithField("metrics", len(snapshots)).Info("calculating: metrics recalculated")
	s.collectors.Recalculations.WithLabelValues(trigger, "success").Inc()

	return snapshots, nil
}

func (s *Service) fetch(ctx context.Context, accessToken string) upstream {
	var (
		data upstream
		wg   sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		data.subscriptions, data.subscriptionsErr = s.billing.ListActiveSubscriptions(ctx, accessToken)
	}()
	go func() {
		defer wg.Done()
		data.customers, data.customersErr = s.billing.ListCustomers(ctx, accessToken)
	}()
	wg.Wait()

	return data
}

type metricValue struct {
	name  domain.MetricName
	value decimal.Decimal
}

// compute derives whatever the fetched data allows. A metric whose input is
// malformed is stored as zero.
func (s *Service) compute(logger log.Logger, data upstream) []metricValue {
	values := make([]metricValue, 0, 4)

	var mrr, churn decimal.Decimal
	haveSubscriptions := data.subscriptionsErr == nil
	haveCustomers := data.customersErr == nil

	if haveSubscriptions {
		raw, err := MonthlyRecurringRevenue(data.subscriptions)
		if err != nil {
			logger.WithError(err).WithField("metric", domain.MetricMRR).Warn("calculating: defaulting metric to zero")
			raw = decimal.Zero
		}
		if raw.IsNegative() {
			logger.WithFields(log.Fields{
				"metric": domain.MetricMRR,
				"value":  raw.String(),
			}).Warn("calculating: negative MRR floored to zero")
		}
		mrr = utils.ClampDecimal(raw, decimal.Zero, maxMRR).Round(2)

		active := utils.ClampDecimal(ActiveCustomers(data.subscriptions), decimal.Zero, maxActiveCustomers)

		values = append(values,
			metricValue{name: domain.MetricMRR, value: mrr},
			metricValue{name: domain.MetricActiveCustomers, value: active},
		)
	}

	if haveCustomers {
		churn = ChurnRate(len(data.customers), s.cfg.Metrics.ChurnBaselineRate).Round(4)
		values = append(values, metricValue{name: domain.MetricChurnRate, value: churn})
	}

	if haveSubscriptions && haveCustomers {
		ltv := utils.ClampDecimal(LifetimeValue(mrr, churn), decimal.Zero, maxLTV).Round(2)
		values = append(values, metricValue{name: domain.MetricLTV, value: ltv})
	}

	return values
}

var _ Calculator = (*Service)(nil)
