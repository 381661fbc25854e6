package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"

	"github.com/vfg2006/saas-metrics-api/infrastructure/repository"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const (
	DefaultDays = 30
	MaxDays     = 365
)

var (
	ErrInvalidMetric = errors.New("unknown metric name")
	ErrInvalidDays   = errors.New("days must be between 1 and 365")
)

type Reporter interface {
	ListSnapshots(ctx context.Context, workspaceID string, metric domain.MetricName, days int) ([]*domain.MetricSnapshot, error)
}

type Service struct {
	metricSnapshotRepository repository.MetricSnapshotRepository
	clock                    quartz.Clock
}

func NewService(snapshotRepo repository.MetricSnapshotRepository, clock quartz.Clock) Reporter {
	return &Service{
		metricSnapshotRepository: snapshotRepo,
		clock:                    clock,
	}
}

// ListSnapshots returns the workspace snapshots of the last days, newest first.
// An empty metric selects every metric.
func (s *Service) ListSnapshots(ctx context.Context, workspaceID string, metric domain.MetricName, days int) ([]*domain.MetricSnapshot, error) {
	const op = "reporting.ListSnapshots"

	if metric != "" && !metric.IsValid() {
		return nil, domain.NewError(domain.KindValidation, op, ErrInvalidMetric)
	}
	if days < 1 || days > MaxDays {
		return nil, domain.NewError(domain.KindValidation, op, ErrInvalidDays)
	}

	since := s.clock.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	snapshots, err := s.metricSnapshotRepository.List(ctx, domain.SnapshotFilter{
		WorkspaceID: workspaceID,
		MetricName:  metric,
		Since:       since,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}

	return snapshots, nil
}
