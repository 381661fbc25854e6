package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const metricSnapshotsTable = "metric_snapshots"

var snapshotColumns = []string{"id", "workspace_id", "metric_name", "value", "recorded_at"}

type MetricSnapshotRepository interface {
	// Save inserts the snapshot unless one already exists for the same
	// workspace, metric and day, in which case the existing row is returned
	// and created is false.
	Save(ctx context.Context, snapshot *domain.MetricSnapshot) (stored *domain.MetricSnapshot, created bool, err error)
	List(ctx context.Context, filter domain.SnapshotFilter) ([]*domain.MetricSnapshot, error)
}

type metricSnapshotRepository struct {
	conn *postgres.Connection
}

func NewMetricSnapshotRepository(conn *postgres.Connection) MetricSnapshotRepository {
	return &metricSnapshotRepository{conn: conn}
}

func (r *metricSnapshotRepository) Save(ctx context.Context, snapshot *domain.MetricSnapshot) (*domain.MetricSnapshot, bool, error) {
	query, args, err := squirrel.
		Insert(metricSnapshotsTable).
		Columns("id", "workspace_id", "metric_name", "value", "recorded_at", "recorded_on").
		Values(
			snapshot.ID,
			snapshot.WorkspaceID,
			string(snapshot.MetricName),
			snapshot.Value,
			snapshot.RecordedAt,
			snapshot.RecordedOn().Format("2006-01-02"),
		).
		Suffix("ON CONFLICT (workspace_id, metric_name, recorded_on) DO NOTHING RETURNING id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("snapshot repository: build insert: %w", err)
	}

	var id string
	err = r.conn.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case err == nil:
		return snapshot, true, nil
	case errors.Is(err, sql.ErrNoRows), postgres.IsUniqueViolation(err):
		// another writer already stored this day
	default:
		return nil, false, fmt.Errorf("snapshot repository: insert %s: %w", snapshot.MetricName, err)
	}

	existing, err := r.getForDay(ctx, snapshot)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("snapshot repository: conflicting %s row vanished", snapshot.MetricName)
	}

	return existing, false, nil
}

func (r *metricSnapshotRepository) getForDay(ctx context.Context, snapshot *domain.MetricSnapshot) (*domain.MetricSnapshot, error) {
	query, args, err := squirrel.
		Select(snapshotColumns...).
		From(metricSnapshotsTable).
		Where(squirrel.Eq{
			"workspace_id": snapshot.WorkspaceID,
			"metric_name":  string(snapshot.MetricName),
			"recorded_on":  snapshot.RecordedOn().Format("2006-01-02"),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("snapshot repository: build select: %w", err)
	}

	existing, err := scanSnapshot(r.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot repository: select existing: %w", err)
	}

	return existing, nil
}

// List returns snapshots newer than filter.Since, newest first.
func (r *metricSnapshotRepository) List(ctx context.Context, filter domain.SnapshotFilter) ([]*domain.MetricSnapshot, error) {
	builder := squirrel.
		Select(snapshotColumns...).
		From(metricSnapshotsTable).
		Where(squirrel.Eq{"workspace_id": filter.WorkspaceID}).
		Where(squirrel.GtOrEq{"recorded_at": filter.Since}).
		OrderBy("recorded_at DESC", "metric_name ASC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.MetricName != "" {
		builder = builder.Where(squirrel.Eq{"metric_name": string(filter.MetricName)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("snapshot repository: build list: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("snapshot repository: list: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*domain.MetricSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("snapshot repository: scan: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot repository: iterate: %w", err)
	}

	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.MetricSnapshot, error) {
	var (
		s    domain.MetricSnapshot
		name string
	)
	if err := row.Scan(&s.ID, &s.WorkspaceID, &name, &s.Value, &s.RecordedAt); err != nil {
		return nil, err
	}
	s.MetricName = domain.MetricName(name)
	return &s, nil
}
