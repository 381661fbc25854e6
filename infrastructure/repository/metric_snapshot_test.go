package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfg2006/saas-metrics-api/infrastructure/database/postgres"
	"github.com/vfg2006/saas-metrics-api/infrastructure/migration"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const testWorkspace = "ws_repo_test"

// startPostgres runs a throwaway server with the schema applied.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()

	if testing.Short() {
		t.Skip("starts an embedded postgres server")
	}
	if os.Geteuid() == 0 {
		t.Skip("postgres refuses to run as root")
	}

	port := freePort(t)
	dir := t.TempDir()
	ep := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Version(embeddedpostgres.V16).
			Port(uint32(port)).
			RuntimePath(dir + "/runtime").
			DataPath(dir + "/data").
			Logger(io.Discard),
	)
	require.NoError(t, ep.Start())
	t.Cleanup(func() { _ = ep.Stop() })

	dsn := fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=postgres sslmode=disable", port)
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.Up(db))

	_, err = db.Exec(`INSERT INTO users (name, lastname, email, password_hash) VALUES ('Ada', 'Lovelace', 'ada@example.com', 'x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO workspaces (id, name, owner_user_id) SELECT $1, 'Acme', id FROM users LIMIT 1`, testWorkspace)
	require.NoError(t, err)

	return &postgres.Connection{DB: db}
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestMetricSnapshotRepository_Save(t *testing.T) {
	conn := startPostgres(t)
	repo := NewMetricSnapshotRepository(conn)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	snapshot := func(id string, name domain.MetricName, value string, at time.Time) *domain.MetricSnapshot {
		return &domain.MetricSnapshot{
			ID:          id,
			WorkspaceID: testWorkspace,
			MetricName:  name,
			Value:       decimal.RequireFromString(value),
			RecordedAt:  at,
		}
	}

	tests := []struct {
		name     string
		setup    func(t *testing.T)
		input    *domain.MetricSnapshot
		validate func(t *testing.T, stored *domain.MetricSnapshot, created bool)
	}{
		{
			name:  "first write of the day is created",
			input: snapshot("6f1c6b1e-0000-4000-8000-000000000001", domain.MetricMRR, "1000", day),
			validate: func(t *testing.T, stored *domain.MetricSnapshot, created bool) {
				assert.True(t, created)
				assert.Equal(t, "6f1c6b1e-0000-4000-8000-000000000001", stored.ID)
			},
		},
		{
			name: "same day returns the stored row",
			setup: func(t *testing.T) {
				_, created, err := repo.Save(ctx, snapshot("6f1c6b1e-0000-4000-8000-000000000002", domain.MetricLTV, "250", day))
				require.NoError(t, err)
				require.True(t, created)
			},
			input: snapshot("6f1c6b1e-0000-4000-8000-000000000003", domain.MetricLTV, "999", day.Add(6*time.Hour)),
			validate: func(t *testing.T, stored *domain.MetricSnapshot, created bool) {
				assert.False(t, created)
				assert.Equal(t, "6f1c6b1e-0000-4000-8000-000000000002", stored.ID)
				assert.True(t, decimal.RequireFromString("250").Equal(stored.Value), "got %s", stored.Value)
				assert.True(t, day.Equal(stored.RecordedAt))
			},
		},
		{
			name: "next day is a new row",
			setup: func(t *testing.T) {
				_, _, err := repo.Save(ctx, snapshot("6f1c6b1e-0000-4000-8000-000000000004", domain.MetricChurnRate, "0.05", day))
				require.NoError(t, err)
			},
			input: snapshot("6f1c6b1e-0000-4000-8000-000000000005", domain.MetricChurnRate, "0.04", day.Add(24*time.Hour)),
			validate: func(t *testing.T, stored *domain.MetricSnapshot, created bool) {
				assert.True(t, created)
				assert.Equal(t, "6f1c6b1e-0000-4000-8000-000000000005", stored.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}

			stored, created, err := repo.Save(ctx, tt.input)
			require.NoError(t, err)
			require.NotNil(t, stored)
			tt.validate(t, stored, created)
		})
	}

	// one row per metric per day survives
	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM metric_snapshots WHERE metric_name = 'ltv'`).Scan(&count))
	assert.Equal(t, 1, count)
}
