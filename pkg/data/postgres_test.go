//go:build integration

package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("devscore"),
		postgres.WithUsername("devscore"),
		postgres.WithPassword("devscore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	defer s.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := testRecord("pg-user", now)
	require.NoError(t, s.SaveScore(ctx, rec))

	got, err := s.GetLatestScore(ctx, "pg-user", "lc-pg-user", "hr-pg-user", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Metrics, got.Metrics)

	list, err := s.ListScores(ctx, "pg-user", 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// reopening does not re-apply migrations
	s2, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	defer s2.Close()
	v, err := s2.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
