//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/SDB-Intelligence/internal/config"
	"github.com/turtacn/SDB-Intelligence/internal/domain/record"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// startPostgres launches a PostgreSQL 16 container, migrates it and returns
// the connection plus the DSN for out-of-band checks.
func startPostgres(t *testing.T) (*postgres.Connection, string) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "sdb_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	log := logging.NewNopLogger()
	conn, err := postgres.NewConnection(config.DatabaseConfig{
		Host: host, Port: portNum, User: "test", Password: "test", DBName: "sdb_test", SSLMode: "disable",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, postgres.NewMigrator(conn, "", log).Up())
	return conn, fmt.Sprintf("postgres://test:test@%s:%s/sdb_test?sslmode=disable", host, port.Port())
}

func TestRecordRepo_Integration(t *testing.T) {
	conn, dsn := startPostgres(t)
	ctx := context.Background()
	repo := repositories.NewPostgresRecordRepo(conn, logging.NewNopLogger())

	first := &sdb.StoredRecord{
		JobID:   "job-1",
		Profile: "acros",
		CAS:     "64-17-5",
		Name:    "Ethanol",
		Record:  sdb.Record{sdb.FieldCAS: "64-17-5", sdb.FieldHazards: []string{"225", "319"}},
	}
	second := &sdb.StoredRecord{
		JobID:   "job-2",
		Profile: "merck",
		CAS:     "64-17-5",
		Record:  sdb.Record{sdb.FieldCAS: "64-17-5"},
	}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	assert.False(t, first.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ethanol", got.Name)
	assert.Equal(t, []string{"225", "319"}, got.Record.Strings(sdb.FieldHazards))

	byCAS, err := repo.FindByCAS(ctx, "64-17-5")
	require.NoError(t, err)
	require.Len(t, byCAS, 2)
	assert.Equal(t, second.ID, byCAS[0].ID)

	list, total, err := repo.List(ctx, record.WithProfile("merck"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecordNotFound))

	// The JSONB payload is queryable from outside the repository.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM sdb_records WHERE record->>'cas' = $1`, "64-17-5").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestMigrator_Integration(t *testing.T) {
	conn, _ := startPostgres(t)
	m := postgres.NewMigrator(conn, "", logging.NewNopLogger())

	version, dirty, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	require.NoError(t, m.Rollback(1))
	version, _, err = m.Status()
	require.NoError(t, err)
	assert.Zero(t, version)
}

//Personal.AI order the ending
