package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	"github.com/turtacn/SDB-Intelligence/internal/config"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

type fakeMigrator struct {
	version uint
	dirty   bool
	calls   []string
	err     error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	if f.err != nil {
		return f.err
	}
	f.version = 3
	return nil
}

func (f *fakeMigrator) Rollback(steps int) error {
	f.calls = append(f.calls, "down")
	if steps <= 0 {
		return errors.New(errors.ErrCodeValidation, "steps must be greater than 0")
	}
	f.version -= uint(steps)
	return nil
}

func (f *fakeMigrator) Status() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.version, f.dirty = uint(v), false
	return nil
}

func migrateContext(t *testing.T, m *fakeMigrator) *CLIContext {
	t.Helper()
	orig := newMigrator
	newMigrator = func(*bootstrap.Infrastructure, *CLIContext) migrator { return m }
	t.Cleanup(func() { newMigrator = orig })

	cliCtx := testCLIContext(t, "json")
	cliCtx.open = func(_ context.Context, _ *config.Config, want bootstrap.Component, _ logging.Logger) (*bootstrap.Infrastructure, error) {
		assert.Equal(t, bootstrap.Database, want)
		return &bootstrap.Infrastructure{}, nil
	}
	return cliCtx
}

func runMigrateCmd(t *testing.T, cliCtx *CLIContext, args ...string) (*MigrationStatus, error) {
	t.Helper()
	out, err := execute(t, cliCtx, append([]string{"migrate"}, args...)...)
	if err != nil {
		return nil, err
	}
	var status MigrationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	return &status, nil
}

func TestMigrate_UpDownStatus(t *testing.T) {
	m := &fakeMigrator{}
	cliCtx := migrateContext(t, m)

	status, err := runMigrateCmd(t, cliCtx, "up")
	require.NoError(t, err)
	assert.Equal(t, uint(3), status.Version)
	assert.Equal(t, "up", status.Action)

	status, err = runMigrateCmd(t, cliCtx, "down")
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.Equal(t, "down 1", status.Action)

	status, err = runMigrateCmd(t, cliCtx, "down", "2")
	require.NoError(t, err)
	assert.Equal(t, uint(0), status.Version)

	status, err = runMigrateCmd(t, cliCtx, "status")
	require.NoError(t, err)
	assert.Empty(t, status.Action)
	assert.Equal(t, []string{"up", "down", "down"}, m.calls)
}

func TestMigrate_Force(t *testing.T) {
	m := &fakeMigrator{version: 2, dirty: true}
	cliCtx := migrateContext(t, m)

	status, err := runMigrateCmd(t, cliCtx, "force", "1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)

	_, err = runMigrateCmd(t, cliCtx, "force", "one")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = runMigrateCmd(t, cliCtx, "force")
	assert.Error(t, err)
}

func TestMigrate_Errors(t *testing.T) {
	m := &fakeMigrator{err: errors.New(errors.ErrCodeDatabaseError, "boom")}
	cliCtx := migrateContext(t, m)

	_, err := runMigrateCmd(t, cliCtx, "up")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))

	_, err = runMigrateCmd(t, cliCtx, "down", "0")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = runMigrateCmd(t, cliCtx, "down", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestMigrationStatus_String(t *testing.T) {
	assert.Equal(t, "schema version 4", (&MigrationStatus{Version: 4}).String())
	assert.Equal(t, "up: schema version 4 (dirty)", (&MigrationStatus{Version: 4, Dirty: true, Action: "up"}).String())
}

//Personal.AI order the ending
