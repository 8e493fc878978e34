package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// migrator is the part of postgres.Migrator the commands use.
type migrator interface {
	Up() error
	Rollback(steps int) error
	Status() (uint, bool, error)
	Force(version int) error
}

// MigrationStatus is the schema version of the record store.
type MigrationStatus struct {
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
	Action  string `json:"action,omitempty"`
}

func (s *MigrationStatus) TableHeaders() []string {
	return []string{"VERSION", "DIRTY", "ACTION"}
}

func (s *MigrationStatus) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(s.Version), 10), strconv.FormatBool(s.Dirty), s.Action}}
}

func (s *MigrationStatus) String() string {
	out := fmt.Sprintf("schema version %d", s.Version)
	if s.Dirty {
		out += " (dirty)"
	}
	if s.Action != "" {
		out = s.Action + ": " + out
	}
	return out
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the record store schema",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", cobra.NoArgs,
			func(m migrator, args []string) (string, error) { return "up", m.Up() }),
		migrateSubcommand("down [STEPS]", "Roll back migrations (default 1)", cobra.MaximumNArgs(1),
			func(m migrator, args []string) (string, error) {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return "", errors.InvalidParam(fmt.Sprintf("invalid step count %q", args[0]))
					}
					steps = n
				}
				return "down " + strconv.Itoa(steps), m.Rollback(steps)
			}),
		migrateSubcommand("status", "Show the applied schema version", cobra.NoArgs,
			func(m migrator, args []string) (string, error) { return "", nil }),
		migrateSubcommand("force VERSION", "Mark VERSION as applied after a manual repair", cobra.ExactArgs(1),
			func(m migrator, args []string) (string, error) {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return "", errors.InvalidParam(fmt.Sprintf("invalid version %q", args[0]))
				}
				return "force " + args[0], m.Force(v)
			}),
	)
	return cmd
}

func migrateSubcommand(use, short string, args cobra.PositionalArgs, run func(migrator, []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			status, err := runMigrate(ctx, cliCtx, func(m migrator) (string, error) { return run(m, argv) })
			if err != nil {
				return err
			}
			return PrintResult(cmd, status)
		},
	}
}

// newMigrator is replaced in tests.
var newMigrator = func(infra *bootstrap.Infrastructure, cliCtx *CLIContext) migrator {
	return postgres.NewMigrator(infra.DB, cliCtx.Config.Database.MigrationPath, cliCtx.Logger)
}

func runMigrate(ctx context.Context, cliCtx *CLIContext, run func(migrator) (string, error)) (*MigrationStatus, error) {
	infra, err := cliCtx.Open(ctx, bootstrap.Database)
	if err != nil {
		return nil, err
	}
	defer infra.Close()

	m := newMigrator(infra, cliCtx)
	action, err := run(m)
	if err != nil {
		return nil, err
	}
	version, dirty, err := m.Status()
	if err != nil {
		return nil, err
	}
	return &MigrationStatus{Version: version, Dirty: dirty, Action: action}, nil
}

//Personal.AI order the ending
