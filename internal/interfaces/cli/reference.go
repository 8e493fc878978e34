package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	domainRef "github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/reference/uba"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// staticReference serves a snapshot loaded once from disk.
type staticReference struct {
	snap *domainRef.Snapshot
}

func (r staticReference) Lookup() domainRef.Lookup { return r.snap }
func (r staticReference) Version() string          { return r.snap.Version }

// loadSnapshotFile reads a stored snapshot (JSON) or builds one from a UBA
// export zip.
func loadSnapshotFile(path string, opts ...uba.ParseOption) (*domainRef.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotUnavailable, "read reference file").WithDetail(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		entries, err := uba.ParseArchive(bytes.NewReader(data), int64(len(data)), opts...)
		if err != nil {
			return nil, err
		}
		return domainRef.NewSnapshot(entries, time.Now(), path), nil
	}
	return domainRef.DecodeSnapshot(bytes.NewReader(data))
}

// ReferenceStatus describes a snapshot.
type ReferenceStatus struct {
	Version string    `json:"version"`
	BuiltAt time.Time `json:"built_at"`
	Source  string    `json:"source,omitempty"`
	Entries int       `json:"entries"`
	AgeSecs int64     `json:"age_seconds"`
	Stale   bool      `json:"stale"`
	Output  string    `json:"output,omitempty"`
}

func newReferenceStatus(snap *domainRef.Snapshot, now time.Time, maxAge time.Duration) *ReferenceStatus {
	return &ReferenceStatus{
		Version: snap.Version,
		BuiltAt: snap.BuiltAt,
		Source:  snap.Source,
		Entries: snap.Len(),
		AgeSecs: int64(now.Sub(snap.BuiltAt) / time.Second),
		Stale:   snap.Stale(now, maxAge),
	}
}

func (s *ReferenceStatus) TableHeaders() []string {
	return []string{"VERSION", "BUILT", "ENTRIES", "STALE", "SOURCE"}
}

func (s *ReferenceStatus) TableRows() [][]string {
	return [][]string{{
		s.Version, s.BuiltAt.Format(time.RFC3339), strconv.Itoa(s.Entries), strconv.FormatBool(s.Stale), s.Source,
	}}
}

func (s *ReferenceStatus) String() string {
	state := "fresh"
	if s.Stale {
		state = "stale"
	}
	out := fmt.Sprintf("reference %s: %d entries, built %s (%s)", s.Version, s.Entries, s.BuiltAt.Format(time.RFC3339), state)
	if s.Output != "" {
		out += ", written to " + s.Output
	}
	return out
}

func newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Maintain the UBA substance reference snapshot",
	}
	cmd.AddCommand(newReferenceRefreshCmd(), newReferenceStatusCmd(), newReferenceBuildCmd())
	return cmd
}

func newReferenceRefreshCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the stored snapshot when it is missing or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			status, err := runReferenceRefresh(ctx, cliCtx, force)
			if err != nil {
				return err
			}
			return PrintResult(cmd, status)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even when the stored snapshot is fresh")
	return cmd
}

func runReferenceRefresh(ctx context.Context, cliCtx *CLIContext, force bool) (*ReferenceStatus, error) {
	infra, err := cliCtx.Open(ctx, bootstrap.Storage|bootstrap.Cache|bootstrap.Messaging)
	if err != nil {
		return nil, err
	}
	defer infra.Close()

	cfg := cliCtx.Config.Reference
	svc, err := infra.NewReferenceService(cfg, nil, cliCtx.Logger)
	if err != nil {
		return nil, err
	}
	if force {
		_, err = svc.Refresh(ctx)
	} else {
		err = svc.Load(ctx)
	}
	if err != nil {
		return nil, err
	}
	snap := svc.Current()
	cliCtx.Logger.Info("reference snapshot ready",
		logging.String("version", snap.Version),
		logging.Bool("forced", force))
	return newReferenceStatus(snap, time.Now(), cfg.MaxAge), nil
}

func newReferenceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			infra, err := cliCtx.Open(ctx, bootstrap.Storage)
			if err != nil {
				return err
			}
			defer infra.Close()

			snap, err := infra.Documents.SnapshotStore().Load(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, newReferenceStatus(snap, time.Now(), cliCtx.Config.Reference.MaxAge))
		},
	}
}

func newReferenceBuildCmd() *cobra.Command {
	var archive, out string
	cmd := &cobra.Command{
		Use:   "build --out uba.json [--archive export.zip]",
		Short: "Build a snapshot file from the UBA export",
		Long: "Builds a snapshot from a local UBA export zip, or downloads the export from\n" +
			"reference.source_url when --archive is not given, and writes it as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			status, err := runReferenceBuild(ctx, cliCtx, archive, out)
			if err != nil {
				return err
			}
			return PrintResult(cmd, status)
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "local UBA export zip")
	cmd.Flags().StringVar(&out, "out", "uba.json", "snapshot file to write")
	return cmd
}

func runReferenceBuild(ctx context.Context, cliCtx *CLIContext, archive, out string) (*ReferenceStatus, error) {
	var (
		snap *domainRef.Snapshot
		err  error
	)
	if archive != "" {
		snap, err = loadSnapshotFile(archive, uba.WithMaxEntryBytes(cliCtx.Config.Reference.MaxEntryBytes))
	} else {
		snap, err = uba.NewSource(cliCtx.Config.Reference.SourceURL, nil, cliCtx.Logger,
			uba.WithMaxEntryBytes(cliCtx.Config.Reference.MaxEntryBytes)).Fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "write snapshot").WithDetail(out)
	}
	status := newReferenceStatus(snap, time.Now(), cliCtx.Config.Reference.MaxAge)
	status.Output = out
	return status, nil
}

//Personal.AI order the ending
