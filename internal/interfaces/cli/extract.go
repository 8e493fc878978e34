package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/SDB-Intelligence/internal/application/extraction"
	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/reference/uba"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// allFile collects every record of a batch run.
const allFile = "all.json"

// textExt is what directories are searched for.
const textExt = ".txt"

type extractOptions struct {
	profile   string
	outDir    string
	parallel  int
	reference string
	force     bool
}

// FileResult reports one input of a batch run.
type FileResult struct {
	Input     string   `json:"input"`
	Output    string   `json:"output,omitempty"`
	Name      string   `json:"name,omitempty"`
	CAS       string   `json:"cas,omitempty"`
	Signal    string   `json:"signal,omitempty"`
	Hazards   []string `json:"hazards,omitempty"`
	Fallbacks int      `json:"fallbacks"`
	Reused    bool     `json:"reused,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ExtractSummary is printed after a batch run.
type ExtractSummary struct {
	Profile string       `json:"profile"`
	OutDir  string       `json:"out_dir"`
	All     string       `json:"all"`
	Files   []FileResult `json:"files"`
}

func (s *ExtractSummary) TableHeaders() []string {
	return []string{"INPUT", "NAME", "CAS", "SIGNAL", "H", "FALLBACKS", "STATUS"}
}

func (s *ExtractSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Files))
	for _, f := range s.Files {
		status := "extracted"
		switch {
		case f.Error != "":
			status = f.Error
		case f.Reused:
			status = "reused"
		}
		rows = append(rows, []string{
			filepath.Base(f.Input), f.Name, f.CAS, f.Signal,
			strings.Join(f.Hazards, ","), strconv.Itoa(f.Fallbacks), status,
		})
	}
	return rows
}

func (s *ExtractSummary) String() string {
	var ok, failed int
	for _, f := range s.Files {
		if f.Error != "" {
			failed++
		} else {
			ok++
		}
	}
	return fmt.Sprintf("%d records written to %s (%d skipped)", ok, s.All, failed)
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract --profile PROFILE [flags] FILE|DIR...",
		Short: "Extract records from converted safety data sheet texts",
		Long: "Runs the extraction engine on plain text files and writes one JSON record per\n" +
			"input plus all.json with every record.  Directories are searched for *.txt.\n" +
			"Existing outputs are reused unless --force is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			summary, err := runExtract(ctx, cliCtx, opts, args)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summary)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.profile, "profile", "p", "", "manufacturer profile: acros|caelo|merck (required)")
	f.StringVar(&opts.outDir, "out", "out", "directory for the JSON records")
	f.IntVar(&opts.parallel, "parallel", 0, "files extracted concurrently (default: extraction.batch_parallelism)")
	f.StringVar(&opts.reference, "reference", "", "reference snapshot (uba.json) or UBA export zip to merge against")
	f.BoolVarP(&opts.force, "force", "f", false, "extract again even when the output exists")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runExtract(ctx context.Context, cliCtx *CLIContext, opts *extractOptions, args []string) (*ExtractSummary, error) {
	log := cliCtx.Logger
	eng, err := bootstrap.NewEngine(cliCtx.Config.Extraction, log)
	if err != nil {
		return nil, err
	}
	profile := strings.ToLower(strings.TrimSpace(opts.profile))
	if !contains(eng.Profiles(), profile) {
		return nil, errors.UnsupportedProfile(profile)
	}

	var refs extraction.ReferenceProvider
	if opts.reference != "" {
		snap, err := loadSnapshotFile(opts.reference, uba.WithMaxEntryBytes(cliCtx.Config.Reference.MaxEntryBytes))
		if err != nil {
			return nil, err
		}
		refs = staticReference{snap}
		log.Info("using reference snapshot",
			logging.String("version", snap.Version),
			logging.Int("entries", snap.Len()))
	}
	svc := extraction.NewService(eng, refs, extraction.WithLogger(log))

	inputs, err := collectInputs(args)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.InvalidParam("no input files found")
	}
	names, err := outputNames(inputs)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "create output directory")
	}

	parallel := opts.parallel
	if parallel <= 0 {
		parallel = cliCtx.Config.Extraction.BatchParallelism
	}

	results := make([]FileResult, len(inputs))
	records := make([]sdb.Record, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			out := filepath.Join(opts.outDir, names[i])
			res, rec, err := extractFile(gctx, svc, profile, in, out, opts, log)
			if err != nil {
				return err
			}
			results[i], records[i] = res, rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]sdb.Record, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			all = append(all, rec)
		}
	}
	allPath := filepath.Join(opts.outDir, allFile)
	if err := writeJSON(allPath, all); err != nil {
		return nil, err
	}
	log.Info("batch extraction finished",
		logging.Profile(profile),
		logging.Int("inputs", len(inputs)),
		logging.Int("records", len(all)))

	return &ExtractSummary{Profile: profile, OutDir: opts.outDir, All: allPath, Files: results}, nil
}

// extractFile extracts one input.  Empty documents are reported, not
// returned as errors, so that one bad conversion does not stop the batch.
func extractFile(ctx context.Context, svc *extraction.Service, profile, in, out string, opts *extractOptions, log logging.Logger) (FileResult, sdb.Record, error) {
	res := FileResult{Input: in, Output: out}

	if !opts.force {
		if rec, err := readRecord(out); err == nil {
			res.Reused = true
			fillResult(&res, rec, 0)
			return res, rec, nil
		}
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return res, nil, errors.Wrap(err, errors.ErrCodeDocumentFetch, "read input").WithDetail(in)
	}
	extracted, err := svc.Extract(ctx, profile, extraction.DecodeText(data))
	if errors.IsCode(err, errors.ErrCodeEmptyDocument) {
		log.Warn("skipping empty document", logging.String("file", in))
		res.Output = ""
		res.Error = "empty document"
		return res, nil, nil
	}
	if err != nil {
		return res, nil, err
	}

	rec := extracted.Record.Clone()
	if rec.String(sdb.FieldProducer) == "" {
		rec[sdb.FieldProducer] = profile
	}
	rec[sdb.FieldSource] = in
	if err := writeJSON(out, rec); err != nil {
		return res, nil, err
	}
	fillResult(&res, rec, len(extracted.Fallbacks))
	log.Debug("extracted file",
		logging.String("file", in),
		logging.Int("fallbacks", len(extracted.Fallbacks)))
	return res, rec, nil
}

func fillResult(res *FileResult, rec sdb.Record, fallbacks int) {
	res.Name = rec.String(sdb.FieldName)
	res.CAS = rec.String(sdb.FieldCAS)
	res.Signal = rec.String(sdb.FieldSignal)
	res.Hazards = rec.Strings(sdb.FieldHazards)
	res.Fallbacks = fallbacks
}

// collectInputs expands directories to their *.txt files.  Explicit files
// are taken as given.  The result is sorted and free of duplicates.
func collectInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "input not found").WithDetail(arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), textExt) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "scan input directory").WithDetail(arg)
		}
	}
	sort.Strings(out)
	return out, nil
}

// outputName maps "SDB Aceton.txt" to "Aceton.json".
func outputName(in string) string {
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	if trimmed := strings.TrimSpace(strings.TrimPrefix(stem, "SDB")); trimmed != "" {
		stem = trimmed
	}
	return stem + ".json"
}

// outputNames maps every input to its output file name.  Two inputs that
// would share an output, or an input that would overwrite the combined
// file, are rejected before anything is written.  Names are compared
// case-insensitively.
func outputNames(inputs []string) ([]string, error) {
	names := make([]string, len(inputs))
	owner := map[string]string{strings.ToLower(allFile): ""}
	for i, in := range inputs {
		name := outputName(in)
		key := strings.ToLower(name)
		if prev, taken := owner[key]; taken {
			if prev == "" {
				return nil, errors.InvalidParam(fmt.Sprintf("input %s would overwrite %s", in, allFile))
			}
			return nil, errors.InvalidParam(fmt.Sprintf("inputs %s and %s both write %s", prev, in, name))
		}
		owner[key] = in
		names[i] = name
	}
	return names, nil
}

func readRecord(path string) (sdb.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec sdb.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	if err := printJSON(&buf, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode JSON").WithDetail(path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "write JSON").WithDetail(path)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
