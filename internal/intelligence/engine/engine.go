// Package engine runs the extraction pipeline for one document:
//
//	profile rules → hazard and fire sections → pictograms → normalization → reference merge
//
// The engine holds only immutable state and is safe for concurrent use.
package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/normalizer"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/pictogram"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/profiles"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Result is the outcome of one extraction.
type Result struct {
	Profile      string     `json:"profile"`
	Record       sdb.Record `json:"record"`
	Fallbacks    []string   `json:"fallbacks,omitempty"`
	TableVersion string     `json:"table_version"`
	// CASValid reports whether the final CAS number carries a correct check
	// digit.  A record with an invalid or missing number is still returned.
	CASValid bool `json:"cas_valid"`
	// Referenced reports whether a reference entry was merged in.
	Referenced bool `json:"referenced"`
}

// Engine extracts records from document text.
type Engine struct {
	registry *profiles.Registry
	table    *pictogram.Table
	logger   logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable replaces the built-in pictogram table.
func WithTable(t *pictogram.Table) Option {
	return func(e *Engine) { e.table = t }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine resolving profiles from registry.
func New(registry *profiles.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		table:    pictogram.Default(),
		logger:   logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Profiles returns the identifiers the engine can extract with.
func (e *Engine) Profiles() []string { return e.registry.IDs() }

// TableVersion identifies the pictogram table in use.
func (e *Engine) TableVersion() string { return e.table.Version() }

// Extract runs the pipeline on text with the profile profileID.  The only
// error is errors.ErrCodeUnsupportedProfile; document content never fails an
// extraction.  A nil lookup skips the reference merge.
func (e *Engine) Extract(profileID, text string, lookup reference.Lookup) (*Result, error) {
	p, err := e.registry.Get(profileID)
	if err != nil {
		return nil, err
	}

	rec, report := p.ParseWithReport(PrepareText(text))
	rec[sdb.FieldSymbols] = e.table.Infer(rec.Strings(sdb.FieldHazards)).Sorted()
	rec = normalizer.Normalize(rec)

	_, referenced := reference.Resolve(rec, lookup)
	rec = reference.Merge(rec, lookup)
	if referenced && rec.Has(sdb.FieldSynonyms) {
		// Reference synonyms pass the same filter as extracted ones.
		rec[sdb.FieldSynonyms] = normalizer.Synonyms(rec.Strings(sdb.FieldSynonyms))
	}

	res := &Result{
		Profile:      p.ID(),
		Record:       rec,
		Fallbacks:    report.Fallbacks,
		TableVersion: e.table.Version(),
		CASValid:     reference.IsValidCAS(rec.String(sdb.FieldCAS)),
		Referenced:   referenced,
	}
	e.logger.Debug("extracted record",
		logging.Profile(p.ID()),
		logging.Int("fallbacks", len(report.Fallbacks)),
		logging.Bool("referenced", referenced),
	)
	return res, nil
}

// PrepareText brings converted text into the form the rules expect: Unicode
// NFC, so that "ü" is one code point, and '\n' line breaks only.
func PrepareText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

//Personal.AI order the ending
