// Package reference models the substance reference table used to correct and
// enrich extracted records: an immutable, versioned snapshot indexed by CAS
// number, German name and English name.
package reference

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// Entry is one substance of the reference table.
type Entry struct {
	Number   int      `json:"kenn_nummer,omitempty"`
	CAS      string   `json:"cas"`
	EINECS   string   `json:"einecs,omitempty"`
	Name     string   `json:"name,omitempty"`
	NameEN   string   `json:"name_en,omitempty"`
	WGK      *int     `json:"wgk"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// Lookup resolves reference entries.  Implementations must be safe for
// concurrent use.
type Lookup interface {
	// ByIdentifier matches a CAS number exactly.
	ByIdentifier(cas string) (Entry, bool)
	// ByName matches a German substance name case-insensitively.
	ByName(name string) (Entry, bool)
	// ByForeignName matches an English substance name case-insensitively.
	ByForeignName(name string) (Entry, bool)
}

// Snapshot is an immutable reference table.  Build it with NewSnapshot or
// DecodeSnapshot and never modify it afterwards; readers share it without
// locking.
type Snapshot struct {
	Version   string            `json:"version"`
	BuiltAt   time.Time         `json:"built_at"`
	Source    string            `json:"source,omitempty"`
	CASAll    map[string]Entry  `json:"cas_all"`
	NameCAS   map[string]string `json:"name_cas"`
	NameENCAS map[string]string `json:"name_en_cas"`
	NameDeEn  map[string]string `json:"name_de_en"`
}

var _ Lookup = (*Snapshot)(nil)

// NewSnapshot indexes entries.  Entries without a CAS number are skipped;
// for duplicate CAS numbers the last entry wins.
func NewSnapshot(entries []Entry, builtAt time.Time, source string) *Snapshot {
	s := &Snapshot{
		BuiltAt: builtAt.UTC(),
		Source:  source,
		CASAll:  make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		e.CAS = strings.TrimSpace(e.CAS)
		if e.CAS == "" {
			continue
		}
		s.CASAll[e.CAS] = e
	}
	s.reindex()
	s.Version = fmt.Sprintf("%s-%d", s.BuiltAt.Format("20060102T150405Z"), len(s.CASAll))
	return s
}

// EmptySnapshot returns a snapshot that matches nothing.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil, time.Time{}, "")
}

func (s *Snapshot) reindex() {
	s.NameCAS = make(map[string]string, len(s.CASAll))
	s.NameENCAS = make(map[string]string, len(s.CASAll))
	s.NameDeEn = make(map[string]string, len(s.CASAll))
	for cas, e := range s.CASAll {
		de := nameKey(e.Name)
		en := nameKey(e.NameEN)
		if de != "" {
			s.NameCAS[de] = cas
		}
		if en != "" {
			s.NameENCAS[en] = cas
		}
		if de != "" && en != "" {
			s.NameDeEn[de] = en
		}
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ByIdentifier implements Lookup.
func (s *Snapshot) ByIdentifier(cas string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.CASAll[cas]
	return e, ok
}

// ByName implements Lookup.
func (s *Snapshot) ByName(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	return s.byIndex(s.NameCAS, name)
}

// ByForeignName implements Lookup.
func (s *Snapshot) ByForeignName(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	return s.byIndex(s.NameENCAS, name)
}

func (s *Snapshot) byIndex(idx map[string]string, name string) (Entry, bool) {
	key := nameKey(name)
	if key == "" {
		return Entry{}, false
	}
	cas, ok := idx[key]
	if !ok {
		return Entry{}, false
	}
	return s.ByIdentifier(cas)
}

// Translate returns the English name recorded for a German name.
func (s *Snapshot) Translate(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	en, ok := s.NameDeEn[nameKey(name)]
	return en, ok
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.CASAll)
}

// Stale reports whether the snapshot is older than maxAge at now.
func (s *Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return s == nil || s.BuiltAt.IsZero() || now.Sub(s.BuiltAt) > maxAge
}

// Encode writes the snapshot as JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode reference snapshot")
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by Encode.  The name indexes are
// rebuilt from the entries.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotParseFailed, "decode reference snapshot")
	}
	if s.CASAll == nil {
		s.CASAll = make(map[string]Entry)
	}
	s.reindex()
	return &s, nil
}

//Personal.AI order the ending
