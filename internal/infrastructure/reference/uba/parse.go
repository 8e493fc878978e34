// Package uba builds the substance reference snapshot from the public
// export of the German Umweltbundesamt (Rigoletto database).  The export is
// a zip of pipe separated CSV files keyed by KENN-NUMMER.
package uba

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// Export file names inside the archive.
const (
	FileCAS        = "Export_Cas_Nummern.csv"
	FileEINECS     = "Export_EG_Nummern.csv"
	FileSubstances = "Export_Stofftabelle.csv"
	FileSynonyms   = "Export_Synonyme.csv"
)

const (
	colNumber = "KENN-NUMMER"
	colCAS    = "CAS_NR"
	colEINECS = "EG_NR"
	colName   = "EINSTUFUNGSBEZEICHNUNG"
	colWGK    = "WGK"
	colSyn    = "NAME"

	// wgkNone marks substances that are not water hazardous.
	wgkNone = "nwg"
)

// DefaultMaxEntryBytes caps the decompressed size of a single export file.
const DefaultMaxEntryBytes int64 = 256 << 20

type parseOptions struct {
	maxEntryBytes int64
}

// ParseOption tunes ParseArchive.
type ParseOption func(*parseOptions)

// WithMaxEntryBytes caps the decompressed size of each export file.  Values
// below one keep DefaultMaxEntryBytes.
func WithMaxEntryBytes(n int64) ParseOption {
	return func(o *parseOptions) {
		if n > 0 {
			o.maxEntryBytes = n
		}
	}
}

// ParseArchive reads the export zip and returns one entry per KENN-NUMMER,
// ordered by number.  Missing files are tolerated; a missing CAS file simply
// yields entries that NewSnapshot later drops.
func ParseArchive(r io.ReaderAt, size int64, opts ...ParseOption) ([]reference.Entry, error) {
	o := parseOptions{maxEntryBytes: DefaultMaxEntryBytes}
	for _, opt := range opts {
		opt(&o)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotParseFailed, "open reference archive")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Base(f.Name)] = f
	}

	b := newBuilder()
	steps := []struct {
		name  string
		apply func(row map[string]string)
	}{
		{FileCAS, b.cas},
		{FileEINECS, b.einecs},
		{FileSubstances, b.substance},
		{FileSynonyms, b.synonym},
	}
	for _, step := range steps {
		f, ok := files[step.name]
		if !ok {
			continue
		}
		if err := readFile(f, o.maxEntryBytes, step.apply); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSnapshotParseFailed, "parse reference file").WithDetail(step.name)
		}
	}
	return b.entries(), nil
}

type builder struct {
	byNumber map[int]*reference.Entry
}

func newBuilder() *builder {
	return &builder{byNumber: make(map[int]*reference.Entry)}
}

func (b *builder) get(num int) *reference.Entry {
	e, ok := b.byNumber[num]
	if !ok {
		e = &reference.Entry{Number: num}
		b.byNumber[num] = e
	}
	return e
}

func (b *builder) cas(row map[string]string) {
	if num, ok := number(row); ok {
		b.get(num).CAS = strings.TrimSpace(row[colCAS])
	}
}

func (b *builder) einecs(row map[string]string) {
	if num, ok := number(row); ok {
		b.get(num).EINECS = strings.TrimSpace(row[colEINECS])
	}
}

func (b *builder) substance(row map[string]string) {
	num, ok := number(row)
	if !ok {
		return
	}
	e := b.get(num)
	e.Name = strings.TrimSpace(row[colName])
	e.WGK = parseWGK(row[colWGK])
}

func (b *builder) synonym(row map[string]string) {
	num, ok := number(row)
	if !ok {
		return
	}
	e := b.get(num)
	e.Synonyms = append(e.Synonyms, strings.TrimSpace(row[colSyn]))
}

func (b *builder) entries() []reference.Entry {
	nums := make([]int, 0, len(b.byNumber))
	for n := range b.byNumber {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]reference.Entry, 0, len(nums))
	for _, n := range nums {
		out = append(out, *b.byNumber[n])
	}
	return out
}

// number parses the row key.  Rows with a broken key are skipped by every
// file handler; the synonym export in particular carries continuation lines.
func number(row map[string]string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(row[colNumber]))
	return n, err == nil
}

// parseWGK maps the water hazard class column: "nwg" is class 0, digits are
// the class, anything else is unknown.
func parseWGK(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == wgkNone {
		zero := 0
		return &zero
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func readFile(f *zip.File, limit int64, apply func(map[string]string)) error {
	if f.UncompressedSize64 > uint64(limit) {
		return errEntryTooLarge(f.Name, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	// The header size is not trusted; the reader is capped as well.
	raw, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return err
	}
	if int64(len(raw)) > limit {
		return errEntryTooLarge(f.Name, limit)
	}
	return readRows(decode(raw), apply)
}

func errEntryTooLarge(name string, limit int64) error {
	return errors.New(errors.ErrCodeSnapshotParseFailed, "reference file too large").
		WithDetail(fmt.Sprintf("%s exceeds %d bytes", name, limit))
}

// decode returns raw as UTF-8.  Older exports are Windows-1252 encoded.
func decode(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return raw
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return out
}

func readRows(data []byte, apply func(map[string]string)) error {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = '|'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		apply(row)
	}
}

//Personal.AI order the ending
