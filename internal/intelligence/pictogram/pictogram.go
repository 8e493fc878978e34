// Package pictogram infers GHS pictograms from hazard statement codes.
package pictogram

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

//go:embed ghs_table.yaml
var defaultTable []byte

var symbolRe = regexp.MustCompile(`^GHS0[1-9]$`)

// Row assigns pictograms to hazard codes.
type Row struct {
	Symbols []string `yaml:"symbols"`
	Codes   []string `yaml:"codes"`
}

type tableFile struct {
	Version string `yaml:"version"`
	Rows    []Row  `yaml:"rows"`
}

// Table maps hazard codes to pictograms.  It is immutable after Parse and
// safe for concurrent use.
type Table struct {
	version string
	rows    []Row
	index   map[string][]string
}

// Parse reads a table in YAML form.  Codes are matched case-insensitively.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRule, "pictogram table is not valid YAML")
	}
	if f.Version == "" {
		return nil, errors.New(errors.ErrCodeInvalidRule, "pictogram table has no version")
	}
	t := &Table{version: f.Version, rows: f.Rows, index: make(map[string][]string)}
	for i, row := range f.Rows {
		for _, s := range row.Symbols {
			if !symbolRe.MatchString(s) {
				return nil, errors.New(errors.ErrCodeInvalidRule, "pictogram table has an invalid symbol").
					WithDetail(fmt.Sprintf("row=%d symbol=%s", i, s))
			}
		}
		for _, c := range row.Codes {
			key := strings.ToUpper(strings.TrimSpace(c))
			t.index[key] = append(t.index[key], row.Symbols...)
		}
	}
	return t, nil
}

// Load reads a table from r.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRule, "read pictogram table")
	}
	return Parse(data)
}

var builtin = mustParse(defaultTable)

func mustParse(data []byte) *Table {
	t, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the table compiled into the binary.
func Default() *Table { return builtin }

// Version identifies the table's content.
func (t *Table) Version() string { return t.version }

// Rows returns the table's rows in file order.
func (t *Table) Rows() []Row { return t.rows }

// Codes returns every hazard code the table knows, sorted.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.index))
	for c := range t.index {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Infer returns the union of the pictograms of every known code.  Unknown
// codes contribute nothing.
func (t *Table) Infer(codes []string) *sdb.OrderedSet {
	out := sdb.NewOrderedSet()
	for _, c := range codes {
		for _, s := range t.index[strings.ToUpper(strings.TrimSpace(c))] {
			out.Add(s)
		}
	}
	return out
}

//Personal.AI order the ending
