package fieldspec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// NumberFormat describes how numbers are written in a document family.
type NumberFormat struct {
	// Decimal is the decimal separator, replaced by '.' before parsing.
	Decimal rune
	// Strip lists characters trimmed from both ends of a number, such as the
	// approximation markers "~", "ca." and "<".
	Strip string
}

// DefaultNumberFormat matches German safety data sheets.
var DefaultNumberFormat = NumberFormat{Decimal: ',', Strip: "~ca. <>E"}

// ParseFloat parses s as a decimal number in this format.
func (nf NumberFormat) ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if nf.Strip != "" {
		s = strings.TrimSpace(strings.Trim(s, nf.Strip))
	}
	if nf.Decimal != 0 && nf.Decimal != '.' {
		s = strings.ReplaceAll(s, string(nf.Decimal), ".")
	}
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

// Text returns the first capture group unchanged.
func Text(m Match) (any, error) {
	return m.Group(1), nil
}

// Trimmed returns the first capture group without surrounding whitespace.
func Trimmed(m Match) (any, error) {
	return strings.TrimSpace(m.Group(1)), nil
}

// StripNewlines returns the first capture group with line breaks removed,
// joining identifiers that a PDF conversion wrapped.
func StripNewlines(m Match) (any, error) {
	return strings.ReplaceAll(m.Group(1), "\n", ""), nil
}

// Int parses the first capture group as an integer.
func Int(m Match) (any, error) {
	return strconv.Atoi(strings.TrimSpace(m.Group(1)))
}

// Float parses the first capture group as a number in nf.
func Float(nf NumberFormat) Transform {
	return func(m Match) (any, error) {
		return nf.ParseFloat(m.Group(1))
	}
}

// SplitList splits the first capture group on sep and trims every item.
func SplitList(sep string) Transform {
	return func(m Match) (any, error) {
		parts := strings.Split(m.Group(1), sep)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, nil
	}
}

// TempRange parses a temperature or a temperature range.  A value containing
// one of dashes is read as [from, to]; when that fails, for example because
// the dash is a minus sign, the whole value is read as a single temperature
// with an absent upper bound.  Dashes are tried in order and only the first
// one present is used.
func TempRange(nf NumberFormat, dashes ...string) Transform {
	if len(dashes) == 0 {
		dashes = []string{"-"}
	}
	return func(m Match) (any, error) {
		raw := m.Group(1)
		for _, d := range dashes {
			if !strings.Contains(raw, d) {
				continue
			}
			if p, ok := parseRange(nf, raw, d); ok {
				return p, nil
			}
			break
		}
		v, err := nf.ParseFloat(raw)
		if err != nil {
			return nil, err
		}
		return sdb.ValueOnly(v), nil
	}
}

func parseRange(nf NumberFormat, raw, dash string) (sdb.Pair, bool) {
	parts := strings.Split(raw, dash)
	if len(parts) != 2 {
		return sdb.Pair{}, false
	}
	from, err := nf.ParseFloat(parts[0])
	if err != nil {
		return sdb.Pair{}, false
	}
	to, err := nf.ParseFloat(parts[1])
	if err != nil {
		return sdb.Pair{}, false
	}
	return sdb.NewPair(from, to), true
}

// Density reads a quantity together with the integer reference temperature it
// was measured at.  valueGroup and refGroup are capture group indices.
func Density(nf NumberFormat, valueGroup, refGroup int) Transform {
	return func(m Match) (any, error) {
		ref, err := strconv.Atoi(strings.TrimSpace(m.Group(refGroup)))
		if err != nil {
			return nil, err
		}
		v, err := nf.ParseFloat(m.Group(valueGroup))
		if err != nil {
			return nil, err
		}
		return sdb.NewPair(v, float64(ref)), nil
	}
}

// LeadingFloat parses the first whitespace separated token of the first
// capture group, ignoring a trailing unit such as "g/mol".
func LeadingFloat(nf NumberFormat) Transform {
	return func(m Match) (any, error) {
		return leadingFloat(nf, m.Group(1))
	}
}

// LeadingFloatAt is like LeadingFloat and pairs the value with a fixed
// reference.
func LeadingFloatAt(nf NumberFormat, ref float64) Transform {
	return func(m Match) (any, error) {
		v, err := leadingFloat(nf, m.Group(1))
		if err != nil {
			return nil, err
		}
		return sdb.NewPair(v, ref), nil
	}
}

func leadingFloat(nf NumberFormat, s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("no value")
	}
	return nf.ParseFloat(fields[0])
}

// BulkDensity reads a bulk density.  For a range written "a bis b" the upper
// bound is used.
func BulkDensity(nf NumberFormat) Transform {
	return func(m Match) (any, error) {
		raw := m.Group(1)
		if i := strings.Index(strings.ToLower(raw), "bis"); i >= 0 {
			raw = raw[i+len("bis"):]
		}
		v, err := nf.ParseFloat(raw)
		if err != nil {
			return nil, err
		}
		return sdb.ValueOnly(v), nil
	}
}

// DayMonthYear builds a date from three capture groups holding day, month and
// year.  Two-digit years are read as 20yy.
func DayMonthYear(m Match) (any, error) {
	day, err := strconv.Atoi(m.Group(1))
	if err != nil {
		return nil, err
	}
	month, err := strconv.Atoi(m.Group(2))
	if err != nil {
		return nil, err
	}
	year, err := strconv.Atoi(m.Group(3))
	if err != nil {
		return nil, err
	}
	if len(m.Group(3)) <= 2 {
		year += 2000
	}
	return makeDate(year, month, day)
}

var germanMonths = map[string]int{
	"jan": 1, "feb": 2, "mär": 3, "mrz": 3, "mar": 3, "apr": 4, "mai": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "okt": 10, "nov": 11, "dez": 12,
}

// GermanDate parses the first capture group as "dd-Mon-yyyy" with German
// month abbreviations, e.g. "07-Okt-2019".
func GermanDate(m Match) (any, error) {
	parts := strings.Split(strings.TrimSpace(m.Group(1)), "-")
	if len(parts) != 3 {
		return nil, fmt.Errorf("date %q: want dd-Mon-yyyy", m.Group(1))
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, err
	}
	month, ok := germanMonths[strings.ToLower(parts[1])]
	if !ok {
		return nil, fmt.Errorf("date %q: unknown month", m.Group(1))
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}
	return makeDate(year, month, day)
}

func makeDate(year, month, day int) (time.Time, error) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("date %04d-%02d-%02d out of range", year, month, day)
	}
	return d, nil
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

//Personal.AI order the ending
