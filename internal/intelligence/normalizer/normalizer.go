// Package normalizer brings an extracted record into its published shape:
// statement codes without prefixes, pictograms as numbers, English signal
// words, dimensioned quantities as pairs, ISO dates and a CMR flag.
package normalizer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// DateLayout is the published review date format.
const DateLayout = "2006-01-02"

// minSynonymRunes is the shortest synonym kept; shorter ones are mostly
// abbreviations and fragments of a wrapped line.
const minSynonymRunes = 4

// cmrPrefixes are the hazard codes, without prefix, that mark a substance as
// carcinogenic, mutagenic or toxic for reproduction.  Variants such as
// "350I" and "360FD" match by prefix.
var cmrPrefixes = []string{"340", "341", "350", "351", "360", "361", "362", "372"}

var signalWords = map[string]string{
	"gefahr":  "danger",
	"achtung": "warning",
}

var (
	formulaUnitRe = regexp.MustCompile(`\s*(\([^()]*\)|g\s*/\s*mol)\s*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Normalize returns the normalized form of rec.  rec is not modified.
// Normalize is idempotent.
func Normalize(rec sdb.Record) sdb.Record {
	out := rec.Clone()

	hazards := stripPrefix(out.Strings(sdb.FieldHazards), "H")
	out[sdb.FieldHazards] = hazards
	out[sdb.FieldPrecautions] = stripPrefix(out.Strings(sdb.FieldPrecautions), "P")
	out[sdb.FieldSupplemental] = stripPrefix(out.Strings(sdb.FieldSupplemental), "EUH")
	out[sdb.FieldCMR] = isCMR(hazards)
	out[sdb.FieldSymbols] = symbolNumbers(out[sdb.FieldSymbols])

	if w, ok := signalWords[strings.ToLower(strings.TrimSpace(out.String(sdb.FieldSignal)))]; ok {
		out[sdb.FieldSignal] = w
	}

	for _, key := range sdb.QuantityFields {
		if _, ok := out[key].(sdb.Pair); !ok {
			out[key] = sdb.Pair{}
		}
	}

	if f, ok := out[sdb.FieldFormula].(string); ok {
		out[sdb.FieldFormula] = Formula(f)
	}

	switch d := out[sdb.FieldReviewDate].(type) {
	case time.Time:
		out[sdb.FieldReviewDate] = d.Format(DateLayout)
	case string:
		if d == "" {
			out[sdb.FieldReviewDate] = nil
		}
	}

	out[sdb.FieldSynonyms] = Synonyms(out.Strings(sdb.FieldSynonyms))

	if !truthy(out[sdb.FieldVwVwS]) {
		out[sdb.FieldVwVwS] = nil
	}

	for _, key := range []string{sdb.FieldCAS, sdb.FieldEGNumber, sdb.FieldName} {
		if s, ok := out[key].(string); ok {
			out[key] = strings.TrimSpace(s)
		}
	}
	if _, ok := out[sdb.FieldNameEN].(string); !ok {
		out[sdb.FieldNameEN] = ""
	}

	delete(out, sdb.FieldSource)
	return out
}

// stripPrefix removes prefix from every code and returns the codes sorted
// and without duplicates.  Each part of a combined code such as "P301+P310"
// loses its prefix.
func stripPrefix(codes []string, prefix string) []string {
	set := sdb.NewOrderedSet()
	for _, c := range codes {
		parts := strings.Split(c, "+")
		for i, p := range parts {
			parts[i] = strings.TrimPrefix(strings.TrimSpace(p), prefix)
		}
		if c = strings.Join(parts, "+"); c != "" {
			set.Add(c)
		}
	}
	return set.Sorted()
}

func isCMR(hazards []string) bool {
	for _, h := range hazards {
		for _, p := range cmrPrefixes {
			if strings.HasPrefix(h, p) {
				return true
			}
		}
	}
	return false
}

// symbolNumbers turns pictogram identifiers such as "GHS02" into their
// numbers.  Values that are already numbers are kept.
func symbolNumbers(v any) []int {
	var out []int
	add := func(n int) {
		for _, x := range out {
			if x == n {
				return
			}
		}
		out = append(out, n)
	}
	switch s := v.(type) {
	case []string:
		for _, sym := range s {
			if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(sym), "GHS")); err == nil {
				add(n)
			}
		}
	case []int:
		for _, n := range s {
			add(n)
		}
	}
	if out == nil {
		return []int{}
	}
	sort.Ints(out)
	return out
}

// Formula removes the blanks and a trailing unit or annotation from a
// molecular formula, e.g. "C2 H6 O (Hill)" becomes "C2H6O".
func Formula(f string) string {
	f = formulaUnitRe.ReplaceAllString(strings.TrimSpace(f), "")
	return spaceRe.ReplaceAllString(f, "")
}

// Synonyms trims, filters, deduplicates and sorts synonyms.
func Synonyms(in []string) []string {
	set := sdb.NewOrderedSet()
	for _, s := range in {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) < minSynonymRunes {
			continue
		}
		set.Add(s)
	}
	return set.Sorted()
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case bool:
		return t
	}
	return true
}

//Personal.AI order the ending
