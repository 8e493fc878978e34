// Package hazard scans the hazard identification section of a safety data
// sheet for hazard (H), precautionary (P) and supplemental (EUH) statement
// codes.
package hazard

import (
	"strings"
	"unicode"

	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// TokenStyle selects how the code is cut out of a statement line.
type TokenStyle int

const (
	// HyphenToken takes the text before the first '-', as in
	// "H225 - Flüssigkeit und Dampf leicht entzündbar".
	HyphenToken TokenStyle = iota
	// FieldToken takes the first whitespace separated token, as in
	// "H225 Flüssigkeit und Dampf leicht entzündbar."
	FieldToken
)

// String implements fmt.Stringer.
func (s TokenStyle) String() string {
	switch s {
	case HyphenToken:
		return "hyphen"
	case FieldToken:
		return "field"
	default:
		return "unknown"
	}
}

// Class is the statement class of a code.
type Class string

const (
	ClassHazard       Class = "H"
	ClassPrecaution   Class = "P"
	ClassSupplemental Class = "EUH"
)

// CodeSet holds the statement codes found in a block, prefixes included.
type CodeSet struct {
	Hazards      *sdb.OrderedSet
	Precautions  *sdb.OrderedSet
	Supplemental *sdb.OrderedSet
}

// NewCodeSet returns an empty CodeSet.
func NewCodeSet() CodeSet {
	return CodeSet{
		Hazards:      sdb.NewOrderedSet(),
		Precautions:  sdb.NewOrderedSet(),
		Supplemental: sdb.NewOrderedSet(),
	}
}

// minLineRunes is the shortest trimmed line that can hold a code.
const minLineRunes = 4

// Parse scans block line by line.  A line is a statement when, after
// trimming, its first letter is H or P followed by a digit, or it starts with
// "EU" and has a digit at its fourth position.  Every other line is ignored.
// Codes are upper-cased and collected without duplicates.
func Parse(block string, style TokenStyle) CodeSet {
	cs := NewCodeSet()
	for _, line := range strings.Split(block, "\n") {
		l := strings.TrimSpace(line)
		r := []rune(l)
		if len(r) < minLineRunes {
			continue
		}
		switch {
		case r[0] == 'H' && unicode.IsDigit(r[1]):
			addAll(cs.Hazards, leadingCodes(l, ClassHazard, style))
		case r[0] == 'P' && unicode.IsDigit(r[1]):
			addAll(cs.Precautions, leadingCodes(l, ClassPrecaution, style))
		case r[0] == 'E' && r[1] == 'U' && unicode.IsDigit(r[3]):
			addAll(cs.Supplemental, leadingCodes(l, ClassSupplemental, style))
		}
	}
	return cs
}

func addAll(s *sdb.OrderedSet, codes []string) {
	for _, c := range codes {
		if c != "" {
			s.Add(strings.ToUpper(c))
		}
	}
}

// leadingCodes cuts the code out of a statement line.  A chain of codes
// joined by hyphens, such as "H350-H340", yields every code of the chain.
func leadingCodes(line string, class Class, style TokenStyle) []string {
	if style == FieldToken {
		first := strings.Fields(line)[0]
		segments := strings.Split(first, "-")
		if !allCodes(segments, class) {
			return []string{first}
		}
		return segments
	}

	// HyphenToken: the code ends at the first hyphen or blank.  Further
	// segments belong to the chain only while each segment is a bare code.
	segments := strings.Split(line, "-")
	tok, bare := segmentToken(segments[0], class)
	codes := []string{tok}
	for _, seg := range segments[1:] {
		if !bare {
			break
		}
		tok, bare = segmentToken(seg, class)
		if !isCode(tok, class) && !isCombined(tok, class) {
			break
		}
		codes = append(codes, tok)
	}
	return codes
}

// segmentToken returns the code at the start of seg and whether seg holds
// nothing else.  Combined precautionary statements lose their inner blanks,
// so that "P301 + P310" becomes "P301+P310".
func segmentToken(seg string, class Class) (string, bool) {
	seg = strings.TrimSpace(seg)
	if class == ClassPrecaution {
		if compact := strings.ReplaceAll(seg, " ", ""); isCombined(compact, class) {
			return compact, true
		}
	}
	fields := strings.Fields(seg)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], len(fields) == 1
}

// isCombined reports whether s is one or more codes of class joined by '+'.
func isCombined(s string, class Class) bool {
	return allCodes(strings.Split(s, "+"), class)
}

func allCodes(segs []string, class Class) bool {
	for _, s := range segs {
		if !isCode(s, class) {
			return false
		}
	}
	return true
}

// isCode reports whether s is a single code of class, e.g. "H350i" or
// "EUH066".
func isCode(s string, class Class) bool {
	rest, ok := strings.CutPrefix(s, string(class))
	if !ok || len(rest) < 3 {
		return false
	}
	for i, r := range rest {
		if i < 3 {
			if r < '0' || r > '9' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

//Personal.AI order the ending
