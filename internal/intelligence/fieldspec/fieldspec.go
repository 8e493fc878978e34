// Package fieldspec compiles declarative field extraction rules into matchers
// that pull one value each out of a safety data sheet's plain text.
//
// A rule is a pattern with exactly one job: locate the value.  Turning the
// captured text into a typed value is the rule's Transform.  When the pattern
// does not match, or the transform rejects what it captured, the rule yields
// its Fallback; extraction never fails on document content.
package fieldspec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// DefaultSeparator is the label/value separator used by Simple when none is
// given.
const DefaultSeparator = ":"

// Options are the matching flags of a rule.
type Options struct {
	// CaseInsensitive matches letters regardless of case.
	CaseInsensitive bool
	// DotAll lets '.' match line breaks.
	DotAll bool
}

func (o Options) prefix() string {
	var flags string
	if o.CaseInsensitive {
		flags += "i"
	}
	if o.DotAll {
		flags += "s"
	}
	if flags == "" {
		return ""
	}
	return "(?" + flags + ")"
}

// Match exposes the capture groups of a successful match.  Group 0 is the
// whole match.
type Match struct {
	groups []string
}

// NewMatch builds a Match from capture group texts, group 0 first.
func NewMatch(groups ...string) Match {
	return Match{groups: groups}
}

// Group returns capture group i, or "" when it does not exist or did not
// participate in the match.
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// NumGroups returns the number of capture groups, not counting group 0.
func (m Match) NumGroups() int {
	if len(m.groups) == 0 {
		return 0
	}
	return len(m.groups) - 1
}

// Transform converts a match into the field's value.  A returned error makes
// the rule yield its fallback.
type Transform func(m Match) (any, error)

// FieldSpec declares how one field is found in a document.
type FieldSpec struct {
	Name      string
	Pattern   string
	Options   Options
	Transform Transform
	Fallback  any
}

// Field is a compiled FieldSpec.  It is immutable and safe for concurrent use.
type Field struct {
	spec FieldSpec
	re   *regexp.Regexp
}

// Compile validates spec and compiles its pattern.  A missing transform
// defaults to the text of the first capture group.
func Compile(spec FieldSpec) (*Field, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New(errors.ErrCodeInvalidRule, "field name is required")
	}
	if spec.Pattern == "" {
		return nil, errors.New(errors.ErrCodeInvalidRule, "pattern is required").
			WithDetail("field=" + spec.Name)
	}
	re, err := regexp.Compile(spec.Options.prefix() + spec.Pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRule, "pattern does not compile").
			WithDetail("field=" + spec.Name)
	}
	if re.NumSubexp() < 1 {
		return nil, errors.New(errors.ErrCodeInvalidRule, "pattern has no capture group").
			WithDetail("field=" + spec.Name)
	}
	if spec.Transform == nil {
		spec.Transform = Text
	}
	return &Field{spec: spec, re: re}, nil
}

// MustCompile is like Compile but panics on an invalid rule.  It is meant for
// rule tables built into the binary.
func MustCompile(spec FieldSpec) *Field {
	f, err := Compile(spec)
	if err != nil {
		panic(fmt.Sprintf("fieldspec: %v", err))
	}
	return f
}

// Name returns the field's name.
func (f *Field) Name() string { return f.spec.Name }

// Pattern returns the compiled expression including its flag prefix.
func (f *Field) Pattern() string { return f.re.String() }

// Fallback returns the value yielded when extraction does not succeed.
func (f *Field) Fallback() any { return f.spec.Fallback }

// Extract returns the field's value in text, or its fallback.
func (f *Field) Extract(text string) any {
	v, _ := f.ExtractMatch(text)
	return v
}

// ExtractMatch is like Extract and also reports whether the value came from
// the document rather than from the fallback.  Only the first match is used.
func (f *Field) ExtractMatch(text string) (any, bool) {
	groups := f.re.FindStringSubmatch(text)
	if groups == nil {
		return f.spec.Fallback, false
	}
	v, err := f.spec.Transform(Match{groups: groups})
	if err != nil {
		return f.spec.Fallback, false
	}
	return v, true
}

// Simple builds the common "newline, label, separator, value to end of line"
// rule.  The label is matched literally and case-insensitively, and the
// captured value is returned as is; the fallback is "".  An empty sep means
// the value follows the label after whitespace only.
func Simple(name, label, sep string) FieldSpec {
	return FieldSpec{
		Name:     name,
		Pattern:  `\n` + regexp.QuoteMeta(label) + regexp.QuoteMeta(sep) + `\s+?(.+)\n`,
		Options:  Options{CaseInsensitive: true},
		Fallback: "",
	}
}

//Personal.AI order the ending
