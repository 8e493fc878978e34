// Package profiles holds the per-manufacturer extraction rule sets.
//
// A Profile turns the plain text of one safety data sheet into a raw
// sdb.Record: every declared field is extracted, the hazard and fire
// sections are parsed into their structured fields, and a missing substance
// name is derived from the article name.  Profiles are compiled once and are
// safe for concurrent use.
package profiles

import (
	"strings"

	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fire"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/hazard"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// NamePolicy controls how the substance name is settled after extraction.
type NamePolicy struct {
	// FallbackSeparator cuts the first part of the article name when no
	// name was found.  An empty separator splits on whitespace.
	FallbackSeparator string
	// StripQualifier cuts an extracted name at its first comma, dropping
	// qualifiers such as ", wasserfrei".
	StripQualifier bool
}

// Definition declares a profile.
type Definition struct {
	ID          string
	Fields      []fieldspec.FieldSpec
	HazardStyle hazard.TokenStyle
	FireLayout  fire.Layout
	NamePolicy  NamePolicy
}

// Profile is a compiled Definition.
type Profile struct {
	id          string
	fields      []*fieldspec.Field
	hazardStyle hazard.TokenStyle
	fireLayout  fire.Layout
	namePolicy  NamePolicy
}

// Report describes how a record was obtained.
type Report struct {
	// Fallbacks lists the fields whose value is the rule's fallback, in
	// declaration order.
	Fallbacks []string
}

// New compiles def.  Field names must be unique within a profile.
func New(def Definition) (*Profile, error) {
	id := strings.ToLower(strings.TrimSpace(def.ID))
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidRule, "profile id is required")
	}
	p := &Profile{
		id:          id,
		fields:      make([]*fieldspec.Field, 0, len(def.Fields)),
		hazardStyle: def.HazardStyle,
		fireLayout:  def.FireLayout,
		namePolicy:  def.NamePolicy,
	}
	seen := make(map[string]struct{}, len(def.Fields))
	for _, spec := range def.Fields {
		if _, dup := seen[spec.Name]; dup {
			return nil, errors.New(errors.ErrCodeDuplicateField, "field declared twice").
				WithDetail("profile=" + id + " field=" + spec.Name)
		}
		seen[spec.Name] = struct{}{}
		f, err := fieldspec.Compile(spec)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "compile profile "+id)
		}
		p.fields = append(p.fields, f)
	}
	return p, nil
}

// MustNew is like New but panics on an invalid definition.
func MustNew(def Definition) *Profile {
	p, err := New(def)
	if err != nil {
		panic(err)
	}
	return p
}

// ID returns the profile identifier.
func (p *Profile) ID() string { return p.id }

// FieldNames returns the declared field names in declaration order.
func (p *Profile) FieldNames() []string {
	out := make([]string, len(p.fields))
	for i, f := range p.fields {
		out[i] = f.Name()
	}
	return out
}

// Parse extracts a raw record from text.
func (p *Profile) Parse(text string) sdb.Record {
	rec, _ := p.ParseWithReport(text)
	return rec
}

// ParseWithReport is like Parse and also reports which fields fell back.
func (p *Profile) ParseWithReport(text string) (sdb.Record, Report) {
	rec := make(sdb.Record, len(p.fields)+6)
	var report Report
	for _, f := range p.fields {
		v, ok := f.ExtractMatch(text)
		if !ok {
			report.Fallbacks = append(report.Fallbacks, f.Name())
		}
		rec[f.Name()] = v
	}

	codes := hazard.Parse(rec.String(sdb.FieldHazardBlock), p.hazardStyle)
	delete(rec, sdb.FieldHazardBlock)
	rec[sdb.FieldHazards] = codes.Hazards.Sorted()
	rec[sdb.FieldPrecautions] = codes.Precautions.Sorted()
	rec[sdb.FieldSupplemental] = codes.Supplemental.Sorted()

	agents := fire.Parse(rec.String(sdb.FieldFireBlock), p.fireLayout)
	delete(rec, sdb.FieldFireBlock)
	rec[sdb.FieldExtAgents] = agents.Suitable
	rec[sdb.FieldNoExtAgents] = agents.Unsuitable
	rec[sdb.FieldFireMisc] = agents.Misc

	rec[sdb.FieldName] = p.settleName(rec.String(sdb.FieldName), rec.String(sdb.FieldArticleName))
	return rec, report
}

func (p *Profile) settleName(name, articleName string) string {
	if strings.TrimSpace(name) == "" {
		return fieldspec.Capitalize(firstPart(articleName, p.namePolicy.FallbackSeparator))
	}
	if p.namePolicy.StripQualifier {
		if before, _, ok := strings.Cut(name, ","); ok {
			return strings.TrimSpace(before)
		}
	}
	return name
}

func firstPart(s, sep string) string {
	if sep == "" {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	}
	before, _, _ := strings.Cut(s, sep)
	return before
}

//Personal.AI order the ending
