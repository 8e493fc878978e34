// Package sdb defines the record schema shared by the extraction engine, the
// reference merge, the stores and the public API.
package sdb

import (
	"encoding/json"
	"sort"
)

// Field keys of an extracted record.  The schema is shared by every profile;
// profiles differ only in how they find each value.
const (
	FieldReviewDate    = "review_date"
	FieldCAS           = "cas"
	FieldEGNumber      = "eg_num"
	FieldArticleName   = "art_name"
	FieldName          = "name"
	FieldNameEN        = "name_en"
	FieldSynonyms      = "synonyms"
	FieldArticleNumber = "art_num"
	FieldSignal        = "signal"
	FieldHazards       = "h"
	FieldPrecautions   = "p"
	FieldSupplemental  = "euh"
	FieldSymbols       = "symbols"
	FieldFormula       = "formula"
	FieldMolarMass     = "molmass"
	FieldState         = "state"
	FieldColor         = "color"
	FieldOdor          = "odor"
	FieldMelting       = "melting"
	FieldBoiling       = "boiling"
	FieldDensity       = "density"
	FieldBulkDensity   = "bulk_density"
	FieldSolubility    = "solubility_h2o"
	FieldKemler        = "kemler"
	FieldBetrSichV     = "betrsichv"
	FieldStorageClass  = "lgk_trgs510"
	FieldWGK           = "wgk"
	FieldVwVwS         = "vwvws"
	FieldAGW           = "agw"
	FieldBGW           = "bgw"
	FieldIOELV         = "ioelv"
	FieldExtAgents     = "ext_agents"
	FieldNoExtAgents   = "no_ext_agents"
	FieldFireMisc      = "fire_misc"
	FieldCMR           = "cmr"
	FieldProducer      = "producer"
	FieldSource        = "source"

	// Raw blocks captured by a profile and consumed before the record is
	// returned.
	FieldHazardBlock = "hazards_raw"
	FieldFireBlock   = "fire"
)

// QuantityFields lists the dimensioned fields that always carry a Pair in a
// normalized record.
var QuantityFields = []string{FieldMelting, FieldBoiling, FieldDensity, FieldBulkDensity, FieldSolubility}

// Record maps field keys to extracted values: string, float64, int,
// time.Time, []string, []int, Pair, bool or nil.
type Record map[string]any

// String returns the value under key when it is a string, otherwise "".
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Strings returns the value under key when it is a []string, otherwise nil.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Pair returns the value under key when it is a Pair.
func (r Record) Pair(key string) (Pair, bool) {
	p, ok := r[key].(Pair)
	return p, ok
}

// Has reports whether key is present, even with a nil value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Keys returns the record's keys in ascending order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of r.  Slices are copied so that the clone can be
// modified without touching r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case []string:
			out[k] = append([]string(nil), t...)
		case []int:
			out[k] = append([]int(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// JSON encodes the record with sorted keys.
func (r Record) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(r))
}

// ─────────────────────────────────────────────────────────────────────────────
// Pair
// ─────────────────────────────────────────────────────────────────────────────

// Pair is a dimensioned quantity [value, reference], for example a density
// and the temperature it was measured at, or a melting range [from, to].
// Either element may be absent and encodes as JSON null.
type Pair [2]*float64

// NewPair builds a Pair with both elements set.
func NewPair(value, ref float64) Pair {
	return Pair{&value, &ref}
}

// ValueOnly builds a Pair whose reference is absent.
func ValueOnly(value float64) Pair {
	return Pair{&value, nil}
}

// Value returns the first element and whether it is present.
func (p Pair) Value() (float64, bool) {
	if p[0] == nil {
		return 0, false
	}
	return *p[0], true
}

// Ref returns the second element and whether it is present.
func (p Pair) Ref() (float64, bool) {
	if p[1] == nil {
		return 0, false
	}
	return *p[1], true
}

// IsEmpty reports whether neither element is present.
func (p Pair) IsEmpty() bool {
	return p[0] == nil && p[1] == nil
}

//Personal.AI order the ending
