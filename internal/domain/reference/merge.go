package reference

import (
	"strings"

	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Resolve finds the entry for rec.  A record carrying a CAS number is matched
// by that number only; a record without one is matched by its German name
// and then by its name as an English name.
func Resolve(rec sdb.Record, lookup Lookup) (Entry, bool) {
	if lookup == nil {
		return Entry{}, false
	}
	if cas := strings.TrimSpace(rec.String(sdb.FieldCAS)); cas != "" {
		return lookup.ByIdentifier(cas)
	}
	name := rec.String(sdb.FieldName)
	if e, ok := lookup.ByName(name); ok {
		return e, true
	}
	return lookup.ByForeignName(name)
}

// Merge corrects rec with its reference entry.  The entry's CAS number, EC
// number, names and water hazard class replace the record's wherever the
// entry has a value, and the entry's synonyms are added.  Without a match, or
// with a nil lookup, rec is returned unchanged.
func Merge(rec sdb.Record, lookup Lookup) sdb.Record {
	e, ok := Resolve(rec, lookup)
	if !ok {
		return rec
	}

	out := rec.Clone()
	if e.CAS != "" {
		out[sdb.FieldCAS] = e.CAS
	}
	if e.EINECS != "" {
		out[sdb.FieldEGNumber] = e.EINECS
	}
	if name := strings.TrimSpace(e.Name); name != "" {
		out[sdb.FieldName] = name
	}
	out[sdb.FieldNameEN] = strings.TrimSpace(e.NameEN)
	if e.WGK != nil {
		out[sdb.FieldWGK] = *e.WGK
	}

	syn := sdb.NewOrderedSet(out.Strings(sdb.FieldSynonyms)...)
	for _, s := range e.Synonyms {
		if s = strings.TrimSpace(s); s != "" {
			syn.Add(s)
		}
	}
	out[sdb.FieldSynonyms] = syn.Sorted()
	return out
}

//Personal.AI order the ending
