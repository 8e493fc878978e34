package profiles

import (
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

var (
	ci       = fieldspec.Options{CaseInsensitive: true}
	ciDotAll = fieldspec.Options{CaseInsensitive: true, DotAll: true}
)

// text declares a case-insensitive rule returning the first group, or "".
func text(name, pattern string) fieldspec.FieldSpec {
	return fieldspec.FieldSpec{Name: name, Pattern: pattern, Options: ci, Fallback: ""}
}

// block declares a multi-line section capture.
func block(name, pattern string) fieldspec.FieldSpec {
	return fieldspec.FieldSpec{Name: name, Pattern: pattern, Options: ciDotAll, Fallback: ""}
}

// typed declares a case-insensitive rule with a transform and a nil fallback.
func typed(name, pattern string, t fieldspec.Transform) fieldspec.FieldSpec {
	return fieldspec.FieldSpec{Name: name, Pattern: pattern, Options: ci, Transform: t}
}

// sharedTail are the regulatory rules every built-in profile writes the
// same way.
func sharedTail(nf fieldspec.NumberFormat) []fieldspec.FieldSpec {
	return []fieldspec.FieldSpec{
		fieldspec.Simple(sdb.FieldBetrSichV, "(BetrSichV)", fieldspec.DefaultSeparator),
		typed(sdb.FieldWGK, `WGK\s+?(\d)`, fieldspec.Int),
		typed(sdb.FieldVwVwS, `VwVws:.+?(\d+)\n`, fieldspec.Int),
		typed(sdb.FieldIOELV, `IOELV.+?:\s*?(.+)\s*?mg/m`, fieldspec.Float(nf)),
	}
}

//Personal.AI order the ending
