package profiles

import (
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fire"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/hazard"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// IDCaelo identifies sheets in the Caesar & Loretz layout.
const IDCaelo = "caelo"

// bulletLayout is the fire section of the "·" bulleted sheets of Caelo and
// Merck.
var bulletLayout = fire.Layout{
	Delimiter: "·",
	Labels: fire.Labels{
		Suitable:   "geeignete löschmittel",
		Unsuitable: "ungeeignete löschmittel",
		Misc:       "sonstige hinweise",
	},
}

// Caelo returns the Caesar & Loretz profile.
func Caelo(nf fieldspec.NumberFormat) Definition {
	sep := fieldspec.DefaultSeparator
	fields := []fieldspec.FieldSpec{
		typed(sdb.FieldReviewDate, `überarbeitet.+?\s(\d{1,2})\.(\d{1,2})\.(\d{2,4})`, fieldspec.DayMonthYear),
		text(sdb.FieldCAS, `CAS.+\n(\d{1,7}\-\d{2}\-\d)\s`),
		text(sdb.FieldEGNumber, `EINECS-Nummer:\s*?(.+)\n`),
		{Name: sdb.FieldArticleName, Pattern: `Handelsname:\s*?\n(.+)\n`, Fallback: ""},
		text(sdb.FieldName, `CAS\-.+?\s+?Bezeichnung\s+?.+?\s+?(.+)\n`),
		{
			Name:      sdb.FieldSynonyms,
			Pattern:   `Handelsname:\s*?\n.+\n(.+)\n`,
			Options:   ci,
			Transform: fieldspec.SplitList(","),
			Fallback:  []string{},
		},
		text(sdb.FieldArticleNumber, `Angaben.+Nr\.\s+?(.+)\n`),
		block(sdb.FieldHazardBlock, `2\s+?Mögliche.+?\n(.+)3\s+?Zusammensetzung`),
		block(sdb.FieldFireBlock, `5\s+?.+?mpfung\n?(.+?)\n(?:ABSCHNITT\s+)?6\s+?Ma`),
		fieldspec.Simple(sdb.FieldSignal, "· Signalwort", sep),
		fieldspec.Simple(sdb.FieldFormula, "Summenformel", sep),
		typed(sdb.FieldMolarMass, `Molare Masse\s*?:\s+?(.+)\s*?g`, fieldspec.Float(nf)),
		fieldspec.Simple(sdb.FieldState, "· Form", sep),
		fieldspec.Simple(sdb.FieldColor, "· Farbe", sep),
		fieldspec.Simple(sdb.FieldOdor, "· Geruch", sep),
		typed(sdb.FieldMelting, `Schmelzpunkt.+?:\s+?(.+)\s*?°\s*?C`, fieldspec.TempRange(nf, "-", "–")),
		typed(sdb.FieldBoiling, `Siedepunkt.+?:\s+?(.+)\s*?°\s*?C`, fieldspec.TempRange(nf, "-", "–")),
		typed(sdb.FieldDensity, `Dichte.+?(\-?\d+?)\s*?°\s*?C\s+?(.+)\s*?g/cm`, fieldspec.Density(nf, 2, 1)),
		typed(sdb.FieldBulkDensity, `Schüttdichte\s*?:\s+?(.+)\s*?kg/m`, fieldspec.BulkDensity(nf)),
		typed(sdb.FieldSolubility, `Löslichkeit.+\n.*?Wasser.+?(\d+).+\s+?(.+)\s*?g/l`, fieldspec.Density(nf, 2, 1)),
		fieldspec.Simple(sdb.FieldKemler, "· Nummer zur Kennzeichnung der Gefahr", sep),
		typed(sdb.FieldStorageClass, `Lagerklasse.+?:\s*?(.+)\n`, fieldspec.Trimmed),
		typed(sdb.FieldAGW, `AGW:?\s*?(.+)\s*?mg/cbm`, fieldspec.Float(nf)),
		typed(sdb.FieldBGW, `BGW:?\s*?(.+)mg/l`, fieldspec.Float(nf)),
	}
	return Definition{
		ID:          IDCaelo,
		Fields:      append(fields, sharedTail(nf)...),
		HazardStyle: hazard.FieldToken,
		FireLayout:  bulletLayout,
		NamePolicy:  NamePolicy{FallbackSeparator: ",", StripQualifier: true},
	}
}

//Personal.AI order the ending
