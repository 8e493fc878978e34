package profiles

import (
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fire"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/hazard"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// IDAcros identifies sheets in the Acros Organics layout.
const IDAcros = "acros"

// Acros returns the Acros Organics profile.
func Acros(nf fieldspec.NumberFormat) Definition {
	fields := []fieldspec.FieldSpec{
		typed(sdb.FieldReviewDate, `Überarbeitet am\s(\d{2}\-[a-z]{3}\-\d{4})\n`, fieldspec.GermanDate),
		text(sdb.FieldCAS, `\n(\d{1,7}\-\d{2}\-\d)\n`),
		{
			Name:      sdb.FieldEGNumber,
			Pattern:   `EEC No\.\s*?(\d+\n?\-\n?\d+\n?\-\n?\d+)(\s|\n)`,
			Options:   ci,
			Transform: fieldspec.StripNewlines,
			Fallback:  "",
		},
		fieldspec.Simple(sdb.FieldArticleName, "Produktname", ""),
		fieldspec.Simple(sdb.FieldName, "Produktname", ""),
		{
			Name:      sdb.FieldSynonyms,
			Pattern:   `Synonyme\s+?(.+)\n`,
			Options:   ci,
			Transform: fieldspec.SplitList(";"),
			Fallback:  []string{},
		},
		text(sdb.FieldArticleNumber, `(ACR\d{4,9})\n`),
		block(sdb.FieldHazardBlock, `2\.\s.+?\n(.+)3\.\s`),
		block(sdb.FieldFireBlock, `ABSCHNITT\s+?5.+?\n(.+)\nABSCHNITT\s+?6`),
		fieldspec.Simple(sdb.FieldSignal, "Signalwort", ""),
		fieldspec.Simple(sdb.FieldFormula, "Summenformel", ""),
		typed(sdb.FieldMolarMass, `Molekulargewicht\s+?(.+)`, fieldspec.Float(nf)),
		fieldspec.Simple(sdb.FieldState, "Aggregatzustand", ""),
		fieldspec.Simple(sdb.FieldColor, "Aussehen", ""),
		fieldspec.Simple(sdb.FieldOdor, "Geruch", ""),
		typed(sdb.FieldMelting, `Schmelzpunkt.+?\s(.+)\s*?°\s*?C`, fieldspec.TempRange(nf, "-", "–")),
		typed(sdb.FieldBoiling, `Siedepunkt.+?\s(.+)\s*?°\s*?C`, fieldspec.TempRange(nf, "-", "–")),
		typed(sdb.FieldDensity, `Spezifisches Gewicht\s+?(.+)\n`, fieldspec.LeadingFloatAt(nf, 20)),
		typed(sdb.FieldBulkDensity, `Schüttdichte\s*?:\s+?(.+)\s*?kg/m`, fieldspec.BulkDensity(nf)),
		typed(sdb.FieldSolubility, `Wasserlöslichkeit\s+?(.+)\s*?g/L\s*?\((\d+)\s*?°\s*?C\)`, fieldspec.Density(nf, 1, 2)),
		fieldspec.Simple(sdb.FieldKemler, "Kemler-Zahl", fieldspec.DefaultSeparator),
		typed(sdb.FieldStorageClass, `Lagerklasse.+?:\s*?(.+)\n`, fieldspec.Trimmed),
		typed(sdb.FieldAGW, `AGW:?\s*?(.+)\s*?mg/m`, fieldspec.Float(nf)),
		typed(sdb.FieldBGW, `BGW:?\s*?(.+)mg/l`, fieldspec.Float(nf)),
	}
	return Definition{
		ID:          IDAcros,
		Fields:      append(fields, sharedTail(nf)...),
		HazardStyle: hazard.HyphenToken,
		FireLayout: fire.Layout{
			Delimiter: "\n",
			Labels: fire.Labels{
				Suitable:   "geeignete löschmittel",
				Unsuitable: "aus sicherheitsgründen ungeeignete löschmittel",
				Misc:       "hinweise für die brandbekämpfung",
			},
			LabelLine: true,
		},
		NamePolicy: NamePolicy{FallbackSeparator: ","},
	}
}

//Personal.AI order the ending
