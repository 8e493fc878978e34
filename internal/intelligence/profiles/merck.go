package profiles

import (
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/hazard"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// IDMerck identifies sheets in the Merck layout.
const IDMerck = "merck"

// Merck returns the Merck profile.  Merck sheets list no synonyms.
func Merck(nf fieldspec.NumberFormat) Definition {
	sep := fieldspec.DefaultSeparator
	fields := []fieldspec.FieldSpec{
		typed(sdb.FieldReviewDate, `überarbeitet.+?am\s+?(\d{1,2})\.(\d{1,2})\.(\d{2,4})`, fieldspec.DayMonthYear),
		text(sdb.FieldCAS, `CAS.Nr\.\s+?(\d{1,7}\-\d{2}\-\d)`),
		text(sdb.FieldEGNumber, `EG.Nr\.\s+?(.+)`),
		fieldspec.Simple(sdb.FieldArticleName, "Artikelbezeichnung", ""),
		text(sdb.FieldName, `CAS\-.+?\s+?Bezeichnung\s+?.+?\s+?(.+)\n`),
		fieldspec.Simple(sdb.FieldArticleNumber, "Artikelnummer", sep),
		block(sdb.FieldHazardBlock, `2\.2\s+?Kennzeichnungselemente\n?(.+)2\.3\s+?Sonstige`),
		block(sdb.FieldFireBlock, `5\s+?.+?mpfung\n?(.+?)\n(?:ABSCHNITT\s+)?6\s+?Ma`),
		text(sdb.FieldSignal, `Signalwort\s+?(.+)\n`),
		fieldspec.Simple(sdb.FieldFormula, "Summenformel", sep),
		typed(sdb.FieldMolarMass, `Molare.+?:\s+?(.+)\n`, fieldspec.LeadingFloat(nf)),
		fieldspec.Simple(sdb.FieldState, "Form", sep),
		fieldspec.Simple(sdb.FieldColor, "Farbe", sep),
		fieldspec.Simple(sdb.FieldOdor, "Geruch", sep),
		typed(sdb.FieldMelting, `Schmelzpunkt.+?:\s+?(.+)\s*?°C`, fieldspec.TempRange(nf, "-")),
		typed(sdb.FieldBoiling, `Siedepunkt.+?:\s+?(.+)\s*?°C`, fieldspec.TempRange(nf, "-")),
		typed(sdb.FieldDensity, `Dichte.+?(\-?\d+?)\s*?°C:\s+?(.+)\s*?g/cm`, fieldspec.Density(nf, 2, 1)),
		typed(sdb.FieldBulkDensity, `Schüttdichte.+?(\-?\d+?)\s*?°C:\s+?(.+)\s*?kg/m`, fieldspec.Density(nf, 2, 1)),
		typed(sdb.FieldSolubility, `Löslichkeit.+\n.*?Wasser.+?(\d+).+:\s+?(.+)\s*?g/l`, fieldspec.Density(nf, 2, 1)),
		fieldspec.Simple(sdb.FieldKemler, "Kemler-Zahl", sep),
		text(sdb.FieldStorageClass, `TRGS\s+?510:\n(.+?)\s`),
		typed(sdb.FieldAGW, `AGW.+?:\s*?(.+)\s*?mg/m`, fieldspec.Float(nf)),
		typed(sdb.FieldBGW, `BGW.+?([0-9.,]+)\s*?mg/l`, fieldspec.Float(nf)),
	}
	return Definition{
		ID:          IDMerck,
		Fields:      append(fields, sharedTail(nf)...),
		HazardStyle: hazard.FieldToken,
		FireLayout:  bulletLayout,
		NamePolicy:  NamePolicy{},
	}
}

//Personal.AI order the ending
