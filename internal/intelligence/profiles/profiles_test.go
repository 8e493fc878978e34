package profiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/hazard"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

func loadSheet(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name+".txt"))
	require.NoError(t, err)
	return string(b)
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry(fieldspec.DefaultNumberFormat)
	require.NoError(t, err)
	return r
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	r := defaultRegistry(t)
	assert.Equal(t, []string{IDAcros, IDCaelo, IDMerck}, r.IDs())

	p, err := r.Get(" Merck ")
	require.NoError(t, err)
	assert.Equal(t, IDMerck, p.ID())

	_, err = r.Get("sigma")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedProfile))
}

func TestNewRegistry_Duplicate(t *testing.T) {
	t.Parallel()

	a := MustNew(Definition{ID: "x"})
	b := MustNew(Definition{ID: "X"})
	_, err := NewRegistry(a, b)
	assert.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(Definition{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRule))

	_, err = New(Definition{ID: "x", Fields: []fieldspec.FieldSpec{
		text("cas", `(a)`),
		text("cas", `(b)`),
	}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateField))

	_, err = New(Definition{ID: "x", Fields: []fieldspec.FieldSpec{text("cas", `(a`)}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRule))

	assert.Panics(t, func() { MustNew(Definition{}) })
}

func TestAcros_Parse(t *testing.T) {
	t.Parallel()

	p, err := defaultRegistry(t).Get(IDAcros)
	require.NoError(t, err)
	rec, report := p.ParseWithReport(loadSheet(t, IDAcros))

	assert.Equal(t, date(2019, time.October, 7), rec[sdb.FieldReviewDate])
	assert.Equal(t, "64-17-5", rec[sdb.FieldCAS])
	assert.Equal(t, "200-578-6", rec[sdb.FieldEGNumber])
	assert.Equal(t, "Ethanol, absolut", rec[sdb.FieldArticleName])
	assert.Equal(t, "Ethanol, absolut", rec[sdb.FieldName])
	assert.Equal(t, []string{"Ethylalkohol", "Alkohol", "EtOH"}, rec[sdb.FieldSynonyms])
	assert.Equal(t, "ACR615090010", rec[sdb.FieldArticleNumber])
	assert.Equal(t, "Gefahr", rec[sdb.FieldSignal])
	assert.Equal(t, []string{"H225", "H319"}, rec[sdb.FieldHazards])
	assert.Equal(t, []string{"P210", "P305+P351+P338"}, rec[sdb.FieldPrecautions])
	assert.Equal(t, []string{}, rec[sdb.FieldSupplemental])
	assert.Equal(t, "C2 H6 O", rec[sdb.FieldFormula])
	assert.Equal(t, 46.07, rec[sdb.FieldMolarMass])
	assert.Equal(t, "Flüssigkeit", rec[sdb.FieldState])
	assert.Equal(t, "Farblos", rec[sdb.FieldColor])
	assert.Equal(t, "alkoholartig", rec[sdb.FieldOdor])
	assert.Equal(t, sdb.ValueOnly(-114), rec[sdb.FieldMelting])
	assert.Equal(t, sdb.NewPair(78, 80), rec[sdb.FieldBoiling])
	assert.Equal(t, sdb.NewPair(0.79, 20), rec[sdb.FieldDensity])
	assert.Nil(t, rec[sdb.FieldBulkDensity])
	assert.Equal(t, sdb.NewPair(1000, 20), rec[sdb.FieldSolubility])
	assert.Equal(t, "33", rec[sdb.FieldKemler])
	assert.Equal(t, "10", rec[sdb.FieldStorageClass])
	assert.Equal(t, 1, rec[sdb.FieldWGK])
	assert.Nil(t, rec[sdb.FieldVwVwS])
	assert.Equal(t, 960.0, rec[sdb.FieldAGW])
	assert.Nil(t, rec[sdb.FieldBGW])
	assert.Equal(t, "Wassersprühnebel. Kohlendioxid (CO2). Trockenlöschmittel.", rec[sdb.FieldExtAgents])
	assert.Equal(t, "Keine Information verfügbar.", rec[sdb.FieldNoExtAgents])
	assert.Equal(t, "Umgebungsluftunabhängiges Atemschutzgerät tragen.", rec[sdb.FieldFireMisc])

	assert.False(t, rec.Has(sdb.FieldHazardBlock))
	assert.False(t, rec.Has(sdb.FieldFireBlock))
	assert.ElementsMatch(t, []string{sdb.FieldBulkDensity, sdb.FieldBetrSichV, sdb.FieldVwVwS, sdb.FieldBGW, sdb.FieldIOELV}, report.Fallbacks)
}

func TestCaelo_Parse(t *testing.T) {
	t.Parallel()

	p, err := defaultRegistry(t).Get(IDCaelo)
	require.NoError(t, err)
	rec := p.Parse(loadSheet(t, IDCaelo))

	assert.Equal(t, date(2018, time.November, 15), rec[sdb.FieldReviewDate])
	assert.Equal(t, "67-64-1", rec[sdb.FieldCAS])
	assert.Equal(t, " 200-662-2", rec[sdb.FieldEGNumber])
	assert.Equal(t, "Aceton", rec[sdb.FieldArticleName])
	assert.Equal(t, "Aceton", rec[sdb.FieldName], "qualifier after the comma is cut")
	assert.Equal(t, []string{"Dimethylketon", "Propanon"}, rec[sdb.FieldSynonyms])
	assert.Equal(t, "3010", rec[sdb.FieldArticleNumber])
	assert.Equal(t, "Gefahr", rec[sdb.FieldSignal])
	assert.Equal(t, []string{"H225", "H319", "H336"}, rec[sdb.FieldHazards])
	assert.Equal(t, []string{"P210", "P305+P351+P338"}, rec[sdb.FieldPrecautions])
	assert.Equal(t, []string{"EUH066"}, rec[sdb.FieldSupplemental])
	assert.Equal(t, "C3H6O", rec[sdb.FieldFormula])
	assert.Equal(t, 58.08, rec[sdb.FieldMolarMass])
	assert.Equal(t, "Flüssig", rec[sdb.FieldState])
	assert.Equal(t, sdb.ValueOnly(-95), rec[sdb.FieldMelting])
	assert.Equal(t, sdb.ValueOnly(56), rec[sdb.FieldBoiling])
	assert.Equal(t, sdb.NewPair(0.79, 20), rec[sdb.FieldDensity])
	assert.Equal(t, sdb.NewPair(1000, 20), rec[sdb.FieldSolubility])
	assert.Equal(t, "33", rec[sdb.FieldKemler])
	assert.Equal(t, "3", rec[sdb.FieldStorageClass])
	assert.Equal(t, 1, rec[sdb.FieldWGK])
	assert.Equal(t, 1200.0, rec[sdb.FieldAGW])
	assert.Equal(t, "CO2, Löschpulver oder Wassersprühstrahl. Größeren Brand mit alkoholbeständigem Schaum bekämpfen.", rec[sdb.FieldExtAgents])
	assert.Equal(t, "Wasser im Vollstrahl", rec[sdb.FieldNoExtAgents])
	assert.Equal(t, "Gefährdete Behälter mit Wasser kühlen.", rec[sdb.FieldFireMisc])
}

func TestMerck_Parse(t *testing.T) {
	t.Parallel()

	p, err := defaultRegistry(t).Get(IDMerck)
	require.NoError(t, err)
	rec := p.Parse(loadSheet(t, IDMerck))

	assert.Equal(t, date(2021, time.May, 3), rec[sdb.FieldReviewDate])
	assert.Equal(t, "64-17-5", rec[sdb.FieldCAS])
	assert.Equal(t, "200-578-6", rec[sdb.FieldEGNumber])
	assert.Equal(t, "Ethanol", rec[sdb.FieldName], "derived from the first word of the article name")
	assert.Equal(t, "100983", rec[sdb.FieldArticleNumber])
	assert.False(t, rec.Has(sdb.FieldSynonyms))
	assert.Equal(t, "Gefahr", rec[sdb.FieldSignal])
	assert.Equal(t, []string{"H225", "H319"}, rec[sdb.FieldHazards])
	assert.Equal(t, []string{"P210", "P233"}, rec[sdb.FieldPrecautions])
	assert.Equal(t, 46.07, rec[sdb.FieldMolarMass])
	assert.Equal(t, sdb.ValueOnly(-114.5), rec[sdb.FieldMelting])
	assert.Equal(t, sdb.NewPair(78, 78.3), rec[sdb.FieldBoiling])
	assert.Equal(t, sdb.NewPair(0.79, 20), rec[sdb.FieldDensity])
	assert.Equal(t, sdb.NewPair(1000, 20), rec[sdb.FieldSolubility])
	assert.Equal(t, "10", rec[sdb.FieldStorageClass])
	assert.Equal(t, 380.0, rec[sdb.FieldAGW])
	assert.Equal(t, "Kohlendioxid (CO2), Schaum, Trockenlöschmittel", rec[sdb.FieldExtAgents])
	assert.Equal(t, "Für diesen Stoff liegen keine Beschränkungen vor.", rec[sdb.FieldNoExtAgents])
	assert.Equal(t, "Eindringen in Oberflächenwasser verhindern.", rec[sdb.FieldFireMisc])
}

func TestParse_EmptyDocument(t *testing.T) {
	t.Parallel()

	r := defaultRegistry(t)
	for _, id := range r.IDs() {
		p, err := r.Get(id)
		require.NoError(t, err)
		rec, report := p.ParseWithReport("")
		assert.Len(t, report.Fallbacks, len(p.FieldNames()), id)
		assert.Equal(t, "", rec[sdb.FieldCAS], id)
		assert.Equal(t, "", rec[sdb.FieldName], id)
		assert.Equal(t, []string{}, rec[sdb.FieldHazards], id)
		assert.Equal(t, "", rec[sdb.FieldExtAgents], id)
		assert.Nil(t, rec[sdb.FieldReviewDate], id)
	}
}

// expectedKeys is the key set of a parsed record: the declared fields
// without the raw section blocks, plus the fields derived from them.
func expectedKeys(p *Profile) []string {
	set := map[string]struct{}{}
	for _, name := range p.FieldNames() {
		set[name] = struct{}{}
	}
	delete(set, sdb.FieldHazardBlock)
	delete(set, sdb.FieldFireBlock)
	for _, name := range []string{
		sdb.FieldHazards, sdb.FieldPrecautions, sdb.FieldSupplemental,
		sdb.FieldExtAgents, sdb.FieldNoExtAgents, sdb.FieldFireMisc, sdb.FieldName,
	} {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func recordKeys(rec sdb.Record) []string {
	out := make([]string, 0, len(rec))
	for k := range rec {
		out = append(out, k)
	}
	return out
}

func TestParse_RecordHasEveryDeclaredKey(t *testing.T) {
	t.Parallel()

	r := defaultRegistry(t)
	for _, id := range r.IDs() {
		p, err := r.Get(id)
		require.NoError(t, err)
		inputs := map[string]string{"sample": loadSheet(t, id), "empty": ""}
		for name, text := range inputs {
			t.Run(id+"/"+name, func(t *testing.T) {
				rec := p.Parse(text)
				assert.ElementsMatch(t, expectedKeys(p), recordKeys(rec))
			})
		}
	}
}

func TestParse_FireBlockStopsAtSectionSix(t *testing.T) {
	t.Parallel()

	r := defaultRegistry(t)
	for _, id := range []string{IDMerck, IDCaelo} {
		p, err := r.Get(id)
		require.NoError(t, err)
		// A later "6 Ma..." heading must not widen the captured section.
		text := loadSheet(t, id) + "\nABSCHNITT 16 Sonstige Angaben\n6 Maßnahmen siehe oben\n"
		rec := p.Parse(text)
		misc := rec.String(sdb.FieldFireMisc)
		assert.NotContains(t, misc, "ABSCHNITT", id)
		assert.NotContains(t, misc, "Freisetzung", id)
		assert.NotContains(t, misc, "Sonstige Angaben", id)
	}
}

func TestParse_NameFallback(t *testing.T) {
	t.Parallel()

	p := MustNew(Definition{
		ID: "t",
		Fields: []fieldspec.FieldSpec{
			fieldspec.Simple(sdb.FieldArticleName, "Produktname", ""),
			text(sdb.FieldName, `Stoffname: (.+)\n`),
		},
		HazardStyle: hazard.FieldToken,
		NamePolicy:  NamePolicy{FallbackSeparator: ","},
	})
	rec := p.Parse("\nProduktname ACETON, techn.\n")
	assert.Equal(t, "Aceton", rec[sdb.FieldName])

	rec = p.Parse("\nProduktname ACETON, techn.\nStoffname: Aceton, rein\n")
	assert.Equal(t, "Aceton, rein", rec[sdb.FieldName])
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	p, err := defaultRegistry(t).Get(IDCaelo)
	require.NoError(t, err)
	sheet := loadSheet(t, IDCaelo)
	assert.Equal(t, p.Parse(sheet), p.Parse(sheet))
}

func TestFirstPart(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ethanol", firstPart("Ethanol absolut", ""))
	assert.Equal(t, "", firstPart("   ", ""))
	assert.Equal(t, "Ethanol", firstPart("Ethanol, absolut", ","))
	assert.Equal(t, "Ethanol absolut", firstPart("Ethanol absolut", ","))
}

//Personal.AI order the ending
