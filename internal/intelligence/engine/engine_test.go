package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/pictogram"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/profiles"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg, err := profiles.DefaultRegistry(fieldspec.DefaultNumberFormat)
	require.NoError(t, err)
	return New(reg, opts...)
}

func sheet(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "profiles", "testdata", name+".txt"))
	require.NoError(t, err)
	return string(b)
}

func wgk(i int) *int { return &i }

func TestExtract_Acros(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	res, err := e.Extract("acros", sheet(t, "acros"), nil)
	require.NoError(t, err)

	rec := res.Record
	assert.Equal(t, "acros", res.Profile)
	assert.Equal(t, pictogram.Default().Version(), res.TableVersion)
	assert.True(t, res.CASValid)
	assert.False(t, res.Referenced)

	assert.Equal(t, "2019-10-07", rec[sdb.FieldReviewDate])
	assert.Equal(t, []string{"225", "319"}, rec[sdb.FieldHazards])
	assert.Equal(t, []string{"210", "305+351+338"}, rec[sdb.FieldPrecautions])
	assert.Equal(t, []int{2, 7}, rec[sdb.FieldSymbols])
	assert.Equal(t, "danger", rec[sdb.FieldSignal])
	assert.Equal(t, "C2H6O", rec[sdb.FieldFormula])
	assert.Equal(t, false, rec[sdb.FieldCMR])
	assert.Equal(t, sdb.Pair{}, rec[sdb.FieldBulkDensity])
	assert.Equal(t, []string{"Alkohol", "EtOH", "Ethylalkohol"}, rec[sdb.FieldSynonyms])
	assert.Contains(t, res.Fallbacks, sdb.FieldBulkDensity)
}

func TestExtract_AcrosUnhyphenatedStatements(t *testing.T) {
	t.Parallel()

	text := strings.Replace(sheet(t, "acros"),
		"H319 - Verursacht schwere Augenreizung",
		"H302 Gesundheitsschädlich beim Verschlucken.\nH350-H340 Kann Krebs erzeugen", 1)

	res, err := newEngine(t).Extract("acros", text, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"225", "302", "340", "350"}, res.Record[sdb.FieldHazards])
	assert.Equal(t, []int{2, 7, 8}, res.Record[sdb.FieldSymbols])
	assert.Equal(t, true, res.Record[sdb.FieldCMR])
}

func TestExtract_ReferenceMerge(t *testing.T) {
	t.Parallel()

	snap := reference.NewSnapshot([]reference.Entry{
		{CAS: "67-64-1", EINECS: "200-662-2", Name: "Aceton", NameEN: "acetone", WGK: wgk(1), Synonyms: []string{"Propan-2-on"}},
	}, time.Now(), "test")

	res, err := newEngine(t).Extract("caelo", sheet(t, "caelo"), snap)
	require.NoError(t, err)
	assert.True(t, res.Referenced)
	assert.Equal(t, "acetone", res.Record[sdb.FieldNameEN])
	assert.Equal(t, "200-662-2", res.Record[sdb.FieldEGNumber])
	assert.Equal(t, []string{"Dimethylketon", "Propan-2-on", "Propanon"}, res.Record[sdb.FieldSynonyms])
	assert.Equal(t, []string{"066"}, res.Record[sdb.FieldSupplemental])
}

func TestExtract_ReferenceSynonymsFiltered(t *testing.T) {
	t.Parallel()

	snap := reference.NewSnapshot([]reference.Entry{
		{CAS: "64-17-5", Name: "Ethanol", Synonyms: []string{"EA", " Ethylalkohol ", "Weingeist", "EtOH"}},
	}, time.Now(), "test")

	res, err := newEngine(t).Extract("acros", sheet(t, "acros"), snap)
	require.NoError(t, err)
	require.True(t, res.Referenced)
	assert.Equal(t, []string{"Alkohol", "EtOH", "Ethylalkohol", "Weingeist"}, res.Record[sdb.FieldSynonyms])
}

func TestExtract_UnsupportedProfile(t *testing.T) {
	t.Parallel()

	res, err := newEngine(t).Extract("sigma", "text", nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedProfile))
}

func TestExtract_EmptyText(t *testing.T) {
	t.Parallel()

	res, err := newEngine(t).Extract("merck", "", nil)
	require.NoError(t, err)
	assert.False(t, res.CASValid)
	assert.Equal(t, []int{}, res.Record[sdb.FieldSymbols])
	assert.Equal(t, sdb.Pair{}, res.Record[sdb.FieldMelting])
	assert.Nil(t, res.Record[sdb.FieldReviewDate])
}

func TestExtract_DecomposedAndCRLFText(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	want, err := e.Extract("acros", sheet(t, "acros"), nil)
	require.NoError(t, err)

	mangled := strings.ReplaceAll(norm.NFD.String(sheet(t, "acros")), "\n", "\r\n")
	got, err := e.Extract("acros", mangled, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Record, got.Record)
}

func TestExtract_CMRPictogram(t *testing.T) {
	t.Parallel()

	text := strings.Replace(sheet(t, "merck"), "H319 Verursacht", "H350 Kann Krebs erzeugen.\nH319 Verursacht", 1)
	res, err := newEngine(t).Extract("merck", text, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res.Record[sdb.FieldCMR])
	assert.Equal(t, []int{2, 7, 8}, res.Record[sdb.FieldSymbols])
}

func TestExtract_CustomTable(t *testing.T) {
	t.Parallel()

	tbl, err := pictogram.Parse([]byte("version: custom\nrows:\n  - symbols: [GHS09]\n    codes: [H225]\n"))
	require.NoError(t, err)
	e := newEngine(t, WithTable(tbl))
	assert.Equal(t, "custom", e.TableVersion())

	res, err := e.Extract("acros", sheet(t, "acros"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, res.Record[sdb.FieldSymbols])
}

func TestExtract_Concurrent(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	text := sheet(t, "caelo")
	want, err := e.Extract("caelo", text, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Extract("caelo", text, nil)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, want.Record, r.Record)
	}
}

func TestProfiles(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"acros", "caelo", "merck"}, newEngine(t).Profiles())
}

func TestPrepareText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb\nc", PrepareText("a\r\nb\rc"))
	assert.Equal(t, "\u00fc", PrepareText("u\u0308"))
}

//Personal.AI order the ending
