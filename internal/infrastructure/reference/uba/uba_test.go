package uba

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/turtacn/SDB-Intelligence/internal/testutil"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

func buildArchive(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleFiles() map[string][]byte {
	return map[string][]byte{
		FileCAS: []byte("KENN-NUMMER|CAS_NR\n" +
			"1|67-64-1\n" +
			"2|64-17-5\n" +
			"3|\n"),
		FileEINECS: []byte("KENN-NUMMER|EG_NR\n" +
			"1|200-662-2\n" +
			"2|200-578-6\n"),
		FileSubstances: []byte("KENN-NUMMER|EINSTUFUNGSBEZEICHNUNG|WGK\n" +
			"1|Aceton|1\n" +
			"2|Ethanol|nwg\n" +
			"3|Unbekannt|-\n"),
		FileSynonyms: []byte("KENN-NUMMER|NAME\n" +
			"1|Propanon\n" +
			"1|Dimethylketon\n" +
			"x|broken continuation\n"),
	}
}

func TestParseArchive(t *testing.T) {
	data := buildArchive(t, sampleFiles())

	entries, err := ParseArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	acetone := entries[0]
	assert.Equal(t, 1, acetone.Number)
	assert.Equal(t, "67-64-1", acetone.CAS)
	assert.Equal(t, "200-662-2", acetone.EINECS)
	assert.Equal(t, "Aceton", acetone.Name)
	require.NotNil(t, acetone.WGK)
	assert.Equal(t, 1, *acetone.WGK)
	assert.Equal(t, []string{"Propanon", "Dimethylketon"}, acetone.Synonyms)

	ethanol := entries[1]
	require.NotNil(t, ethanol.WGK)
	assert.Equal(t, 0, *ethanol.WGK)

	unknown := entries[2]
	assert.Empty(t, unknown.CAS)
	assert.Nil(t, unknown.WGK)
}

func TestParseArchive_NestedDirectory(t *testing.T) {
	files := map[string][]byte{}
	for name, data := range sampleFiles() {
		files["export/"+name] = data
	}
	data := buildArchive(t, files)

	entries, err := ParseArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestParseArchive_Windows1252(t *testing.T) {
	raw := "KENN-NUMMER|EINSTUFUNGSBEZEICHNUNG|WGK\n1|Natriumhydroxid-Lösung|1\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(raw)
	require.NoError(t, err)

	data := buildArchive(t, map[string][]byte{
		FileCAS:        []byte("KENN-NUMMER|CAS_NR\n1|1310-73-2\n"),
		FileSubstances: []byte(encoded),
	})
	entries, err := ParseArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Natriumhydroxid-Lösung", entries[0].Name)
}

func TestParseArchive_NotAZip(t *testing.T) {
	data := []byte("definitely not a zip")
	_, err := ParseArchive(bytes.NewReader(data), int64(len(data)))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotParseFailed))
}

func TestParseArchive_EntryTooLarge(t *testing.T) {
	data := buildArchive(t, sampleFiles())

	_, err := ParseArchive(bytes.NewReader(data), int64(len(data)), WithMaxEntryBytes(16))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotParseFailed))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Error(t, appErr.Cause)
	assert.Contains(t, appErr.Cause.Error(), "reference file too large")
	assert.Contains(t, appErr.Cause.Error(), "exceeds 16 bytes")
}

func TestParseArchive_EntryCapBoundary(t *testing.T) {
	files := map[string][]byte{FileCAS: []byte("KENN-NUMMER|CAS_NR\n1|67-64-1\n")}
	data := buildArchive(t, files)
	size := int64(len(files[FileCAS]))

	entries, err := ParseArchive(bytes.NewReader(data), int64(len(data)), WithMaxEntryBytes(size))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ParseArchive(bytes.NewReader(data), int64(len(data)), WithMaxEntryBytes(size-1))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotParseFailed))

	// Non-positive caps fall back to the default.
	_, err = ParseArchive(bytes.NewReader(data), int64(len(data)), WithMaxEntryBytes(0))
	assert.NoError(t, err)
}

func TestParseWGK(t *testing.T) {
	assert.Equal(t, 0, *parseWGK(" nwg "))
	assert.Equal(t, 3, *parseWGK("3"))
	assert.Nil(t, parseWGK(""))
	assert.Nil(t, parseWGK("awg"))
}

func TestSource_Fetch(t *testing.T) {
	archive := buildArchive(t, sampleFiles())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	log := testutil.NewMockLogger()
	src := NewSource(srv.URL, srv.Client(), log)
	built := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return built }

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, srv.URL, snap.Source)
	assert.Equal(t, built, snap.BuiltAt)

	e, ok := snap.ByName("ethanol")
	require.True(t, ok)
	assert.Equal(t, "64-17-5", e.CAS)
	assert.True(t, log.HasMessage("info", "reference snapshot built"))
}

func TestSource_FetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL, srv.Client(), nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotDownload))
}

func TestSource_FetchEntryCap(t *testing.T) {
	archive := buildArchive(t, sampleFiles())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL, srv.Client(), nil, WithMaxEntryBytes(8)).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSnapshotParseFailed))
}

func TestNewSource_Defaults(t *testing.T) {
	src := NewSource("", nil, nil)
	assert.Equal(t, DefaultURL, src.url)
	assert.NotNil(t, src.client)
}

//Personal.AI order the ending
