package importlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:   testTime,
		RunID:       "8b0f6c1e-6d8a-4d7e-9a51-2f3b3c1f0a11",
		Account:     "amex",
		File:        "activity.xlsx",
		Parsed:      11,
		Imported:    10,
		Duplicates:  1,
		Failed:      1,
		Categorized: 7,
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	l := New(path)
	require.NoError(t, l.Append(testEntry()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "import-log.csv"))
	require.NoError(t, l.Append(testEntry()))

	e2 := testEntry()
	e2.Account = "cibc-chequing"
	e2.DryRun = true
	require.NoError(t, l.Append(e2))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "amex", entries[0].Account)
	assert.Equal(t, "cibc-chequing", entries[1].Account)
	assert.True(t, entries[1].DryRun)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,"), "header written once")
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := New(filepath.Join(t.TempDir(), "nope.csv")).Read()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	good := MarshalEntry(testEntry())

	_, err := UnmarshalEntry(good[:3])
	assert.ErrorContains(t, err, "expected 10 fields")

	bad := append([]string(nil), good...)
	bad[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(bad)
	assert.ErrorContains(t, err, "parsing timestamp")

	bad = append([]string(nil), good...)
	bad[colImported] = "ten"
	_, err = UnmarshalEntry(bad)
	assert.ErrorContains(t, err, "parsing count")
}
