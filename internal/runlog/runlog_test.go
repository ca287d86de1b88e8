package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		RunID:     "2f1c6f1e-5f0e-4d57-9a55-0d3c1f3b7a10",
		Source:    "ing_current_nl.csv",
		Row:       4,
		Stage:     "parse",
		Reason:    `ing_current_nl.csv: row 4: parsing date "2024-06-02": bad format`,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Row = 6
	e2.Stage = "classify"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].Row)
	assert.Equal(t, "classify", entries[1].Stage)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestAppend_NothingToWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_NoFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"a", "b"})
	assert.ErrorContains(t, err, "expected 6 fields")

	row := MarshalEntry(testEntry())
	row[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing timestamp")

	row = MarshalEntry(testEntry())
	row[colRow] = "four"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing row")
}

func TestMarshalEntry_QuotesReason(t *testing.T) {
	dir := t.TempDir()
	e := testEntry()
	e.Reason = "line one, with comma\nline two"
	require.NoError(t, Append(dir, []Entry{e}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.Reason, entries[0].Reason)
}
