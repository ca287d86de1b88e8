package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/classify"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/model"
)

const header = "Date;Name / Description;Account;Counterparty;Code;Debit/credit;Amount (EUR);Transaction type;Notifications\n"

func fixtures() []importer.FileInfo {
	dir := filepath.Join("..", "..", "testdata")
	return []importer.FileInfo{
		{Name: "ing_current_en.csv", Path: filepath.Join(dir, "ing_current_en.csv")},
		{Name: "ing_current_nl.csv", Path: filepath.Join(dir, "ing_current_nl.csv")},
	}
}

func pipeline(workers int) *Pipeline {
	return New(&importer.INGParser{}, classify.New(classify.DefaultOptions()), workers)
}

func writeCSV(t *testing.T, rows string) importer.FileInfo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extra.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+rows), 0o644))
	return importer.FileInfo{Name: "extra.csv", Path: path}
}

func TestRun_Fixtures(t *testing.T) {
	report, err := pipeline(2).Run(context.Background(), fixtures())
	require.NoError(t, err)

	// The card payment on 2024-05-28 appears in both exports.
	assert.Equal(t, 7, report.Store.Len())
	assert.Equal(t, 1, report.Store.Removed())

	require.Len(t, report.Rejected, 3)
	for _, r := range report.Rejected {
		assert.Equal(t, StageParse, r.Stage)
		assert.Equal(t, "ing_current_nl.csv", r.Source)
		var perr *importer.ParseError
		assert.True(t, errors.As(r, &perr))
	}

	require.Len(t, report.Files, 2)
	assert.Equal(t, FileReport{Name: "ing_current_en.csv", Records: 6, Transactions: 6}, report.Files[0])
	assert.Equal(t, FileReport{Name: "ing_current_nl.csv", Records: 2, Transactions: 2, Rejected: 3}, report.Files[1])

	first, ok := report.Store.First()
	require.True(t, ok)
	assert.Equal(t, "2024-05-27", first.Date.Format(model.DateFormat))
	last, ok := report.Store.Last()
	require.True(t, ok)
	assert.Equal(t, model.Other("Deposit"), last.Source)
}

func TestRun_IndependentOfWorkers(t *testing.T) {
	ids := func(workers int) []string {
		report, err := pipeline(workers).Run(context.Background(), fixtures())
		require.NoError(t, err)
		var out []string
		for tx := range report.Store.All() {
			out = append(out, tx.ID().String())
		}
		return out
	}
	serial := ids(1)
	assert.ElementsMatch(t, serial, ids(8))
	assert.ElementsMatch(t, serial, ids(0))
}

func TestRun_UnclassifiedRowIsRejected(t *testing.T) {
	extra := writeCSV(t, "20240601;PayPal;NL95INGB0756630126;PayPal;OV;Debit;5,00;Transfer;no hints\n"+
		"20240602;Shop;NL95INGB0756630126;;BA;Debit;1,00;Payment terminal;Term: XYZ\n")

	report, err := pipeline(1).Run(context.Background(), []importer.FileInfo{extra})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Store.Len())
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, StageClassify, report.Rejected[0].Stage)
	assert.Equal(t, 2, report.Rejected[0].Row)

	var cerr *classify.ClassificationError
	assert.True(t, errors.As(report.Rejected[0], &cerr))
}

func TestRun_StrictFailsOnUnclassifiedRow(t *testing.T) {
	extra := writeCSV(t, "20240601;PayPal;NL95INGB0756630126;PayPal;OV;Debit;5,00;Transfer;no hints\n")

	p := pipeline(1)
	p.Strict = true
	_, err := p.Run(context.Background(), []importer.FileInfo{extra})
	require.Error(t, err)

	var cerr *classify.ClassificationError
	assert.True(t, errors.As(err, &cerr))
	assert.Contains(t, err.Error(), "extra.csv")
}

func TestRun_StrictIgnoresParseErrors(t *testing.T) {
	p := pipeline(1)
	p.Strict = true
	report, err := p.Run(context.Background(), fixtures()[1:])
	require.NoError(t, err)
	assert.Len(t, report.Rejected, 3)
}

func TestRun_MissingFile(t *testing.T) {
	files := []importer.FileInfo{{Name: "gone.csv", Path: filepath.Join(t.TempDir(), "gone.csv")}}
	_, err := pipeline(1).Run(context.Background(), files)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func shortFile(t *testing.T) importer.FileInfo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "short.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date;Amount (EUR)\n20240101;1,00\n"), 0o644))
	return importer.FileInfo{Name: "short.csv", Path: path}
}

func TestRun_MissingColumnsSkipsFile(t *testing.T) {
	files := append(fixtures(), shortFile(t))
	report, err := pipeline(2).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Store.Len(), "other files still imported")
	require.Len(t, report.Rejected, 4)
	last := report.Rejected[3]
	assert.Equal(t, StageParse, last.Stage)
	assert.Equal(t, "short.csv", last.Source)
	assert.Equal(t, 0, last.Row)
	assert.ErrorContains(t, last, "parsing short.csv")

	require.Len(t, report.Files, 3)
	assert.Error(t, report.Files[2].Err)
	assert.Equal(t, 1, report.Files[2].Rejected)
	assert.NoError(t, report.Files[0].Err)
}

func TestRun_StrictFailsOnMissingColumns(t *testing.T) {
	p := pipeline(1)
	p.Strict = true
	_, err := p.Run(context.Background(), []importer.FileInfo{shortFile(t)})
	assert.ErrorContains(t, err, "parsing short.csv")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline(2).Run(ctx, fixtures())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoFiles(t *testing.T) {
	report, err := pipeline(1).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Store.Len())
	assert.Empty(t, report.Rejected)
}

func TestRun_Logs(t *testing.T) {
	buf := &bytes.Buffer{}
	p := pipeline(1)
	p.Logger = logger.NewJSON(buf)

	_, err := p.Run(context.Background(), fixtures())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"rejected row"`)
	assert.Contains(t, out, `"file":"ing_current_nl.csv"`)
	assert.Contains(t, out, `"message":"import finished"`)
	assert.Contains(t, out, `"duplicates":1`)
}

func TestRowError(t *testing.T) {
	inner := &importer.ParseError{Source: "may.csv", Row: 4, Field: "date", Value: "x", Err: errors.New("bad")}
	e := RowError{Stage: StageParse, Source: "may.csv", Row: 4, Err: inner}
	assert.Equal(t, `parse: may.csv: row 4: parsing date "x": bad`, e.Error())
	assert.ErrorIs(t, e, inner)
}
