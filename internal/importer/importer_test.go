package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/model"
)

func parseFixture(t *testing.T, name string) *Batch {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	defer f.Close()

	p := &INGParser{}
	batch, err := p.Parse(f)
	require.NoError(t, err)
	return batch
}

func TestINGParser_English(t *testing.T) {
	batch := parseFixture(t, "ing_current_en.csv")
	assert.Empty(t, batch.Rejected)
	require.Len(t, batch.Records, 6)

	first := batch.Records[0]
	assert.Equal(t, 2024, first.Date.Year())
	assert.Equal(t, 5, int(first.Date.Month()))
	assert.Equal(t, 28, first.Date.Day())
	assert.Equal(t, "Albert Heijn 1234", first.Name)
	assert.Equal(t, model.IBAN("NL95INGB0756630126"), first.Account)
	assert.False(t, first.HasCounterParty())
	assert.Equal(t, CodeCardPayment, first.Code)
	assert.Equal(t, model.Outgoing, first.Direction)
	assert.Equal(t, "12.50", first.Amount.StringFixed(2))
	assert.Equal(t, "1487.50", first.Balance.StringFixed(2))
	assert.Contains(t, first.Description, "Term: ABC123")
	assert.Equal(t, "#food #lunch", first.Tags)
	assert.Equal(t, 2, first.Row)

	salary := batch.Records[1]
	assert.Equal(t, model.Incoming, salary.Direction)
	assert.Equal(t, "NL91ABNA0417164300", salary.CounterParty)
	assert.Equal(t, "2500.00", salary.Amount.StringFixed(2))
}

func TestINGParser_Dutch(t *testing.T) {
	batch := parseFixture(t, "ing_current_nl.csv")
	require.Len(t, batch.Records, 2)
	assert.Equal(t, model.Outgoing, batch.Records[0].Direction)
	assert.Equal(t, CodeCashDeposit, batch.Records[1].Code)
	assert.Equal(t, model.Incoming, batch.Records[1].Direction)

	require.Len(t, batch.Rejected, 3)
	assert.Equal(t, ingColDate, batch.Rejected[0].Field)
	assert.Equal(t, 4, batch.Rejected[0].Row)
	assert.Equal(t, ingColCode, batch.Rejected[1].Field)
	assert.Equal(t, ingColAmount, batch.Rejected[2].Field)
	assert.Contains(t, batch.Rejected[2].Error(), `parsing amount "een euro"`)
}

func TestINGParser_BadIBAN(t *testing.T) {
	csv := "Date;Name / Description;Account;Counterparty;Code;Debit/credit;Amount (EUR);Transaction type;Notifications\n" +
		"20240101;x;NL00INGB0000000000;;OV;Debit;1,00;Transfer;\n"
	p := &INGParser{}
	batch, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	require.Len(t, batch.Rejected, 1)
	assert.True(t, errors.Is(batch.Rejected[0], model.ErrInvalidIBAN))
}

func TestINGParser_OptionalColumns(t *testing.T) {
	csv := "\ufeffDate;Name / Description;Account;Counterparty;Code;Debit/credit;Amount (EUR);Transaction type;Notifications\n" +
		"20240101;x;NL95INGB0756630126;;DV;Debit;1,00;Various;costs\n"
	p := &INGParser{}
	batch, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.True(t, batch.Records[0].Balance.IsZero())
	assert.Empty(t, batch.Records[0].Tags)
}

func TestINGParser_BOMBeforeQuotedHeader(t *testing.T) {
	csv := "\ufeff\"Date\";\"Name / Description\";\"Account\";\"Counterparty\";\"Code\";\"Debit/credit\";\"Amount (EUR)\";\"Transaction type\";\"Notifications\"\n" +
		"\"20240101\";\"x\";\"NL95INGB0756630126\";\"\";\"DV\";\"Debit\";\"1,00\";\"Various\";\"costs\"\n"
	p := &INGParser{}
	batch, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, CodeBankCharge, batch.Records[0].Code)
}

func TestINGParser_MissingColumns(t *testing.T) {
	p := &INGParser{}
	_, err := p.Parse(strings.NewReader("Date;Name / Description;Amount (EUR)\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "account")
}

func TestINGParser_EmptyFile(t *testing.T) {
	p := &INGParser{}
	batch, err := p.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
}

func TestINGParser_Format(t *testing.T) {
	p := &INGParser{}
	assert.Equal(t, "ing", p.Format())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12,50", "12.50"},
		{"1.234,56", "1234.56"},
		{"1.000.000,00", "1000000.00"},
		{"0,01", "0.01"},
		{" 7 ", "7.00"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, got.StringFixed(2))
	}

	_, err := ParseAmount("twelve")
	assert.Error(t, err)
}

func TestParseCode(t *testing.T) {
	c, err := ParseCode("ba")
	require.NoError(t, err)
	assert.Equal(t, CodeCardPayment, c)

	_, err = ParseCode("ZZ")
	assert.Error(t, err)
}

func TestParseError_Message(t *testing.T) {
	e := &ParseError{Source: "may.csv", Row: 3, Field: "date", Value: "x", Err: errors.New("bad")}
	assert.Equal(t, `may.csv: row 3: parsing date "x": bad`, e.Error())

	e = &ParseError{Row: 3, Err: errors.New("bare quote")}
	assert.Equal(t, "row 3: bare quote", e.Error())
}

func TestBatch_SetSource(t *testing.T) {
	b := &Batch{
		Records:  []Record{{Row: 2}},
		Rejected: []*ParseError{{Row: 3}},
	}
	b.SetSource("may.csv")
	assert.Equal(t, "may.csv", b.Records[0].Source)
	assert.Equal(t, "may.csv", b.Rejected[0].Source)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&INGParser{})
	assert.NotNil(t, r.Get("ING"))
	assert.NotNil(t, r.Get("Ing"))
	assert.Equal(t, []string{"ing"}, r.Formats())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&INGParser{})
	assert.Panics(t, func() { r.Register(&INGParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("ing"))
}

func TestScan_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.CSV"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "old.csv"), 0o755))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.CSV", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "may.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	files, err := Scan(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)
}

func TestScan_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Scan(dir)
	assert.Error(t, err, "empty dir")

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("data"), 0o644))
	_, err = Scan(txt)
	assert.Error(t, err, "non-csv file")

	_, err = Scan(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
