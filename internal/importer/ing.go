package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tally-dev/tally/internal/model"
)

// INGParser parses ING current-account CSV exports in English or Dutch.
type INGParser struct{}

const (
	ingDateFormat = "20060102"
	ingDelimiter  = ';'
)

// ING column keys. Each accepts the English and the Dutch header.
const (
	ingColDate    = "date"
	ingColName    = "name"
	ingColAccount = "account"
	ingColCounter = "counterparty"
	ingColCode    = "code"
	ingColDir     = "direction"
	ingColAmount  = "amount"
	ingColType    = "transaction type"
	ingColDesc    = "notifications"
	ingColBalance = "balance"
	ingColTag     = "tag"
)

var ingHeaders = map[string]string{
	"date":                ingColDate,
	"datum":               ingColDate,
	"name / description":  ingColName,
	"naam / omschrijving": ingColName,
	"account":             ingColAccount,
	"rekening":            ingColAccount,
	"counterparty":        ingColCounter,
	"tegenrekening":       ingColCounter,
	"code":                ingColCode,
	"debit/credit":        ingColDir,
	"af bij":              ingColDir,
	"amount (eur)":        ingColAmount,
	"bedrag (eur)":        ingColAmount,
	"transaction type":    ingColType,
	"mutatiesoort":        ingColType,
	"notifications":       ingColDesc,
	"mededelingen":        ingColDesc,
	"resulting balance":   ingColBalance,
	"saldo na mutatie":    ingColBalance,
	"tag":                 ingColTag,
}

// Older exports have no balance or tag columns.
var ingRequired = []string{
	ingColDate, ingColName, ingColAccount, ingColCounter, ingColCode,
	ingColDir, ingColAmount, ingColType, ingColDesc,
}

// Format returns the parser name.
func (p *INGParser) Format() string { return "ing" }

// Parse reads an ING CSV. Rows that fail to parse are returned in
// Batch.Rejected; only an unreadable file or header is an error.
func (p *INGParser) Parse(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.Comma = ingDelimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Batch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ING header: %w", err)
	}
	cols, err := ingColumns(header)
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				batch.Rejected = append(batch.Rejected, &ParseError{Row: perr.StartLine, Err: perr.Err})
				continue
			}
			return nil, fmt.Errorf("reading ING CSV: %w", err)
		}
		row, _ := cr.FieldPos(0)
		record, perr := parseINGRow(cols, rec, row)
		if perr != nil {
			batch.Rejected = append(batch.Rejected, perr)
			continue
		}
		batch.Records = append(batch.Records, record)
	}
	return batch, nil
}

// ingColumns maps column keys to their index in header.
func ingColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		// A leading BOM hides the opening quote from the CSV reader.
		name := strings.Trim(strings.TrimPrefix(h, "\ufeff"), "\" ")
		name = strings.ToLower(name)
		if key, ok := ingHeaders[name]; ok {
			cols[key] = i
		}
	}
	var missing []string
	for _, key := range ingRequired {
		if _, ok := cols[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ING header is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseINGRow(cols map[string]int, rec []string, row int) (Record, *ParseError) {
	field := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	fail := func(key string, err error) *ParseError {
		return &ParseError{Row: row, Field: key, Value: field(key), Err: err}
	}

	date, err := time.Parse(ingDateFormat, field(ingColDate))
	if err != nil {
		return Record{}, fail(ingColDate, err)
	}
	account, err := model.ParseIBAN(field(ingColAccount))
	if err != nil {
		return Record{}, fail(ingColAccount, err)
	}
	code, err := ParseCode(field(ingColCode))
	if err != nil {
		return Record{}, fail(ingColCode, err)
	}
	dir, err := model.ParseDirection(field(ingColDir))
	if err != nil {
		return Record{}, fail(ingColDir, err)
	}
	amount, err := ParseAmount(field(ingColAmount))
	if err != nil {
		return Record{}, fail(ingColAmount, err)
	}

	out := Record{
		Date:            date,
		Name:            field(ingColName),
		Account:         account,
		CounterParty:    field(ingColCounter),
		Code:            code,
		Direction:       dir,
		Amount:          amount,
		TransactionType: field(ingColType),
		Description:     field(ingColDesc),
		Tags:            field(ingColTag),
		Row:             row,
	}
	if raw := field(ingColBalance); raw != "" {
		out.Balance, err = ParseAmount(raw)
		if err != nil {
			return Record{}, fail(ingColBalance, err)
		}
	}
	return out, nil
}
