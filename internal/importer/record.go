package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
)

// Code is the two-letter transaction code ING puts on every statement row.
type Code string

const (
	CodeAcceptGiro      Code = "AC" // acceptgiro
	CodeCardPayment     Code = "BA" // betaalautomaat
	CodeBankCharge      Code = "DV" // diversen, mostly bank service charges
	CodeBranch          Code = "FL" // filiaalboeking
	CodePhoneBanking    Code = "GF" // telefonisch bankieren
	CodeCashWithdrawal  Code = "GM" // geldautomaat
	CodeOnlineBanking   Code = "GT" // internetbankieren
	CodeDirectDebit     Code = "IC" // incasso
	CodeIDEAL           Code = "ID" // iDEAL
	CodeTransfer        Code = "OV" // overschrijving
	CodeCounterWithdraw Code = "PK" // opname kantoor
	CodePeriodic        Code = "PO" // periodieke overschrijving
	CodeCashDeposit     Code = "ST" // storting
	CodeBatchPayment    Code = "VZ" // verzamelbetaling
)

var knownCodes = map[Code]bool{
	CodeAcceptGiro: true, CodeCardPayment: true, CodeBankCharge: true, CodeBranch: true,
	CodePhoneBanking: true, CodeCashWithdrawal: true, CodeOnlineBanking: true,
	CodeDirectDebit: true, CodeIDEAL: true, CodeTransfer: true, CodeCounterWithdraw: true,
	CodePeriodic: true, CodeCashDeposit: true, CodeBatchPayment: true,
}

// ParseCode validates a transaction code.
func ParseCode(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !knownCodes[c] {
		return "", fmt.Errorf("unknown transaction code %q", s)
	}
	return c, nil
}

// Record is one parsed bank export row, before classification.
type Record struct {
	Date            time.Time
	Name            string
	Account         model.IBAN // the user's own account
	CounterParty    string     // empty when the bank left it blank
	Code            Code
	Direction       model.Direction
	Amount          decimal.Decimal // always positive; Direction carries the sign
	TransactionType string
	Description     string
	Balance         decimal.Decimal
	Tags            string

	// Source and Row locate the record for diagnostics only.
	Source string
	Row    int
}

// HasCounterParty reports whether the counterparty column was filled in.
func (r Record) HasCounterParty() bool {
	return strings.TrimSpace(r.CounterParty) != ""
}

// ParseAmount parses a European formatted amount such as "1.234,56".
func ParseAmount(s string) (decimal.Decimal, error) {
	norm := strings.TrimSpace(s)
	norm = strings.ReplaceAll(norm, ".", "")
	norm = strings.ReplaceAll(norm, ",", ".")
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseError reports a row that could not be read. The row is skipped;
// the rest of the file is still imported.
type ParseError struct {
	Source string
	Row    int
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("row %d", e.Row)
	if e.Source != "" {
		loc = e.Source + ": " + loc
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
	return fmt.Sprintf("%s: parsing %s %q: %v", loc, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
