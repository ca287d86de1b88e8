// Package export writes an imported transaction store to files and databases.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/model"
)

// Header is the CSV header written by WriteCSV.
const Header = "id,date,source_id,sink_id,amount,tags,description"

const (
	numFields = 7
	colID     = 0
	colDate   = 1
	colSource = 2
	colSink   = 3
	colAmount = 4
	colTags   = 5
	colDesc   = 6
)

// WriteCSV writes store to w in date order, header first.
func WriteCSV(w io.Writer, store *ledger.Transactions) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for tx := range store.All() {
		if err := cw.Write(MarshalTransaction(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
		row++
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row. Nodes are written
// by ID; amounts keep two decimals.
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = tx.ID().String()
	row[colDate] = tx.Date.Format(model.DateFormat)
	row[colSource] = tx.Source.ID().String()
	row[colSink] = tx.Sink.ID().String()
	row[colAmount] = tx.Amount.StringFixed(2)
	row[colTags] = strings.Join(tx.Tags, " ")
	row[colDesc] = tx.Description
	return row
}
