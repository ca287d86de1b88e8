// Package runlog keeps an append-only CSV log of the rows each import left
// out, so they can be fixed and re-imported later.
package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one rejected row.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Source    string
	Row       int
	Stage     string
	Reason    string
}

// Header is the CSV header for rejected.csv.
const Header = "timestamp,run_id,source,row,stage,reason"

const (
	numFields    = 6
	logDir       = "logs"
	logName      = "rejected.csv"
	colTimestamp = 0
	colRunID     = 1
	colSource    = 2
	colRow       = 3
	colStage     = 4
	colReason    = 5
)

// Path returns the log file location under projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, logDir, logName)
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colSource] = e.Source
	row[colRow] = strconv.Itoa(e.Row)
	row[colStage] = e.Stage
	row[colReason] = e.Reason
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	row, err := strconv.Atoi(record[colRow])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Source:    record[colSource],
		Row:       row,
		Stage:     record[colStage],
		Reason:    record[colReason],
	}, nil
}

// Append writes entries to <projectRoot>/logs/rejected.csv, creating the file
// and header if needed.
func Append(projectRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(projectRoot)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the project's log, or nil if there is none.
func Read(projectRoot string) ([]Entry, error) {
	f, err := os.Open(Path(projectRoot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
