package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id      TEXT PRIMARY KEY,
	kind    TEXT NOT NULL,
	display TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	date         TEXT NOT NULL,
	source_id    TEXT NOT NULL REFERENCES nodes(id),
	sink_id      TEXT NOT NULL REFERENCES nodes(id),
	amount_cents INTEGER NOT NULL,
	tags         TEXT NOT NULL,
	description  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS import_runs (
	id           TEXT PRIMARY KEY,
	started_at   TIMESTAMP NOT NULL,
	files        TEXT NOT NULL,
	transactions INTEGER NOT NULL
);`

// Store persists imported transactions in SQL. Rows are keyed by content
// hash, so saving the same transaction twice leaves one row.
type Store struct {
	Conn *sql.DB
	now  func() time.Time
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{Conn: db, now: time.Now}
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return NewStore(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.Conn.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// Run describes one saved import.
type Run struct {
	ID           uuid.UUID
	StartedAt    time.Time
	Files        []string
	Transactions int
}

// SaveRun writes every node and transaction of store, plus a run record, in
// one SQL transaction. Existing nodes are kept; existing transactions are
// replaced.
func (s *Store) SaveRun(ctx context.Context, store *ledger.Transactions, files []string) (Run, error) {
	run := Run{
		ID:           uuid.New(),
		StartedAt:    s.now().UTC(),
		Files:        files,
		Transactions: store.Len(),
	}

	tx, err := s.Conn.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, started_at, files, transactions) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt, strings.Join(files, ","), run.Transactions,
	); err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	seen := make(map[id.ID[model.Node]]struct{})
	for t := range store.All() {
		for _, n := range []model.Node{t.Source, t.Sink} {
			if _, ok := seen[n.ID()]; ok {
				continue
			}
			seen[n.ID()] = struct{}{}
			if err := insertNode(ctx, tx, n); err != nil {
				return Run{}, err
			}
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return Run{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// TransactionCount returns the number of stored transactions across all runs.
func (s *Store) TransactionCount(ctx context.Context) (int, error) {
	var n int
	if err := s.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

func insertNode(ctx context.Context, tx *sql.Tx, n model.Node) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO nodes (id, kind, display) VALUES (?, ?, ?)`,
		n.ID().String(), string(n.Kind()), n.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting node %s: %w", n.ID(), err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t model.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transactions (id, date, source_id, sink_id, amount_cents, tags, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID().String(),
		t.Date.Format(model.DateFormat),
		t.Source.ID().String(),
		t.Sink.ID().String(),
		Cents(t),
		strings.Join(t.Tags, " "),
		t.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", t.ID(), err)
	}
	return nil
}

// Cents is the amount of t in integer cents, rounded half away from zero.
func Cents(t model.Transaction) int64 {
	return t.Amount.Shift(2).Round(0).IntPart()
}
