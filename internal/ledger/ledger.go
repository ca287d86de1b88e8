// Package ledger holds the deduplicated, date-ordered set of transactions of
// one import run.
package ledger

import (
	"iter"
	"slices"
	"time"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
)

// Transactions is an immutable list of unique transactions sorted by
// increasing date. The order of transactions on the same day is unspecified.
type Transactions struct {
	data    []model.Transaction
	removed int
}

// New deduplicates txns by identity and sorts them by date. The input slice
// is not modified.
func New(txns []model.Transaction) *Transactions {
	seen := make(map[id.ID[model.Transaction]]struct{}, len(txns))
	data := make([]model.Transaction, 0, len(txns))
	for _, tx := range txns {
		key := tx.ID()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		data = append(data, tx)
	}
	slices.SortStableFunc(data, func(a, b model.Transaction) int {
		return a.Date.Compare(b.Date)
	})
	return &Transactions{data: data, removed: len(txns) - len(data)}
}

// Filter returns a new store with the transactions matching keep, in the
// same order. The receiver is not modified.
func (t *Transactions) Filter(keep func(model.Transaction) bool) *Transactions {
	var data []model.Transaction
	for _, tx := range t.data {
		if keep(tx) {
			data = append(data, tx)
		}
	}
	return &Transactions{data: data}
}

// Between keeps transactions dated within [from, to], both days inclusive.
func (t *Transactions) Between(from, to time.Time) *Transactions {
	return t.Filter(func(tx model.Transaction) bool {
		return !tx.Date.Before(from) && !tx.Date.After(to)
	})
}

// Data returns a copy of the transactions.
func (t *Transactions) Data() []model.Transaction {
	return slices.Clone(t.data)
}

// All iterates the transactions in date order.
func (t *Transactions) All() iter.Seq[model.Transaction] {
	return func(yield func(model.Transaction) bool) {
		for _, tx := range t.data {
			if !yield(tx) {
				return
			}
		}
	}
}

// Len returns the number of transactions.
func (t *Transactions) Len() int { return len(t.data) }

// First returns the earliest transaction; ok is false when the store is empty.
func (t *Transactions) First() (tx model.Transaction, ok bool) {
	if len(t.data) == 0 {
		return model.Transaction{}, false
	}
	return t.data[0], true
}

// Last returns the latest transaction; ok is false when the store is empty.
func (t *Transactions) Last() (tx model.Transaction, ok bool) {
	if len(t.data) == 0 {
		return model.Transaction{}, false
	}
	return t.data[len(t.data)-1], true
}

// Removed is the number of duplicates dropped by New. Filtered stores report 0.
func (t *Transactions) Removed() int { return t.removed }
