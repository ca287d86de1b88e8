// Package summary aggregates a transaction store into per-node reports.
package summary

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/owner"
)

// NodeFrequencies counts how often each node appears as an endpoint. A
// transaction adds one to its source and one to its sink, so a node paying
// itself is counted twice.
func NodeFrequencies(store *ledger.Transactions) map[id.ID[model.Node]]uint64 {
	freq := make(map[id.ID[model.Node]]uint64)
	for tx := range store.All() {
		freq[tx.Source.ID()]++
		freq[tx.Sink.ID()]++
	}
	return freq
}

// Frequency is one row of a ranked frequency table.
type Frequency struct {
	Node  id.ID[model.Node]
	Count uint64
}

// Ranked orders freq by count, highest first. Ties are broken by ID so the
// output is stable across runs.
func Ranked(freq map[id.ID[model.Node]]uint64) []Frequency {
	out := make([]Frequency, 0, len(freq))
	for node, count := range freq {
		out = append(out, Frequency{Node: node, Count: count})
	}
	slices.SortFunc(out, func(a, b Frequency) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return id.Compare(a.Node, b.Node)
	})
	return out
}

// Total is the money that flowed into and out of one owned node.
type Total struct {
	Node model.Node
	In   decimal.Decimal
	Out  decimal.Decimal
	// Count is the number of transactions touching the node.
	Count int
}

// Net is In minus Out.
func (t Total) Net() decimal.Decimal { return t.In.Sub(t.Out) }

// Totals sums incoming and outgoing amounts per owned node, in profile order.
// Transfers between two owned nodes count on both sides.
func Totals(store *ledger.Transactions, o *owner.Owner) []Total {
	totals := make([]Total, len(o.Nodes))
	index := make(map[id.ID[model.Node]]int, len(o.Nodes))
	for i, n := range o.Nodes {
		totals[i] = Total{Node: n, In: decimal.Zero, Out: decimal.Zero}
		if _, dup := index[n.ID()]; !dup {
			index[n.ID()] = i
		}
	}
	for tx := range store.All() {
		src, srcOK := index[tx.Source.ID()]
		sink, sinkOK := index[tx.Sink.ID()]
		if srcOK {
			totals[src].Out = totals[src].Out.Add(tx.Amount)
			totals[src].Count++
		}
		if sinkOK {
			totals[sink].In = totals[sink].In.Add(tx.Amount)
			if !srcOK || sink != src {
				totals[sink].Count++
			}
		}
	}
	return totals
}
