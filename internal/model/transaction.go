package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/id"
)

// DateFormat is the canonical day format used in identities and exports.
const DateFormat = "2006-01-02"

var (
	// ErrSelfTransfer is returned when source and sink are the same node, so
	// no single direction applies.
	ErrSelfTransfer = errors.New("self-transfer: source and sink are the same node")
	// ErrNotParty is returned when the perspective is neither source nor sink.
	ErrNotParty = errors.New("perspective is not a party to the transaction")
)

// Direction of a transaction as seen from one node.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// ParseDirection reads the bank's debit/credit column in English or Dutch.
func ParseDirection(s string) (Direction, error) {
	switch strings.TrimSpace(s) {
	case "Af", "Debit":
		return Outgoing, nil
	case "Bij", "Credit":
		return Incoming, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Transaction is a bank record normalized into a uniform shape, independent
// of the export format it came from.
type Transaction struct {
	Date        time.Time
	Source      Node
	Sink        Node
	Amount      decimal.Decimal
	Tags        []string // sorted, no duplicates; see NewTagSet
	Description string
}

// ID hashes every field. Two transactions are duplicates iff their IDs match.
func (t Transaction) ID() id.ID[Transaction] {
	fields := make([]string, 0, 16)
	fields = append(fields, t.Date.Format(DateFormat))
	fields = append(fields, t.Source.Content()...)
	fields = append(fields, t.Sink.Content()...)
	fields = append(fields, t.Amount.String(), strings.Join(t.Tags, "\x00"), t.Description)
	return id.Hash[Transaction](fields...)
}

// Direction returns Incoming if perspective is the sink and Outgoing if it is
// the source. A transaction between a node and itself has no direction.
func (t Transaction) Direction(perspective Node) (Direction, error) {
	pid := perspective.ID()
	isSink := t.Sink.ID() == pid
	isSource := t.Source.ID() == pid
	switch {
	case isSink && isSource:
		return "", ErrSelfTransfer
	case isSink:
		return Incoming, nil
	case isSource:
		return Outgoing, nil
	}
	return "", ErrNotParty
}

// Involves reports whether nodeID is the source or the sink.
func (t Transaction) Involves(nodeID id.ID[Node]) bool {
	return t.Source.ID() == nodeID || t.Sink.ID() == nodeID
}

// HasTag reports whether tag is one of the transaction's tags.
func (t Transaction) HasTag(tag string) bool {
	_, found := slices.BinarySearch(t.Tags, tag)
	return found
}

// NewTagSet sorts and deduplicates tags.
func NewTagSet(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}
