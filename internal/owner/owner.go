// Package owner describes which nodes of the transaction graph belong to the
// user, and answers questions about transactions from the user's side.
package owner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/ledger"
	"github.com/tally-dev/tally/internal/model"
)

// ErrInternalTransfer is returned by Direction when the user owns both ends.
var ErrInternalTransfer = fmt.Errorf("internal transfer: %w", model.ErrSelfTransfer)

// Owner is a user profile: a name and the nodes they own.
type Owner struct {
	Name  string       `yaml:"name" json:"name"`
	Nodes []model.Node `yaml:"owns" json:"owns"`
}

// View returns the owned node with the given identity.
func (o *Owner) View(nodeID id.ID[model.Node]) (model.Node, bool) {
	for _, n := range o.Nodes {
		if n.ID() == nodeID {
			return n, true
		}
	}
	return model.Node{}, false
}

// Owns reports whether nodeID is one of the user's nodes.
func (o *Owner) Owns(nodeID id.ID[model.Node]) bool {
	_, ok := o.View(nodeID)
	return ok
}

// Direction of t as seen by the user. A transfer between two owned nodes
// returns ErrInternalTransfer, which matches model.ErrSelfTransfer.
func (o *Owner) Direction(t model.Transaction) (model.Direction, error) {
	src, sink := o.Owns(t.Source.ID()), o.Owns(t.Sink.ID())
	switch {
	case src && sink:
		return "", ErrInternalTransfer
	case sink:
		return model.Incoming, nil
	case src:
		return model.Outgoing, nil
	}
	return "", model.ErrNotParty
}

// Involving keeps the transactions with at least one owned endpoint.
func (o *Owner) Involving(store *ledger.Transactions) *ledger.Transactions {
	return store.Filter(func(t model.Transaction) bool {
		return o.Owns(t.Source.ID()) || o.Owns(t.Sink.ID())
	})
}

// Internal keeps the transfers between two owned nodes.
func (o *Owner) Internal(store *ledger.Transactions) *ledger.Transactions {
	return store.Filter(func(t model.Transaction) bool {
		return o.Owns(t.Source.ID()) && o.Owns(t.Sink.ID())
	})
}

// Label is the display string of an owned node, or the bare ID otherwise.
func (o *Owner) Label(nodeID id.ID[model.Node]) string {
	if n, ok := o.View(nodeID); ok {
		return n.String()
	}
	return nodeID.String()
}

// Load reads a profile from a YAML or JSON file.
func Load(path string) (*Owner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var o Owner
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if o.Name == "" {
		return nil, fmt.Errorf("parsing profile %s: missing name", path)
	}
	return &o, nil
}

// Save writes the profile as YAML.
func Save(path string, o *Owner) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}
