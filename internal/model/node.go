package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/id"
)

// NodeKind names the variant held by a Node.
type NodeKind string

const (
	KindProperAccount NodeKind = "proper_account"
	KindSubAccount    NodeKind = "sub_account"
	KindTerminal      NodeKind = "terminal"
	KindATM           NodeKind = "atm"
	KindOther         NodeKind = "other"
)

// Node is an endpoint money flows between: a proper account, a sub-account,
// a payment terminal, an ATM, or some other counterparty such as the bank
// itself. Exactly one payload is set, selected by Kind.
type Node struct {
	kind    NodeKind
	account Account
	sub     SubAccount
	label   string
}

// ProperAccount wraps a bank account with an IBAN.
func ProperAccount(a Account) Node {
	return Node{kind: KindProperAccount, account: a}
}

// SubAccountNode wraps a sub-account.
func SubAccountNode(s SubAccount) Node {
	return Node{kind: KindSubAccount, sub: s}
}

// Terminal is a card payment terminal identified by its terminal ID.
func Terminal(terminalID string) Node {
	return Node{kind: KindTerminal, label: terminalID}
}

// ATM is a cash machine identified by its terminal ID.
func ATM(terminalID string) Node {
	return Node{kind: KindATM, label: terminalID}
}

// Other is a counterparty that fits no other kind, e.g. bank charges or deposits.
func Other(label string) Node {
	return Node{kind: KindOther, label: label}
}

// Kind returns the variant.
func (n Node) Kind() NodeKind { return n.kind }

// Account returns the wrapped account of a proper-account node.
func (n Node) Account() (Account, bool) {
	return n.account, n.kind == KindProperAccount
}

// SubAccount returns the wrapped sub-account of a sub-account node.
func (n Node) SubAccount() (SubAccount, bool) {
	return n.sub, n.kind == KindSubAccount
}

// Label returns the identifier carried by terminal, ATM and other nodes.
func (n Node) Label() string { return n.label }

// ID passes through the identity of a wrapped account or sub-account and
// hashes the label otherwise. Two nodes wrapping the same account are the
// same node whatever else differs.
func (n Node) ID() id.ID[Node] {
	switch n.kind {
	case KindProperAccount:
		return id.Retag[Node](n.account.ID())
	case KindSubAccount:
		return id.Retag[Node](n.sub.ID())
	default:
		return id.Hash[Node](n.label)
	}
}

// Same reports whether a and b have the same identity.
func Same(a, b Node) bool {
	return a.ID() == b.ID()
}

// Content lists every field of the node, variant included. Transaction
// identity is built from it so a renamed counterparty yields a new transaction.
func (n Node) Content() []string {
	switch n.kind {
	case KindProperAccount:
		return []string{string(n.kind), string(n.account.IBAN), n.account.Name}
	case KindSubAccount:
		return []string{
			string(n.kind), n.sub.BSAN, n.sub.Name,
			string(n.sub.Parent.IBAN), n.sub.Parent.Name, string(n.sub.Type),
		}
	default:
		return []string{string(n.kind), n.label}
	}
}

// Name is a short human name without the ID.
func (n Node) Name() string {
	switch n.kind {
	case KindProperAccount:
		return "(PA) " + n.account.Name
	case KindSubAccount:
		return "(SA) " + n.sub.Name
	case KindTerminal:
		return "Payment Terminal"
	case KindATM:
		return "ATM"
	default:
		return n.label
	}
}

func (n Node) String() string {
	switch n.kind {
	case KindProperAccount:
		return n.account.String()
	case KindSubAccount:
		return n.sub.String()
	case KindTerminal:
		return fmt.Sprintf("*%s* %s (Payment Terminal)", n.ID(), n.label)
	case KindATM:
		return fmt.Sprintf("^%s^ %s (ATM)", n.ID(), n.label)
	default:
		return fmt.Sprintf("<%s> %s (Other)", n.ID(), n.label)
	}
}

// nodeWire is the serialized form: the kind plus exactly one payload.
type nodeWire struct {
	Kind       NodeKind    `json:"kind" yaml:"kind"`
	Account    *Account    `json:"account,omitempty" yaml:"account,omitempty"`
	SubAccount *SubAccount `json:"sub_account,omitempty" yaml:"sub_account,omitempty"`
	Label      string      `json:"label,omitempty" yaml:"label,omitempty"`
}

func (n Node) wire() nodeWire {
	w := nodeWire{Kind: n.kind}
	switch n.kind {
	case KindProperAccount:
		a := n.account
		w.Account = &a
	case KindSubAccount:
		s := n.sub
		w.SubAccount = &s
	default:
		w.Label = n.label
	}
	return w
}

func (w nodeWire) node() (Node, error) {
	switch w.Kind {
	case KindProperAccount:
		if w.Account == nil {
			return Node{}, fmt.Errorf("node %s: missing account", w.Kind)
		}
		return ProperAccount(*w.Account), nil
	case KindSubAccount:
		if w.SubAccount == nil {
			return Node{}, fmt.Errorf("node %s: missing sub_account", w.Kind)
		}
		if !w.SubAccount.Type.Valid() {
			return Node{}, fmt.Errorf("node %s: unknown account type %q", w.Kind, w.SubAccount.Type)
		}
		return SubAccountNode(*w.SubAccount), nil
	case KindTerminal:
		return Terminal(w.Label), nil
	case KindATM:
		return ATM(w.Label), nil
	case KindOther:
		return Other(w.Label), nil
	default:
		return Node{}, fmt.Errorf("unknown node kind %q", w.Kind)
	}
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := w.node()
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n Node) MarshalYAML() (any, error) {
	return n.wire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var w nodeWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	parsed, err := w.node()
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
