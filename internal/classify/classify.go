// Package classify turns parsed bank records into canonical transactions.
//
// The counterparty of a record is resolved by an ordered chain of rules; the
// first rule that recognizes the record decides the node. Order matters: a
// card payment that also carries a counterparty string must still resolve to
// a terminal.
package classify

import (
	"fmt"
	"regexp"

	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/model"
)

// FallbackTerminalID stands in for the terminal of card payments and cash
// withdrawals whose description has no "Term:" token. Every such payment
// shares this one terminal node.
const FallbackTerminalID = "UNKNOWN_TERM_ID"

var (
	terminalPattern = regexp.MustCompile(`Term: (?P<terminal>\w+)`)
	savingsPattern  = regexp.MustCompile(`Oranje spaarrekening.*(?P<bsan>[A-Z]\d+)`)
	numericPattern  = regexp.MustCompile(`\d+`)
	tagPattern      = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
)

// Options tune the default rule chain.
type Options struct {
	// BankName labels the node that bank service charges go to.
	BankName string
	// OwnAccountName is the display name of the account the export belongs to.
	OwnAccountName string
	// FallbackTerminalID replaces FallbackTerminalID when set.
	FallbackTerminalID string
}

// DefaultOptions matches ING exports.
func DefaultOptions() Options {
	return Options{
		BankName:           "ING",
		OwnAccountName:     "My Account",
		FallbackTerminalID: FallbackTerminalID,
	}
}

// Rule resolves the counterparty of a record, or reports ok=false to let the
// next rule try.
type Rule struct {
	Name    string
	Resolve func(rec importer.Record) (node model.Node, ok bool)
}

// Classifier applies a fixed, ordered rule chain.
type Classifier struct {
	opts  Options
	rules []Rule
}

// New returns a Classifier with the default rule chain.
func New(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.BankName == "" {
		opts.BankName = def.BankName
	}
	if opts.OwnAccountName == "" {
		opts.OwnAccountName = def.OwnAccountName
	}
	if opts.FallbackTerminalID == "" {
		opts.FallbackTerminalID = def.FallbackTerminalID
	}
	c := &Classifier{opts: opts}
	c.rules = c.defaultRules()
	return c
}

// NewWithRules returns a Classifier that applies rules in the given order.
func NewWithRules(opts Options, rules ...Rule) *Classifier {
	c := New(opts)
	c.rules = rules
	return c
}

// Rules returns the names of the rules in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Classify resolves rec into a Transaction. The user's own account is the
// sink of incoming records and the source of outgoing ones; the rules
// resolve the other side.
func (c *Classifier) Classify(rec importer.Record) (model.Transaction, error) {
	counterparty, _, ok := c.Counterparty(rec)
	if !ok {
		return model.Transaction{}, &ClassificationError{Record: rec}
	}

	own := model.ProperAccount(c.ownAccount(rec))
	tx := model.Transaction{
		Date:        rec.Date,
		Amount:      rec.Amount,
		Tags:        ExtractTags(rec.Tags),
		Description: rec.Description,
	}
	switch rec.Direction {
	case model.Incoming:
		tx.Source, tx.Sink = counterparty, own
	case model.Outgoing:
		tx.Source, tx.Sink = own, counterparty
	default:
		return model.Transaction{}, fmt.Errorf("record %s row %d: unknown direction %q", rec.Source, rec.Row, rec.Direction)
	}
	return tx, nil
}

// Counterparty runs the rule chain and returns the resolved node together
// with the name of the rule that matched.
func (c *Classifier) Counterparty(rec importer.Record) (model.Node, string, bool) {
	for _, r := range c.rules {
		if node, ok := r.Resolve(rec); ok {
			return node, r.Name, true
		}
	}
	return model.Node{}, "", false
}

func (c *Classifier) ownAccount(rec importer.Record) model.Account {
	return model.Account{IBAN: rec.Account, Name: c.opts.OwnAccountName}
}

func (c *Classifier) defaultRules() []Rule {
	return []Rule{
		{Name: "terminal", Resolve: c.terminal},
		{Name: "atm", Resolve: c.atm},
		{Name: "bank-charge", Resolve: c.bankCharge},
		{Name: "cash-deposit", Resolve: cashDeposit},
		{Name: "counterparty", Resolve: c.counterparty},
		{Name: "savings", Resolve: c.savings},
	}
}

func (c *Classifier) terminal(rec importer.Record) (model.Node, bool) {
	if rec.Code != importer.CodeCardPayment {
		return model.Node{}, false
	}
	return model.Terminal(c.terminalID(rec.Description)), true
}

func (c *Classifier) atm(rec importer.Record) (model.Node, bool) {
	if rec.Code != importer.CodeCashWithdrawal {
		return model.Node{}, false
	}
	return model.ATM(c.terminalID(rec.Description)), true
}

func (c *Classifier) bankCharge(rec importer.Record) (model.Node, bool) {
	if rec.Code != importer.CodeBankCharge {
		return model.Node{}, false
	}
	return model.Other(c.opts.BankName), true
}

func cashDeposit(rec importer.Record) (model.Node, bool) {
	if rec.Code != importer.CodeCashDeposit {
		return model.Node{}, false
	}
	return model.Other("Deposit"), true
}

// counterparty resolves a filled-in counterparty column: an IBAN is a proper
// account, anything with digits in it is one of the user's brokerage accounts.
func (c *Classifier) counterparty(rec importer.Record) (model.Node, bool) {
	if !rec.HasCounterParty() {
		return model.Node{}, false
	}
	if iban, err := model.ParseIBAN(rec.CounterParty); err == nil {
		return model.ProperAccount(model.Account{IBAN: iban, Name: rec.Name}), true
	}
	if numericPattern.MatchString(rec.CounterParty) {
		return model.SubAccountNode(model.SubAccount{
			BSAN:   rec.CounterParty,
			Name:   rec.Name,
			Parent: c.ownAccount(rec),
			Type:   model.AccountTypeBrokerage,
		}), true
	}
	return model.Node{}, false
}

func (c *Classifier) savings(rec importer.Record) (model.Node, bool) {
	m := savingsPattern.FindStringSubmatch(rec.Description)
	if m == nil {
		return model.Node{}, false
	}
	return model.SubAccountNode(model.SubAccount{
		BSAN:   m[savingsPattern.SubexpIndex("bsan")],
		Name:   rec.Name,
		Parent: c.ownAccount(rec),
		Type:   model.AccountTypeSaving,
	}), true
}

func (c *Classifier) terminalID(description string) string {
	m := terminalPattern.FindStringSubmatch(description)
	if m == nil {
		return c.opts.FallbackTerminalID
	}
	return m[terminalPattern.SubexpIndex("terminal")]
}

// ExtractTags returns the #tags in s as a sorted set. A tag ends at the
// first character that is not a letter, digit or underscore.
func ExtractTags(s string) []string {
	return model.NewTagSet(tagPattern.FindAllString(s, -1))
}

// ClassificationError reports a record no rule recognized.
type ClassificationError struct {
	Record importer.Record
}

func (e *ClassificationError) Error() string {
	r := e.Record
	return fmt.Sprintf("%s: row %d: cannot classify counterparty of %s %s transaction %q (counterparty %q)",
		r.Source, r.Row, r.Code, r.Direction, r.Name, r.CounterParty)
}
