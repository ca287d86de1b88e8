package model

import (
	"fmt"

	"github.com/tally-dev/tally/internal/id"
)

// AccountType classifies sub-accounts. The zero value means the type is not known.
type AccountType string

const (
	AccountTypeChecking  AccountType = "checking"
	AccountTypeSaving    AccountType = "saving"
	AccountTypeDeposit   AccountType = "deposit"
	AccountTypeBrokerage AccountType = "brokerage"
	AccountTypeUnknown   AccountType = "unknown"
)

// Valid reports whether t is unset or one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case "", AccountTypeChecking, AccountTypeSaving, AccountTypeDeposit, AccountTypeBrokerage, AccountTypeUnknown:
		return true
	}
	return false
}

// Account is a fully qualified bank account with an IBAN.
type Account struct {
	IBAN IBAN   `json:"iban" yaml:"iban"`
	Name string `json:"name" yaml:"name"`
}

// ID hashes the IBAN only; the name is display data.
func (a Account) ID() id.ID[Account] {
	return id.Hash[Account](string(a.IBAN))
}

func (a Account) String() string {
	return fmt.Sprintf("[%s] %s", a.ID(), a.Name)
}

// SubAccount is a sub-ledger (savings, brokerage) of a proper account that
// has no IBAN of its own.
type SubAccount struct {
	// BSAN is the bank's internal sub-account number.
	BSAN   string      `json:"bsan" yaml:"bsan"`
	Name   string      `json:"name" yaml:"name"`
	Parent Account     `json:"parent_account" yaml:"parent_account"`
	Type   AccountType `json:"account_type,omitempty" yaml:"account_type,omitempty"`
}

// ID hashes the BSAN only. Parent is informational.
func (s SubAccount) ID() id.ID[SubAccount] {
	return id.Hash[SubAccount](s.BSAN)
}

func (s SubAccount) String() string {
	return fmt.Sprintf("[%s/ %s] %s", s.Parent.ID(), s.ID(), s.Name)
}
