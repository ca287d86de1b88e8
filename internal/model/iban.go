package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jbub/banking/iban"
)

// ErrInvalidIBAN is wrapped by every ParseIBAN failure.
var ErrInvalidIBAN = errors.New("invalid IBAN")

// IBAN is a normalized International Bank Account Number: no spaces, upper case.
type IBAN string

// ParseIBAN normalizes s and validates it against the IBAN registry: country
// code, per-country length and BBAN structure, and the mod-97 check digits.
func ParseIBAN(s string) (IBAN, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if err := iban.Validate(norm); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidIBAN, s, err)
	}
	return IBAN(norm), nil
}

// MustParseIBAN is ParseIBAN for literals in tests and defaults.
func MustParseIBAN(s string) IBAN {
	v, err := ParseIBAN(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the IBAN in electronic format.
func (i IBAN) String() string { return string(i) }

// Country returns the ISO 3166 country code.
func (i IBAN) Country() string {
	if len(i) < 2 {
		return ""
	}
	return string(i[:2])
}

// MarshalText implements encoding.TextMarshaler.
func (i IBAN) MarshalText() ([]byte, error) {
	return []byte(i), nil
}

// UnmarshalText validates the IBAN while decoding profiles.
func (i *IBAN) UnmarshalText(text []byte) error {
	parsed, err := ParseIBAN(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
