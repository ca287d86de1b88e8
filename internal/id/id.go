// Package id computes content-hash identifiers for domain entities.
//
// An ID is a 64-bit XXH64 digest of an entity's defining fields, tagged with
// the entity type it belongs to. The tag exists only for the compiler: an
// ID[Account] cannot be used where an ID[Node] is expected without an explicit
// call to Retag.
package id

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names the hash behind every ID. IDs are written to external
// stores as keys, so changing it requires a new version suffix.
const Algorithm = "xxh64/v1"

// width is the number of hex digits in a formatted ID.
const width = 16

// ID identifies an entity of type T.
type ID[T any] struct {
	value uint64
}

// Identifiable is implemented by entities that carry a content-hash ID.
type Identifiable[T any] interface {
	ID() ID[T]
}

// New wraps a raw hash value.
func New[T any](value uint64) ID[T] {
	return ID[T]{value: value}
}

// Hash returns the ID of the given defining fields. Each field is length
// prefixed, so ("ab", "c") and ("a", "bc") hash differently.
func Hash[T any](fields ...string) ID[T] {
	d := xxhash.New()
	var prefix [8]byte
	for _, f := range fields {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(f)))
		_, _ = d.Write(prefix[:])
		_, _ = d.WriteString(f)
	}
	return ID[T]{value: d.Sum64()}
}

// Retag reinterprets id under another entity type without rehashing.
// A wrapper whose identity is its inner entity's identity uses this to expose
// it: Retag[Node](account.ID()).
func Retag[To, From any](id ID[From]) ID[To] {
	return ID[To]{value: id.value}
}

// Value returns the raw hash.
func (i ID[T]) Value() uint64 { return i.value }

// IsZero reports whether i is the zero ID.
func (i ID[T]) IsZero() bool { return i.value == 0 }

// String renders the ID as 16 uppercase hex digits, e.g. "5E8C0A84534B0F04".
func (i ID[T]) String() string {
	return fmt.Sprintf("%0*X", width, i.value)
}

// Parse is the inverse of String.
func Parse[T any](s string) (ID[T], error) {
	if len(s) != width {
		return ID[T]{}, fmt.Errorf("invalid ID %q: want %d hex digits", s, width)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return ID[T]{}, fmt.Errorf("invalid ID %q: %w", s, err)
	}
	return ID[T]{value: v}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (i ID[T]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID[T]) UnmarshalText(text []byte) error {
	parsed, err := Parse[T](string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Less orders IDs by raw value.
func Less[T any](a, b ID[T]) bool {
	return a.value < b.value
}

// Compare orders IDs by value, for use with slices.SortFunc.
func Compare[T any](a, b ID[T]) int {
	return cmp.Compare(a.value, b.value)
}
