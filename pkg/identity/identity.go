// Package identity holds the address primitive shared by callers,
// creators, and benefactors. Authentication happens at the boundary;
// the ledger only ever sees already-verified addresses.
package identity

import (
	"fmt"
	"strings"
)

// Address identifies a party on the platform. It is opaque to the ledger;
// validity means "non-blank" and nothing more.
type Address string

// Zero is the null address. Campaigns may be created with a zero
// benefactor but can never settle to one.
const Zero Address = ""

// Parse validates and returns an Address.
func Parse(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Zero, fmt.Errorf("address must not be blank")
	}
	return Address(trimmed), nil
}

// String returns the string representation of the address.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is the null address.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}
