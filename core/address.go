// Package core defines the address types and domain records shared by the
// wallet session, contract bindings and orchestration layers.
package core

import (
	"encoding/hex"
	"strings"
)

// Address represents an account or contract address on the chain.
type Address [20]byte

// Hash represents a transaction hash.
type Hash [32]byte

var ZeroAddress = Address{}
var ZeroHash = Hash{}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Equal reports whether two addresses are the same account. Address values
// are byte-exact, so hex-case differences disappear at parse time.
func (a Address) Equal(b Address) bool {
	return a == b
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// ParseAddress decodes a hex address, with or without the 0x prefix.
// Hex case is ignored.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return ZeroAddress, ErrInvalidAddress
	}
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil || len(raw) != 20 {
		return ZeroAddress, ErrInvalidAddress
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// AddressFromString decodes a hex address, returning ZeroAddress on any
// malformed input.
func AddressFromString(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		return ZeroAddress
	}
	return a
}

func HashFromString(s string) Hash {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash
	}
	var h Hash
	copy(h[:], raw)
	return h
}
