// Package allowlist is the registry of destination addresses pre-approved
// for transfer. The authorization engine consults it on every request and
// never mutates it; additions are an operator action (CLI or HTTP).
package allowlist

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is one pre-approved destination.
type Entry struct {
	Address string    `json:"address"` // canonical lowercase hex
	Label   string    `json:"label,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// Document is the on-disk shape of allowlist.json.
type Document struct {
	Addresses []Entry `json:"addresses"`
}

// Store persists the allowlist for one wallet directory.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Contains(ctx context.Context, address string) (bool, error)
	Add(ctx context.Context, address, label string) (*Entry, error)
}

// ValidationError reports an invalid address.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrInvalidAddress = &ValidationError{Code: "invalid_address", Message: "Address is not a valid hex address"}
	ErrDuplicate      = &ValidationError{Code: "duplicate_address", Message: "Address is already on the allowlist"}
)

// Canonicalize lowercases and validates an address. Matching is
// case-insensitive, so the lowercase form is the stored canonical one.
func Canonicalize(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(address), nil
}

// Checksum returns the EIP-55 checksummed display form of an address.
func Checksum(address string) string {
	if !common.IsHexAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

func containsCanonical(entries []Entry, canonical string) bool {
	for _, e := range entries {
		if strings.ToLower(e.Address) == canonical {
			return true
		}
	}
	return false
}
