// Package idgen provides cryptographically random ID and code generation.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// WithPrefix generates a random ID with a prefix (e.g. "req_", "aud_").
// Result is prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// Hex generates a random hex string of the given byte length.
func Hex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Code generates a numeric confirmation code of exactly n digits, drawn
// uniformly from the full n-digit space (for n=6: 100000-999999). It uses
// crypto/rand; a predictable sequence here would let an agent confirm its
// own transfers.
func Code(n int) string {
	if n < 4 {
		n = 4
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	r, err := rand.Int(rand.Reader, span)
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return new(big.Int).Add(low, r).String()
}
