// Package model defines domain models for event decoding and attribution.
package model

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// WordSize is the width of an EVM log word in bytes.
const WordSize = 32

// Word is a 32-byte log word in canonical form: lowercase hex with 0x prefix.
type Word string

// Identifier is a tournament or match id.
type Identifier uint64

// Word returns the canonical left-padded big-endian encoding of the identifier.
func (id Identifier) Word() Word {
	return Word(fmt.Sprintf("0x%064x", uint64(id)))
}

// String renders the identifier as a decimal string.
func (id Identifier) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Bytes decodes the word into raw bytes.
func (w Word) Bytes() ([]byte, error) {
	s := strings.TrimPrefix(string(w), "0x")
	if len(s) != WordSize*2 {
		return nil, fmt.Errorf("word %q has %d hex chars", w, len(s))
	}
	return hex.DecodeString(s)
}

// Uint interprets the word as an unsigned big-endian integer and reports
// whether it is at most ceiling.
func (w Word) Uint(ceiling uint64) (uint64, bool) {
	b, err := w.Bytes()
	if err != nil {
		return 0, false
	}
	v := new(big.Int).SetBytes(b)
	if !v.IsUint64() || v.Uint64() > ceiling {
		return 0, false
	}
	return v.Uint64(), true
}

// Identifier decodes the word as an identifier if it fits into 64 bits.
func (w Word) Identifier() (Identifier, bool) {
	v, ok := w.Uint(^uint64(0))
	return Identifier(v), ok
}

// Address returns the lowercase address held in the low 20 bytes of the word.
// Words with non-zero upper bytes or an all-zero payload are not addresses.
func (w Word) Address() (string, bool) {
	b, err := w.Bytes()
	if err != nil {
		return "", false
	}
	for _, x := range b[:WordSize-20] {
		if x != 0 {
			return "", false
		}
	}
	addr := b[WordSize-20:]
	zero := true
	for _, x := range addr {
		if x != 0 {
			zero = false
			break
		}
	}
	if zero {
		return "", false
	}
	return "0x" + hex.EncodeToString(addr), true
}

// NormalizeAddress lowercases an address and ensures the 0x prefix.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}
