// Package random provides sources of random bytes for generated secrets.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/artpar/recordbase/ports"
)

// Real uses crypto/rand.
type Real struct{}

// Bytes generates n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// String generates a random hex string of n characters.
func (r Real) String(n int) (string, error) {
	return hexString(r, n)
}

var _ ports.Random = Real{}

// Fake returns preset values first and then deterministic bytes (for testing).
type Fake struct {
	mu      sync.Mutex
	presets [][]byte
	calls   int
}

// NewFake creates a fake returning presets in order.
func NewFake(presets ...[]byte) *Fake {
	return &Fake{presets: presets}
}

// Bytes returns the next preset, zero padded or cut to n, or n bytes
// counting up from the call number.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := make([]byte, n)
	if len(f.presets) > 0 {
		copy(b, f.presets[0])
		f.presets = f.presets[1:]
		return b, nil
	}

	f.calls++
	for i := range b {
		b[i] = byte(f.calls + i)
	}
	return b, nil
}

// String returns a deterministic hex string of n characters.
func (f *Fake) String(n int) (string, error) {
	return hexString(f, n)
}

var _ ports.Random = (*Fake)(nil)

func hexString(r ports.Random, n int) (string, error) {
	b, err := r.Bytes((n + 1) / 2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
