// Package hasher provides one-way hashing of secret field values.
package hasher

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/ports"
)

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost.
// Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

var _ ports.Hasher = (*Bcrypt)(nil)

// Fake stores values with a visible marker instead of hashing (NOT FOR PRODUCTION).
type Fake struct{}

// FakePrefix marks values produced by Fake.
const FakePrefix = "$fake$"

// Hash returns plaintext behind FakePrefix.
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte(FakePrefix + plaintext), nil
}

// Compare does simple equality check.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == FakePrefix+plaintext
}

var _ ports.Hasher = Fake{}

// Hashed reports whether v already holds a hash, so saving a loaded record
// does not hash its secret twice.
func Hashed(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") ||
		strings.HasPrefix(v, "$2y$") || strings.HasPrefix(v, FakePrefix)
}

// SecretHooks returns hooks hashing the listed fields before validation.
// Empty and non-string values are left for validation to judge.
func SecretHooks(h ports.Hasher, fields []string) record.Hooks {
	if len(fields) == 0 {
		return record.Hooks{}
	}
	return record.Hooks{
		BeforeValidation: func(ctx context.Context, r *record.Record) error {
			for _, field := range fields {
				plain, ok := r.Get(field).(string)
				if !ok || plain == "" || Hashed(plain) {
					continue
				}
				hash, err := h.Hash(plain)
				if err != nil {
					return fmt.Errorf("hash %s.%s: %w", r.Model().Name, field, err)
				}
				r.Set(field, string(hash))
			}
			return nil
		},
	}
}

// Verify checks plaintext against the hash stored in field of r.
func Verify(h ports.Hasher, r *record.Record, field, plaintext string) bool {
	stored, ok := r.Get(field).(string)
	if !ok || stored == "" {
		return false
	}
	return h.Compare([]byte(stored), plaintext)
}
