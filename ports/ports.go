// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/recordbase/core/events"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Random provides random bytes for secrets.
type Random interface {
	// Bytes returns n random bytes.
	Bytes(n int) ([]byte, error)

	// String returns a random hex string of n characters.
	String(n int) (string, error)
}

// Hasher provides one-way hashing of secret field values.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics records engine outcomes.
type Metrics interface {
	// ValidationFailed counts a rejected validation pass
	// ("lookup", "structural", "custom", "uniqueness").
	ValidationFailed(model, pass string)

	// RecordSaved counts a write ("create", "update", "delete").
	RecordSaved(model, operation string)

	// UniquenessViolated counts a duplicated unique key.
	UniquenessViolated(model string)

	// AccessDenied counts a denied access gate check.
	AccessDenied(model, mode string)
}

// EventPublisher publishes record lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
