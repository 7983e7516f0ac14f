package domain

import (
	"context"
	"encoding/json"
	"time"
)

// KVStore is the generic key -> JSON value persistence every collection is built on.
// Implementations never inspect values beyond JSON validity.
type KVStore interface {
	// Get returns ok=false when the key is absent or its value is not valid JSON.
	Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)
	// Set creates or overwrites the value at key.
	Set(ctx context.Context, key string, value json.RawMessage) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
	// GetByPrefix returns the values of all keys starting with prefix, in no particular order.
	// Malformed values are logged and skipped.
	GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error)
	// DeleteByPrefix removes every key starting with prefix, whatever its value,
	// and returns how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Swapper is implemented by stores that can change one key atomically.
type Swapper interface {
	// CompareAndSwap replaces the value at key with next only if the stored value
	// still equals old. A nil old requires the key to be absent; a nil next
	// deletes the key. ok=false means another writer got there first.
	CompareAndSwap(ctx context.Context, key string, old, next json.RawMessage) (ok bool, err error)
}

// CASStore is a KVStore with atomic compare-and-swap.
type CASStore interface {
	KVStore
	Swapper
}

// LockInfo describes the current holder of the seed lock.
type LockInfo struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquiredAt,omitempty"`
	// ExpiresAt is zero for a lock that never expires.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// SeedLock is the process-wide advisory lock around seed runs.
type SeedLock interface {
	Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	Refresh(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, owner string) error
	Holder(ctx context.Context) (LockInfo, bool, error)
	// Break clears the lock regardless of owner.
	Break(ctx context.Context) error
}

// Identity is the caller resolved from a bearer token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// DisplayName is what gets stamped into author fields.
func (i Identity) DisplayName() string {
	if i.Email != "" {
		return i.Email
	}
	return i.ID
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
