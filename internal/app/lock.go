package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"brokerage_site/internal/domain"
)

// SeedLockKey is the KV key of the advisory seed lock.
const SeedLockKey = "seed:lock"

// casAttempts bounds how often a lock operation re-reads after losing a swap.
const casAttempts = 3

// NewStoreLock returns the seed lock kept in kv itself: atomic when the store
// can compare-and-swap, best effort otherwise.
func NewStoreLock(kv domain.KVStore) domain.SeedLock {
	if cas, ok := kv.(domain.CASStore); ok {
		return NewCASLock(cas)
	}
	log.Warn().Msg("store has no compare-and-swap; seed lock is best effort")
	return NewKVLock(kv)
}

// CASLock is a SeedLock stored as a KV entry and changed only through
// CompareAndSwap, so two callers can never both take it.
type CASLock struct {
	kv  domain.CASStore
	now func() time.Time
}

func NewCASLock(kv domain.CASStore) *CASLock {
	return &CASLock{kv: kv, now: time.Now}
}

// read returns the parsed lock plus the raw value the next swap must match.
func (l *CASLock) read(ctx context.Context) (domain.LockInfo, bool, json.RawMessage, error) {
	raw, ok, err := l.kv.Get(ctx, SeedLockKey)
	if err != nil || !ok {
		return domain.LockInfo{}, false, nil, err
	}
	info, held := domain.ParseLock(raw, l.now())
	return info, held, raw, nil
}

func (l *CASLock) Holder(ctx context.Context) (domain.LockInfo, bool, error) {
	info, held, _, err := l.read(ctx)
	return info, held, err
}

func (l *CASLock) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	for range casAttempts {
		cur, held, raw, err := l.read(ctx)
		if err != nil {
			return false, err
		}
		if held && cur.Owner != owner {
			return false, nil
		}
		now := l.now().UTC()
		next, err := json.Marshal(domain.LockInfo{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)})
		if err != nil {
			return false, err
		}
		ok, err := l.kv.CompareAndSwap(ctx, SeedLockKey, raw, next)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (l *CASLock) Refresh(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	for range casAttempts {
		cur, held, raw, err := l.read(ctx)
		if err != nil {
			return false, err
		}
		if !held || cur.Owner != owner {
			return false, nil
		}
		cur.ExpiresAt = l.now().UTC().Add(ttl)
		next, err := json.Marshal(cur)
		if err != nil {
			return false, err
		}
		ok, err := l.kv.CompareAndSwap(ctx, SeedLockKey, raw, next)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Release clears the lock if owner still holds it (or it has lapsed).
func (l *CASLock) Release(ctx context.Context, owner string) error {
	for range casAttempts {
		cur, held, raw, err := l.read(ctx)
		if err != nil || raw == nil {
			return err
		}
		if held && cur.Owner != owner {
			return nil
		}
		ok, err := l.kv.CompareAndSwap(ctx, SeedLockKey, raw, nil)
		if err != nil || ok {
			return err
		}
	}
	return nil
}

func (l *CASLock) Break(ctx context.Context) error {
	return l.kv.Delete(ctx, SeedLockKey)
}

// KVLock is the fallback SeedLock for stores without CompareAndSwap.
// Check-then-set is not atomic: two callers racing on a free lock can both
// win. The expiry lets a crashed holder's lock lapse on its own.
type KVLock struct {
	kv  domain.KVStore
	now func() time.Time
}

func NewKVLock(kv domain.KVStore) *KVLock {
	return &KVLock{kv: kv, now: time.Now}
}

func (l *KVLock) Holder(ctx context.Context) (domain.LockInfo, bool, error) {
	raw, ok, err := l.kv.Get(ctx, SeedLockKey)
	if err != nil || !ok {
		return domain.LockInfo{}, false, err
	}
	info, held := domain.ParseLock(raw, l.now())
	return info, held, nil
}

func (l *KVLock) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	cur, held, err := l.Holder(ctx)
	if err != nil {
		return false, err
	}
	if held && cur.Owner != owner {
		return false, nil
	}
	now := l.now().UTC()
	return true, l.write(ctx, domain.LockInfo{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)})
}

func (l *KVLock) Refresh(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	cur, held, err := l.Holder(ctx)
	if err != nil {
		return false, err
	}
	if !held || cur.Owner != owner {
		return false, nil
	}
	cur.ExpiresAt = l.now().UTC().Add(ttl)
	return true, l.write(ctx, cur)
}

func (l *KVLock) Release(ctx context.Context, owner string) error {
	cur, held, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if held && cur.Owner != owner {
		return nil
	}
	return l.kv.Delete(ctx, SeedLockKey)
}

func (l *KVLock) Break(ctx context.Context) error {
	return l.kv.Delete(ctx, SeedLockKey)
}

func (l *KVLock) write(ctx context.Context, info domain.LockInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return l.kv.Set(ctx, SeedLockKey, b)
}
