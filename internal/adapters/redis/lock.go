package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"brokerage_site/internal/domain"
)

// Lock is a domain.SeedLock using SET NX PX, so acquisition is atomic and a
// crashed holder's lock expires server-side. The value is the JSON LockInfo,
// which keeps it readable by the KV-backed lock as well.
type Lock struct {
	c   redis.UniversalClient
	key string
	now func() time.Time
}

var _ domain.SeedLock = (*Lock)(nil)

func NewLock(c redis.UniversalClient, namespace, key string) *Lock {
	return &Lock{c: c, key: namespace + key, now: time.Now}
}

// KEYS[1] lock key, ARGV[1] owner, ARGV[2] new value, ARGV[3] ttl ms
var refreshScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then return 0 end
local ok, info = pcall(cjson.decode, v)
if not ok or type(info) ~= "table" or info.owner ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// KEYS[1] lock key, ARGV[1] owner
var releaseScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then return 0 end
local ok, info = pcall(cjson.decode, v)
if not ok or type(info) ~= "table" or info.owner ~= ARGV[1] then return 0 end
return redis.call("DEL", KEYS[1])
`)

func (l *Lock) info(owner string, ttl time.Duration) ([]byte, error) {
	now := l.now().UTC()
	return json.Marshal(domain.LockInfo{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)})
}

func (l *Lock) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	b, err := l.info(owner, ttl)
	if err != nil {
		return false, err
	}
	ok, err := l.c.SetNX(ctx, l.key, b, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return ok, nil
}

func (l *Lock) Refresh(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	cur, held, err := l.Holder(ctx)
	if err != nil || !held {
		return false, err
	}
	cur.ExpiresAt = l.now().UTC().Add(ttl)
	b, err := json.Marshal(cur)
	if err != nil {
		return false, err
	}
	n, err := refreshScript.Run(ctx, l.c, []string{l.key}, owner, string(b), ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh lock: %w", err)
	}
	return n == 1, nil
}

// Release deletes the lock only while owner holds it.
func (l *Lock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.c, []string{l.key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Holder reads the current lock. A non-JSON or ownerless value counts as held
// by "unknown" until it expires or is broken.
func (l *Lock) Holder(ctx context.Context) (domain.LockInfo, bool, error) {
	v, err := l.c.Get(ctx, l.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.LockInfo{}, false, nil
	}
	if err != nil {
		return domain.LockInfo{}, false, fmt.Errorf("read lock: %w", err)
	}
	var info domain.LockInfo
	if err := json.Unmarshal(v, &info); err != nil || info.Owner == "" {
		return domain.LockInfo{Owner: "unknown"}, true, nil
	}
	return info, true, nil
}

func (l *Lock) Break(ctx context.Context) error {
	if err := l.c.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("break lock: %w", err)
	}
	return nil
}
