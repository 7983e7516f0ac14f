package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

const backend = "redis"

// scanBatch is the COUNT hint for SCAN and the MGET chunk size.
const scanBatch = 200

// Store is a domain.KVStore over plain Redis strings. Every key is stored
// under an optional namespace so several environments can share one instance.
type Store struct {
	c  redis.UniversalClient
	ns string
}

var _ domain.KVStore = (*Store)(nil)

func NewClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

func New(c redis.UniversalClient, namespace string) *Store {
	return &Store{c: c, ns: namespace}
}

func (s *Store) k(key string) string { return s.ns + key }

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	v, err := s.c.Get(ctx, s.k(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStore(backend, "get", false, nil)
		return nil, false, nil
	}
	if err != nil {
		observability.ObserveStore(backend, "get", false, err)
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	if !json.Valid(v) {
		log.Warn().Str("key", key).Msg("malformed JSON value; treating as absent")
		observability.ObserveStore(backend, "get", false, nil)
		return nil, false, nil
	}
	observability.ObserveStore(backend, "get", true, nil)
	return json.RawMessage(v), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	err := s.c.Set(ctx, s.k(key), []byte(value), 0).Err()
	observability.ObserveStore(backend, "set", false, err)
	if err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.c.Del(ctx, s.k(key)).Err()
	observability.ObserveStore(backend, "delete", false, err)
	if err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	out, err := s.scan(ctx, prefix)
	observability.ObserveStore(backend, "scan", false, err)
	return out, err
}

// keys lists the namespaced keys under prefix, sorted.
func (s *Store) keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(s.k(prefix)) + "*"
	seen := map[string]struct{}{}
	iter := s.c.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		seen[iter.Val()] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	// SCAN may repeat keys and has no order
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := s.deletePrefix(ctx, prefix)
	observability.ObserveStore(backend, "delete_prefix", false, err)
	return n, err
}

func (s *Store) deletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		d, err := s.c.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return n, fmt.Errorf("redis del %q: %w", prefix, err)
		}
		n += int(d)
	}
	return n, nil
}

func (s *Store) scan(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		vals, err := s.c.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis mget %q: %w", prefix, err)
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue // deleted between SCAN and MGET
			}
			if !json.Valid([]byte(str)) {
				log.Warn().Str("key", keys[start+i]).Msg("skipping malformed JSON value")
				continue
			}
			out = append(out, json.RawMessage(str))
		}
	}
	return out, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
