// Package supabasead stores KV entries in a Supabase (PostgREST) table and
// verifies Supabase session tokens.
//
// Expected table:
//
//	create table kv_store (key text primary key, value jsonb not null, updated_at timestamptz default now());
package supabasead

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/supabase-community/supabase-go"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

const backend = "supabase"

type row struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store is a domain.KVStore over one PostgREST table. The client calls carry
// no context; cancellation stops at the HTTP client's own timeout.
type Store struct {
	c     *supabase.Client
	table string
}

var _ domain.CASStore = (*Store)(nil)

func NewClient(url, key string) (*supabase.Client, error) {
	c, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return c, nil
}

func New(c *supabase.Client, table string) *Store {
	if table == "" {
		table = "kv_store"
	}
	return &Store{c: c, table: table}
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var rows []row
	_, err := s.c.From(s.table).Select("key,value", "", false).Eq("key", key).ExecuteTo(&rows)
	if err != nil {
		observability.ObserveStore(backend, "get", false, err)
		return nil, false, fmt.Errorf("supabase get %q: %w", key, err)
	}
	vals := decodeRows(rows)
	observability.ObserveStore(backend, "get", len(vals) > 0, nil)
	if len(vals) == 0 {
		return nil, false, nil
	}
	return vals[0], true, nil
}

func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.c.From(s.table).Upsert(row{Key: key, Value: value}, "key", "minimal", "").Execute()
	observability.ObserveStore(backend, "set", false, err)
	if err != nil {
		return fmt.Errorf("supabase set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.c.From(s.table).Delete("minimal", "").Eq("key", key).Execute()
	observability.ObserveStore(backend, "delete", false, err)
	if err != nil {
		return fmt.Errorf("supabase delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []row
	_, err := s.c.From(s.table).Select("key,value", "", false).Like("key", likePrefix(prefix)).ExecuteTo(&rows)
	observability.ObserveStore(backend, "scan", false, err)
	if err != nil {
		return nil, fmt.Errorf("supabase scan %q: %w", prefix, err)
	}
	// LIKE is case-sensitive in Postgres, but double-check the literal prefix
	kept := rows[:0]
	for _, r := range rows {
		if strings.HasPrefix(r.Key, prefix) {
			kept = append(kept, r)
		}
	}
	return decodeRows(kept), nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var rows []row
	_, err := s.c.From(s.table).Delete("representation", "").Like("key", likePrefix(prefix)).ExecuteTo(&rows)
	observability.ObserveStore(backend, "delete_prefix", false, err)
	if err != nil {
		return 0, fmt.Errorf("supabase delete prefix %q: %w", prefix, err)
	}
	return len(rows), nil
}

// CompareAndSwap creates with a plain insert, which the primary key rejects
// when the row exists, and otherwise filters the PATCH or DELETE on the old
// jsonb value so a concurrent writer makes it match nothing.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, next json.RawMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := s.swap(ctx, key, old, next)
	observability.ObserveStore(backend, "cas", ok, err)
	if err != nil {
		return false, fmt.Errorf("supabase cas %q: %w", key, err)
	}
	return ok, nil
}

func (s *Store) swap(ctx context.Context, key string, old, next json.RawMessage) (bool, error) {
	if old == nil {
		if next != nil {
			_, _, err := s.c.From(s.table).Insert(row{Key: key, Value: next}, false, "", "minimal", "").Execute()
			if err == nil {
				return true, nil
			}
			// a conflict and a transport error look alike here; the row tells them apart
			_, exists, gerr := s.Get(ctx, key)
			if gerr != nil || !exists {
				return false, err
			}
			return false, nil
		}
		_, exists, err := s.Get(ctx, key)
		return err == nil && !exists, err
	}

	var rows []row
	var err error
	if next == nil {
		_, err = s.c.From(s.table).Delete("representation", "").
			Eq("key", key).Eq("value", string(old)).ExecuteTo(&rows)
	} else {
		_, err = s.c.From(s.table).Update(map[string]json.RawMessage{"value": next}, "representation", "").
			Eq("key", key).Eq("value", string(old)).ExecuteTo(&rows)
	}
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string { return likeEscaper.Replace(prefix) + "%" }

// decodeRows orders rows by key and drops values that are not JSON.
func decodeRows(rows []row) []json.RawMessage {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		if len(r.Value) == 0 || !json.Valid(r.Value) {
			log.Warn().Str("key", r.Key).Msg("skipping malformed JSON value")
			continue
		}
		out = append(out, r.Value)
	}
	return out
}
