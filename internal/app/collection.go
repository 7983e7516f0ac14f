package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/domain"
)

// Collection is a typed repository over every KV key sharing one prefix.
// T is the record struct, P its pointer type carrying the domain.Record methods.
type Collection[T any, P interface {
	*T
	domain.Record
}] struct {
	kv      domain.KVStore
	prefix  string
	entity  string // seed flag suffix, e.g. "properties"
	display string // human name for errors, e.g. "Property"
	seed    []T
	now     func() time.Time
	newID   func() string
}

type CollectionOption func(*collectionOpts)

type collectionOpts struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) CollectionOption {
	return func(o *collectionOpts) { o.now = now }
}

// WithIDs overrides id generation.
func WithIDs(gen func() string) CollectionOption {
	return func(o *collectionOpts) { o.newID = gen }
}

func NewCollection[T any, P interface {
	*T
	domain.Record
}](kv domain.KVStore, prefix, entity, display string, seed []T, opts ...CollectionOption) *Collection[T, P] {
	o := collectionOpts{now: time.Now, newID: uuid.NewString}
	for _, fn := range opts {
		fn(&o)
	}
	return &Collection[T, P]{
		kv:      kv,
		prefix:  prefix,
		entity:  entity,
		display: display,
		seed:    seed,
		now:     o.now,
		newID:   o.newID,
	}
}

func (c *Collection[T, P]) Entity() string      { return c.entity }
func (c *Collection[T, P]) DisplayName() string { return c.display }

func (c *Collection[T, P]) key(id string) string { return c.prefix + id }

func (c *Collection[T, P]) decode(raw json.RawMessage) (*T, error) {
	rec := new(T)
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Collection[T, P]) put(ctx context.Context, rec *T) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.entity, err)
	}
	return c.kv.Set(ctx, c.key(P(rec).Base().ID), b)
}

// ListAll returns every record, ordered by displayOrder for ordered entities
// and newest first otherwise.
func (c *Collection[T, P]) ListAll(ctx context.Context) ([]*T, error) {
	raws, err := c.kv.GetByPrefix(ctx, c.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		rec, err := c.decode(raw)
		if err != nil {
			log.Warn().Err(err).Str("prefix", c.prefix).Msg("skipping undecodable record")
			continue
		}
		if P(rec).Base().ID == "" {
			log.Warn().Str("prefix", c.prefix).Msg("skipping record without id")
			continue
		}
		out = append(out, rec)
	}
	c.sort(out)
	return out, nil
}

func (c *Collection[T, P]) sort(recs []*T) {
	newestFirst := func(a, b *domain.Meta) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	if _, ordered := any(P(new(T))).(domain.Ordered); ordered {
		sort.SliceStable(recs, func(i, j int) bool {
			ri, rj := any(P(recs[i])).(domain.Ordered), any(P(recs[j])).(domain.Ordered)
			if ri.DisplayRank() != rj.DisplayRank() {
				return ri.DisplayRank() < rj.DisplayRank()
			}
			return newestFirst(ri.Base(), rj.Base())
		})
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return newestFirst(P(recs[i]).Base(), P(recs[j]).Base())
	})
}

func (c *Collection[T, P]) ListPublished(ctx context.Context) ([]*T, error) {
	return c.filter(ctx, func(m *domain.Meta) bool { return m.Published })
}

func (c *Collection[T, P]) ListFeatured(ctx context.Context) ([]*T, error) {
	return c.filter(ctx, func(m *domain.Meta) bool { return m.Published && m.Featured })
}

func (c *Collection[T, P]) filter(ctx context.Context, keep func(*domain.Meta) bool) ([]*T, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if keep(P(rec).Base()) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *Collection[T, P]) GetByID(ctx context.Context, id string) (*T, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	raw, ok, err := c.kv.Get(ctx, c.key(id))
	if err != nil || !ok {
		return nil, false, err
	}
	rec, err := c.decode(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", c.key(id)).Msg("stored record does not decode; treating as absent")
		return nil, false, nil
	}
	return rec, true, nil
}

// GetBySlug returns the first published record whose slug matches.
// Entities without slugs never match.
func (c *Collection[T, P]) GetBySlug(ctx context.Context, slug string) (*T, bool, error) {
	if slug == "" {
		return nil, false, nil
	}
	if _, ok := any(P(new(T))).(domain.Sluggable); !ok {
		return nil, false, nil
	}
	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, rec := range all {
		s := any(P(rec)).(domain.Sluggable)
		if s.CurrentSlug() == slug && s.Base().Published {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// Create assigns a fresh id, timestamps and slug, then persists the record.
// The caller's value is not modified.
func (c *Collection[T, P]) Create(ctx context.Context, in T, by domain.Identity) (*T, error) {
	return c.create(ctx, in, by, c.now().UTC())
}

func (c *Collection[T, P]) create(ctx context.Context, in T, by domain.Identity, now time.Time) (*T, error) {
	rec := &in
	if err := domain.Validate(rec); err != nil {
		return nil, err
	}
	m := P(rec).Base()
	m.ID = c.newID()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.CreatedBy = by.ID
	if s, ok := any(P(rec)).(domain.Sluggable); ok {
		s.SetSlug(domain.Slugify(s.SlugSource()))
	}
	if a, ok := any(P(rec)).(domain.Authored); ok && by.ID != "" {
		a.DefaultAuthor(by.DisplayName())
	}
	if err := c.put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update merges patch over the stored record. ok=false means no record has that id.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch domain.Patch) (*T, bool, error) {
	cur, ok, err := c.GetByID(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	prev := *P(cur).Base()

	merged, err := c.merge(cur, patch.Sanitized())
	if err != nil {
		return nil, true, err
	}
	m := P(merged).Base()
	m.ID = prev.ID
	m.CreatedAt = prev.CreatedAt
	m.CreatedBy = prev.CreatedBy

	// updatedAt must move forward even when the clock has not
	now := c.now().UTC()
	if !now.After(prev.UpdatedAt) {
		now = prev.UpdatedAt.Add(time.Millisecond)
	}
	m.UpdatedAt = now

	if s, ok := any(P(merged)).(domain.Sluggable); ok && patch.Has("title") {
		s.SetSlug(domain.Slugify(s.SlugSource()))
	}
	if err := domain.Validate(merged); err != nil {
		return nil, true, err
	}
	if err := c.put(ctx, merged); err != nil {
		return nil, true, err
	}
	return merged, true, nil
}

func (c *Collection[T, P]) merge(cur *T, patch domain.Patch) (*T, error) {
	b, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	b, err = json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	return out, nil
}

// Delete reports whether a record existed at id.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) (bool, error) {
	_, ok, err := c.GetByID(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if err := c.kv.Delete(ctx, c.key(id)); err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of decodable records.
func (c *Collection[T, P]) Count(ctx context.Context) (int, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Purge deletes every key under the collection prefix, including rows that do
// not decode or whose key disagrees with their id, and returns how many went.
func (c *Collection[T, P]) Purge(ctx context.Context) (int, error) {
	return c.kv.DeleteByPrefix(ctx, c.prefix)
}

// InsertSeed creates every record of the fixed dataset. Individual failures are
// logged and counted, never fatal. Record i is stamped i minutes before the
// first so newest-first listings keep the dataset's order.
func (c *Collection[T, P]) InsertSeed(ctx context.Context) (inserted, failed int) {
	base := c.now().UTC()
	for i, rec := range c.seed {
		at := base.Add(-time.Duration(i) * time.Minute)
		if _, err := c.create(ctx, rec, domain.Identity{ID: "seed"}, at); err != nil {
			failed++
			log.Error().Err(err).Str("entity", c.entity).Int("index", i).Msg("seed insert failed")
			continue
		}
		inserted++
	}
	return inserted, failed
}

// SeedSize is the number of records in the fixed dataset.
func (c *Collection[T, P]) SeedSize() int { return len(c.seed) }
