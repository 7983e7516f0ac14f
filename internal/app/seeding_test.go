package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
	"brokerage_site/internal/storage/memory"
)

func newSeeder(t *testing.T) (*app.Seeder, *app.Catalog, *memory.Store, domain.SeedLock) {
	t.Helper()
	cat, kv := newCatalog(t)
	lock := app.NewStoreLock(kv)
	s := app.NewSeeder(kv, lock, cat.Targets(), app.WithWorkers(3), app.WithLockTTL(time.Minute))
	return s, cat, kv, lock
}

func TestSeedAll_FromEmpty(t *testing.T) {
	s, cat, _, lock := newSeeder(t)
	ctx := context.Background()

	rep, err := s.SeedAll(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, e := range rep.Entities {
		if e.State != app.StateSeeded || e.Action != "inserted" || e.Failed != 0 {
			t.Fatalf("unexpected entity report: %+v", e)
		}
	}

	all, _ := cat.Properties.ListAll(ctx)
	if len(all) != 12 {
		t.Fatalf("properties = %d, want 12", len(all))
	}
	feat, _ := cat.Properties.ListFeatured(ctx)
	if len(feat) != 6 {
		t.Fatalf("featured properties = %d, want 6", len(feat))
	}
	for _, p := range feat {
		if !p.Featured {
			t.Fatalf("non-featured record in featured list: %s", p.Title)
		}
	}

	if _, held, _ := lock.Holder(ctx); held {
		t.Fatalf("lock must be released after the run")
	}
}

func TestSeedAll_Idempotent(t *testing.T) {
	s, cat, kv, _ := newSeeder(t)
	ctx := context.Background()

	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	n1 := kv.Len()
	rep, err := s.SeedAll(ctx)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if kv.Len() != n1 {
		t.Fatalf("second run changed key count: %d -> %d", n1, kv.Len())
	}
	for _, e := range rep.Entities {
		if e.Action != "skipped" || e.Inserted != 0 {
			t.Fatalf("expected skip, got %+v", e)
		}
	}
	if n, _ := cat.Properties.Count(ctx); n != 12 {
		t.Fatalf("properties = %d after reseed", n)
	}
}

func TestSeedAll_AdoptsExistingRecordsWhenFlagMissing(t *testing.T) {
	s, cat, kv, _ := newSeeder(t)
	ctx := context.Background()

	if _, err := cat.Testimonials.Create(ctx, domain.Testimonial{Name: "Admin", Content: "edited", Rating: 5}, admin); err != nil {
		t.Fatalf("create: %v", err)
	}
	rep, err := s.SeedAll(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, e := range rep.Entities {
		if e.Entity == "testimonials" && e.Action != "adopted" {
			t.Fatalf("testimonials should be adopted, got %+v", e)
		}
	}
	if n, _ := cat.Testimonials.Count(ctx); n != 1 {
		t.Fatalf("testimonials = %d, want 1 (no seed on top of admin data)", n)
	}
	if _, ok, _ := kv.Get(ctx, app.SeedFlagKey("testimonials")); !ok {
		t.Fatalf("flag must be restored")
	}
}

func TestSeedAll_BusyWhenLockHeld(t *testing.T) {
	s, cat, _, lock := newSeeder(t)
	ctx := context.Background()

	if ok, err := lock.Acquire(ctx, "other-process", time.Minute); !ok || err != nil {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if _, err := s.SeedAll(ctx); !errors.Is(err, domain.ErrSeedBusy) {
		t.Fatalf("expected ErrSeedBusy, got %v", err)
	}
	if n, _ := cat.Properties.Count(ctx); n != 0 {
		t.Fatalf("busy run must not insert")
	}
	info, held, _ := lock.Holder(ctx)
	if !held || info.Owner != "other-process" {
		t.Fatalf("rejected run must not touch the other holder's lock: %+v held=%v", info, held)
	}
}

func TestSeedAll_BareLegacyLockBlocks(t *testing.T) {
	s, _, kv, _ := newSeeder(t)
	ctx := context.Background()

	_ = kv.Set(ctx, app.SeedLockKey, []byte(`true`))
	if _, err := s.SeedAll(ctx); !errors.Is(err, domain.ErrSeedBusy) {
		t.Fatalf("expected ErrSeedBusy, got %v", err)
	}
	if err := s.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("seed after unlock: %v", err)
	}
}

func TestForceReseed(t *testing.T) {
	s, cat, _, _ := newSeeder(t)
	ctx := context.Background()

	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before, _ := cat.Properties.ListAll(ctx)

	// without clean the data is kept and only the flags are rebuilt
	rep, err := s.ForceReseed(ctx, false)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	for _, e := range rep.Entities {
		if e.Action != "adopted" {
			t.Fatalf("expected adopted after flag reset, got %+v", e)
		}
	}
	if n, _ := cat.Properties.Count(ctx); n != 12 {
		t.Fatalf("properties = %d after non-clean reseed", n)
	}

	rep, err = s.ForceReseed(ctx, true)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if rep.Entities[0].Purged != 12 || rep.Entities[0].Inserted != 12 {
		t.Fatalf("unexpected clean report: %+v", rep.Entities[0])
	}
	after, _ := cat.Properties.ListAll(ctx)
	if len(after) != 12 {
		t.Fatalf("properties = %d after clean reseed", len(after))
	}
	old := map[string]bool{}
	for _, p := range before {
		old[p.ID] = true
	}
	for _, p := range after {
		if old[p.ID] {
			t.Fatalf("clean reseed kept old record %s", p.ID)
		}
	}
}

func TestSeed_LockReleasedOnFailure(t *testing.T) {
	kv := memory.New()
	lock := app.NewStoreLock(kv)
	s := app.NewSeeder(kv, lock, []app.SeedTarget{brokenTarget{}})
	ctx := context.Background()

	if _, err := s.SeedAll(ctx); err == nil {
		t.Fatalf("expected error from broken target")
	}
	if _, held, _ := lock.Holder(ctx); held {
		t.Fatalf("lock must be released after a failed run")
	}
	if _, ok, _ := kv.Get(ctx, app.SeedFlagKey("broken")); ok {
		t.Fatalf("flag must not be written when every insert failed")
	}
}

func TestForceReseedClean_RemovesStrayRows(t *testing.T) {
	s, cat, kv, _ := newSeeder(t)
	ctx := context.Background()

	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// a row stored under a key that disagrees with its id, and one that no longer decodes
	_ = kv.Set(ctx, app.PropertyPrefix+"abc", json.RawMessage(`{"id":"xyz","title":"Legacy","published":true}`))
	_ = kv.Set(ctx, app.PropertyPrefix+"stray", json.RawMessage(`{"id":"stray","title":"Old","price":"lots"}`))

	rep, err := s.ForceReseed(ctx, true)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if rep.Entities[0].Purged != 14 {
		t.Fatalf("purged %d property keys, want 14", rep.Entities[0].Purged)
	}
	for _, k := range []string{"abc", "stray"} {
		if _, ok, _ := kv.Get(ctx, app.PropertyPrefix+k); ok {
			t.Fatalf("%s survived a clean reseed", k)
		}
	}
	if n, _ := cat.Properties.Count(ctx); n != 12 {
		t.Fatalf("properties = %d after clean reseed, want 12", n)
	}
}

// flakyStore fails every third property write.
type flakyStore struct {
	*memory.Store
	mu     sync.Mutex
	writes int
}

func (f *flakyStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	if strings.HasPrefix(key, app.PropertyPrefix) {
		f.mu.Lock()
		f.writes++
		n := f.writes
		f.mu.Unlock()
		if n%3 == 0 {
			return errors.New("write rejected")
		}
	}
	return f.Store.Set(ctx, key, value)
}

func TestSeedAll_PartialFailureStillFlags(t *testing.T) {
	kv := &flakyStore{Store: memory.New()}
	cat := app.NewCatalog(kv)
	s := app.NewSeeder(kv, app.NewStoreLock(kv), cat.Targets())
	ctx := context.Background()

	rep, err := s.SeedAll(ctx)
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	props := rep.Entities[0]
	if props.Entity != "properties" || props.Action != "inserted" || props.State != app.StateSeeded {
		t.Fatalf("unexpected report: %+v", props)
	}
	if props.Inserted != 8 || props.Failed != 4 {
		t.Fatalf("inserted=%d failed=%d, want 8/4", props.Inserted, props.Failed)
	}
	if _, ok, _ := kv.Get(ctx, app.SeedFlagKey("properties")); !ok {
		t.Fatalf("flag must be written after a partial failure")
	}
	if n, _ := cat.Properties.Count(ctx); n != 8 {
		t.Fatalf("properties = %d, want 8", n)
	}

	// the flag stops a second run from topping the dataset up
	rep, _ = s.SeedAll(ctx)
	if rep.Entities[0].Action != "skipped" {
		t.Fatalf("second run: %+v", rep.Entities[0])
	}
}

// slowTarget samples the lock holder before and after outliving the lock TTL.
type slowTarget struct {
	lock   domain.SeedLock
	wait   time.Duration
	before domain.LockInfo
	after  domain.LockInfo
	held   [2]bool
}

func (s *slowTarget) Entity() string                     { return "slow" }
func (s *slowTarget) Count(context.Context) (int, error) { return 0, nil }
func (s *slowTarget) Purge(context.Context) (int, error) { return 0, nil }
func (s *slowTarget) InsertSeed(ctx context.Context) (int, int) {
	s.before, s.held[0], _ = s.lock.Holder(ctx)
	time.Sleep(s.wait)
	s.after, s.held[1], _ = s.lock.Holder(ctx)
	return 1, 0
}

func TestSeed_HeartbeatKeepsLockPastTTL(t *testing.T) {
	kv := memory.New()
	lock := app.NewStoreLock(kv)
	ttl := 60 * time.Millisecond
	target := &slowTarget{lock: lock, wait: 4 * ttl}
	s := app.NewSeeder(kv, lock, []app.SeedTarget{target}, app.WithLockTTL(ttl))
	ctx := context.Background()

	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !target.held[0] || !target.held[1] {
		t.Fatalf("lock not held throughout the run: before=%v after=%v", target.held[0], target.held[1])
	}
	if target.before.Owner == "" || target.after.Owner != target.before.Owner {
		t.Fatalf("owner changed mid-run: %q -> %q", target.before.Owner, target.after.Owner)
	}
	if !target.after.ExpiresAt.After(target.before.ExpiresAt) {
		t.Fatalf("expiry was not extended: %v -> %v", target.before.ExpiresAt, target.after.ExpiresAt)
	}
	if _, held, _ := lock.Holder(ctx); held {
		t.Fatalf("lock must be released after the run")
	}
}

// laggyStore delays reads so concurrent runs interleave between reading and writing the lock.
type laggyStore struct{ *memory.Store }

func (l laggyStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	time.Sleep(5 * time.Millisecond)
	return l.Store.Get(ctx, key)
}

func TestSeedAll_ConcurrentRunsSeedOnce(t *testing.T) {
	kv := laggyStore{memory.New()}
	cat := app.NewCatalog(kv)
	ctx := context.Background()

	const runs = 4
	var wg sync.WaitGroup
	errs := make([]error, runs)
	start := make(chan struct{})
	for i := range runs {
		s := app.NewSeeder(kv, app.NewStoreLock(kv), cat.Targets(), app.WithWorkers(2))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.SeedAll(ctx)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil && !errors.Is(err, domain.ErrSeedBusy) {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if n, _ := cat.Properties.Count(ctx); n != 12 {
		t.Fatalf("properties = %d, want 12", n)
	}
	if n, _ := cat.Testimonials.Count(ctx); n != len(app.SeedTestimonials()) {
		t.Fatalf("testimonials = %d, want %d", n, len(app.SeedTestimonials()))
	}
}

func TestStatus(t *testing.T) {
	s, _, _, _ := newSeeder(t)
	ctx := context.Background()

	st, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, e := range st.Entities {
		if e.State != app.StateUnseeded || e.Records != 0 {
			t.Fatalf("fresh store: %+v", e)
		}
	}
	if _, err := s.SeedAll(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st, _ = s.Status(ctx)
	if st.Lock != nil {
		t.Fatalf("no lock expected, got %+v", st.Lock)
	}
	for _, e := range st.Entities {
		if e.State != app.StateSeeded || e.Records == 0 {
			t.Fatalf("after seed: %+v", e)
		}
	}
}

type brokenTarget struct{}

func (brokenTarget) Entity() string                        { return "broken" }
func (brokenTarget) Count(context.Context) (int, error)    { return 0, nil }
func (brokenTarget) InsertSeed(context.Context) (int, int) { return 0, 3 }
func (brokenTarget) Purge(context.Context) (int, error)    { return 0, nil }
