package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

type SeedState string

const (
	StateUnseeded SeedState = "UNSEEDED"
	StateSeeding  SeedState = "SEEDING"
	StateSeeded   SeedState = "SEEDED"
)

const seedFlagPrefix = "seed:completed:"

func SeedFlagKey(entity string) string { return seedFlagPrefix + entity }

// SeedFlag is the value written once an entity's dataset is in place.
type SeedFlag struct {
	Completed bool      `json:"completed"`
	At        time.Time `json:"at"`
	Inserted  int       `json:"inserted"`
	// Adopted is set when records already existed and nothing was inserted.
	Adopted bool `json:"adopted,omitempty"`
}

type EntityReport struct {
	Entity   string    `json:"entity"`
	State    SeedState `json:"state"`
	Action   string    `json:"action"` // skipped | adopted | inserted | failed
	Inserted int       `json:"inserted"`
	Failed   int       `json:"failed"`
	Purged   int       `json:"purged,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type Report struct {
	Forced     bool           `json:"forced"`
	Clean      bool           `json:"clean"`
	Entities   []EntityReport `json:"entities"`
	DurationMS int64          `json:"durationMs"`
}

type EntityStatus struct {
	Entity  string    `json:"entity"`
	State   SeedState `json:"state"`
	Records int       `json:"records"`
}

type Status struct {
	Entities []EntityStatus   `json:"entities"`
	Lock     *domain.LockInfo `json:"lock,omitempty"`
}

// Seeder runs the idempotent bootstrap for every target under the seed lock.
type Seeder struct {
	kv       domain.KVStore
	lock     domain.SeedLock
	targets  []SeedTarget
	workers  int64
	ttl      time.Duration
	now      func() time.Time
	newOwner func() string

	mu       sync.Mutex
	inflight map[string]bool
}

type SeederOption func(*Seeder)

func WithWorkers(n int) SeederOption {
	return func(s *Seeder) {
		if n > 0 {
			s.workers = int64(n)
		}
	}
}

func WithLockTTL(d time.Duration) SeederOption {
	return func(s *Seeder) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithSeedClock(now func() time.Time) SeederOption {
	return func(s *Seeder) { s.now = now }
}

func NewSeeder(kv domain.KVStore, lock domain.SeedLock, targets []SeedTarget, opts ...SeederOption) *Seeder {
	s := &Seeder{
		kv:       kv,
		lock:     lock,
		targets:  targets,
		workers:  1,
		ttl:      2 * time.Minute,
		now:      time.Now,
		newOwner: uuid.NewString,
		inflight: map[string]bool{},
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// SeedAll seeds every entity that has not been seeded yet.
// Returns domain.ErrSeedBusy when another run holds the lock.
func (s *Seeder) SeedAll(ctx context.Context) (Report, error) {
	return s.run(ctx, false, false)
}

// ForceReseed drops every seed flag (and, when clean, every record) and seeds again.
func (s *Seeder) ForceReseed(ctx context.Context, clean bool) (Report, error) {
	return s.run(ctx, true, clean)
}

func (s *Seeder) run(ctx context.Context, force, clean bool) (Report, error) {
	start := s.now()
	owner := s.newOwner()
	ok, err := s.lock.Acquire(ctx, owner, s.ttl)
	if err != nil {
		observability.ObserveSeedRun("error")
		return Report{}, fmt.Errorf("acquire seed lock: %w", err)
	}
	if !ok {
		observability.ObserveSeedRun("busy")
		return Report{}, domain.ErrSeedBusy
	}
	log.Info().Str("owner", owner).Bool("force", force).Bool("clean", clean).Msg("seed run started")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go s.heartbeat(hbCtx, owner, hbDone)
	defer func() {
		stopHeartbeat()
		<-hbDone
		// the caller's context may already be cancelled; the lock must still go
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(relCtx, owner); err != nil {
			log.Error().Err(err).Str("owner", owner).Msg("seed lock release failed")
		}
	}()

	rep := Report{Forced: force, Clean: clean, Entities: make([]EntityReport, len(s.targets))}
	purged := make([]int, len(s.targets))
	if force {
		for i, t := range s.targets {
			if err := s.kv.Delete(ctx, SeedFlagKey(t.Entity())); err != nil {
				observability.ObserveSeedRun("error")
				return rep, fmt.Errorf("reset %s flag: %w", t.Entity(), err)
			}
			if !clean {
				continue
			}
			n, err := t.Purge(ctx)
			if err != nil {
				observability.ObserveSeedRun("error")
				return rep, fmt.Errorf("purge %s: %w", t.Entity(), err)
			}
			purged[i] = n
			log.Info().Str("entity", t.Entity()).Int("deleted", n).Msg("purged records")
		}
	}

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	for i, t := range s.targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			rep.Entities[i] = EntityReport{Entity: t.Entity(), State: StateUnseeded, Action: "failed", Error: err.Error()}
			continue
		}
		wg.Add(1)
		go func(i int, t SeedTarget) {
			defer wg.Done()
			defer sem.Release(1)
			rep.Entities[i] = s.seedOne(ctx, t)
			rep.Entities[i].Purged = purged[i]
		}(i, t)
	}
	wg.Wait()

	rep.DurationMS = s.now().Sub(start).Milliseconds()
	var errs []error
	for _, e := range rep.Entities {
		if e.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", e.Entity, e.Error))
		}
	}
	if err := errors.Join(errs...); err != nil {
		observability.ObserveSeedRun("error")
		return rep, err
	}
	observability.ObserveSeedRun("ok")
	log.Info().Str("owner", owner).Int64("duration_ms", rep.DurationMS).Msg("seed run finished")
	return rep, nil
}

func (s *Seeder) seedOne(ctx context.Context, t SeedTarget) EntityReport {
	entity := t.Entity()
	rep := EntityReport{Entity: entity, State: StateUnseeded}
	fail := func(err error) EntityReport {
		rep.Action = "failed"
		rep.Error = err.Error()
		log.Error().Err(err).Str("entity", entity).Msg("seed failed")
		return rep
	}

	done, err := s.flagged(ctx, entity)
	if err != nil {
		return fail(err)
	}
	if done {
		rep.State, rep.Action = StateSeeded, "skipped"
		log.Debug().Str("entity", entity).Msg("already seeded")
		return rep
	}

	s.setInflight(entity, true)
	defer s.setInflight(entity, false)
	rep.State = StateSeeding
	log.Info().Str("entity", entity).Msg("seeding")

	// flag lost but data present: adopt what is there instead of duplicating it
	n, err := t.Count(ctx)
	if err != nil {
		return fail(err)
	}
	if n > 0 {
		if err := s.writeFlag(ctx, entity, SeedFlag{Completed: true, At: s.now().UTC(), Adopted: true}); err != nil {
			return fail(err)
		}
		rep.State, rep.Action = StateSeeded, "adopted"
		log.Info().Str("entity", entity).Int("existing", n).Msg("records already present; flag restored")
		return rep
	}

	rep.Inserted, rep.Failed = t.InsertSeed(ctx)
	if rep.Inserted == 0 && rep.Failed > 0 {
		return fail(fmt.Errorf("all %d inserts failed", rep.Failed))
	}
	if err := s.writeFlag(ctx, entity, SeedFlag{Completed: true, At: s.now().UTC(), Inserted: rep.Inserted}); err != nil {
		return fail(err)
	}
	rep.State, rep.Action = StateSeeded, "inserted"
	log.Info().Str("entity", entity).Int("inserted", rep.Inserted).Int("failed", rep.Failed).Msg("seeded")
	return rep
}

func (s *Seeder) flagged(ctx context.Context, entity string) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, SeedFlagKey(entity))
	if err != nil || !ok {
		return false, err
	}
	return domain.Truthy(raw), nil
}

func (s *Seeder) writeFlag(ctx context.Context, entity string, f SeedFlag) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, SeedFlagKey(entity), b)
}

func (s *Seeder) setInflight(entity string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.inflight[entity] = true
	} else {
		delete(s.inflight, entity)
	}
}

func (s *Seeder) isInflight(entity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[entity]
}

func (s *Seeder) heartbeat(ctx context.Context, owner string, done chan<- struct{}) {
	defer close(done)
	every := s.ttl / 3
	if every <= 0 {
		every = time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := s.lock.Refresh(ctx, owner, s.ttl)
			if err != nil {
				log.Warn().Err(err).Str("owner", owner).Msg("seed lock refresh failed")
				continue
			}
			if !ok {
				log.Warn().Str("owner", owner).Msg("seed lock lost")
			}
		}
	}
}

// Status reports the seed state of every entity and the current lock holder.
func (s *Seeder) Status(ctx context.Context) (Status, error) {
	info, held, err := s.lock.Holder(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Entities: make([]EntityStatus, 0, len(s.targets))}
	if held {
		st.Lock = &info
	}
	for _, t := range s.targets {
		es := EntityStatus{Entity: t.Entity(), State: StateUnseeded}
		done, err := s.flagged(ctx, t.Entity())
		if err != nil {
			return Status{}, err
		}
		switch {
		case done:
			es.State = StateSeeded
		case s.isInflight(t.Entity()) || held:
			es.State = StateSeeding
		}
		if es.Records, err = t.Count(ctx); err != nil {
			return Status{}, err
		}
		st.Entities = append(st.Entities, es)
	}
	return st, nil
}

// Unlock force-clears the seed lock, e.g. after a holder crashed without a TTL.
func (s *Seeder) Unlock(ctx context.Context) error {
	log.Warn().Msg("breaking seed lock")
	return s.lock.Break(ctx)
}
