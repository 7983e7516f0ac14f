package supabasead

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
)

// fakeSupabase serves the subset of PostgREST and GoTrue the adapter calls:
// /rest/v1/kv_store with eq/like filters and /auth/v1/user.
type fakeSupabase struct {
	t    *testing.T
	mu   sync.Mutex
	rows map[string]json.RawMessage
	fail bool
}

func newFake(t *testing.T) (*fakeSupabase, *Store, *Verifier) {
	t.Helper()
	f := &fakeSupabase{t: t, rows: map[string]json.RawMessage{}}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	c, err := NewClient(ts.URL, "service-key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return f, New(c, ""), NewVerifier(c)
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/v1/user":
		f.user(w, r)
	case "/rest/v1/kv_store":
		if r.Header.Get("apikey") != "service-key" {
			f.t.Errorf("missing apikey header: %v", r.Header)
		}
		f.table(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSupabase) user(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer good" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":    "8f14e45f-ceea-467f-a0e6-1a3e8c9b2d10",
		"email": "agent@example.com",
		"role":  "authenticated",
	})
}

func (f *fakeSupabase) table(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"database unavailable"}`))
		return
	}
	q := r.URL.Query()
	keyF, valF := q.Get("key"), q.Get("value")
	prefer := r.Header.Get("Prefer")

	switch r.Method {
	case http.MethodGet:
		writeRows(w, f.match(keyF, valF))

	case http.MethodPost:
		var in row
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			f.t.Errorf("decode insert: %v", err)
		}
		_, exists := f.rows[in.Key]
		if exists && !strings.Contains(prefer, "resolution=merge-duplicates") {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint \"kv_store_pkey\""}`))
			return
		}
		f.rows[in.Key] = in.Value
		w.WriteHeader(http.StatusCreated)

	case http.MethodPatch:
		var in struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			f.t.Errorf("decode update: %v", err)
		}
		hit := f.match(keyF, valF)
		for i := range hit {
			f.rows[hit[i].Key] = in.Value
			hit[i].Value = in.Value
		}
		writeRows(w, hit)

	case http.MethodDelete:
		hit := f.match(keyF, valF)
		for _, rw := range hit {
			delete(f.rows, rw.Key)
		}
		if strings.Contains(prefer, "return=representation") {
			writeRows(w, hit)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

var likeUnescaper = strings.NewReplacer(`\\`, `\`, `\%`, `%`, `\_`, `_`)

func (f *fakeSupabase) match(keyF, valF string) []row {
	out := []row{}
	for k, v := range f.rows {
		switch {
		case strings.HasPrefix(keyF, "eq."):
			if k != strings.TrimPrefix(keyF, "eq.") {
				continue
			}
		case strings.HasPrefix(keyF, "like."):
			p := strings.TrimSuffix(strings.TrimPrefix(keyF, "like."), "%")
			if !strings.HasPrefix(k, likeUnescaper.Replace(p)) {
				continue
			}
		}
		if valF != "" && !jsonEqual(v, []byte(strings.TrimPrefix(valF, "eq."))) {
			continue
		}
		out = append(out, row{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// jsonEqual compares like a jsonb column does: key order and spacing are ignored.
func jsonEqual(a, b []byte) bool {
	var x, y any
	if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}

func writeRows(w http.ResponseWriter, rows []row) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func TestStore_GetSetDelete(t *testing.T) {
	_, s, _ := newFake(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "property:1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "property:1", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "property:1", []byte(`{"id":"1","v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "property:1")
	if err != nil || !ok || !jsonEqual(v, []byte(`{"id":"1","v":2}`)) {
		t.Fatalf("get: %s %v %v", v, ok, err)
	}
	if err := s.Delete(ctx, "property:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "property:1"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "property:1"); ok {
		t.Fatalf("key still present")
	}
}

func TestStore_GetByPrefix(t *testing.T) {
	_, s, _ := newFake(t)
	ctx := context.Background()
	for k, v := range map[string]string{
		"blog:post:b": `{"id":"b"}`,
		"blog:post:a": `{"id":"a"}`,
		"blog:other":  `{"id":"o"}`,
		"blog_post:z": `{"id":"z"}`,
	} {
		if err := s.Set(ctx, k, []byte(v)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	got, err := s.GetByPrefix(ctx, "blog:post:")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || !jsonEqual(got[0], []byte(`{"id":"a"}`)) || !jsonEqual(got[1], []byte(`{"id":"b"}`)) {
		t.Fatalf("unexpected: %s", got)
	}
	// "_" in the prefix is literal, not a LIKE wildcard
	if got, _ := s.GetByPrefix(ctx, "blog_"); len(got) != 1 {
		t.Fatalf("literal prefix matched %d rows", len(got))
	}
}

func TestStore_DeleteByPrefix(t *testing.T) {
	f, s, _ := newFake(t)
	ctx := context.Background()
	_ = s.Set(ctx, "property:abc", []byte(`{"id":"xyz"}`))
	_ = s.Set(ctx, "property:2", []byte(`{"id":"2"}`))
	_ = s.Set(ctx, "propertyx", []byte(`{}`))
	_ = s.Set(ctx, "testimonial:1", []byte(`{}`))

	n, err := s.DeleteByPrefix(ctx, "property:")
	if err != nil || n != 2 {
		t.Fatalf("deleted %d err=%v, want 2", n, err)
	}
	if len(f.rows) != 2 {
		t.Fatalf("rows left = %v", f.rows)
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	_, s, _ := newFake(t)
	ctx := context.Background()
	held := json.RawMessage(`{"owner":"a"}`)
	next := json.RawMessage(`{"owner":"b"}`)

	if ok, err := s.CompareAndSwap(ctx, "seed:lock", nil, held); !ok || err != nil {
		t.Fatalf("insert on free key: ok=%v err=%v", ok, err)
	}
	if ok, err := s.CompareAndSwap(ctx, "seed:lock", nil, next); ok || err != nil {
		t.Fatalf("primary key conflict must lose without error: ok=%v err=%v", ok, err)
	}
	if ok, err := s.CompareAndSwap(ctx, "seed:lock", []byte(`{"owner":"z"}`), next); ok || err != nil {
		t.Fatalf("stale swap: ok=%v err=%v", ok, err)
	}
	// jsonb equality ignores formatting of the old value
	if ok, err := s.CompareAndSwap(ctx, "seed:lock", []byte(`{ "owner" : "a" }`), next); !ok || err != nil {
		t.Fatalf("swap: ok=%v err=%v", ok, err)
	}
	if ok, err := s.CompareAndSwap(ctx, "seed:lock", held, nil); ok || err != nil {
		t.Fatalf("conditional delete with stale value: ok=%v err=%v", ok, err)
	}
	if ok, err := s.CompareAndSwap(ctx, "seed:lock", next, nil); !ok || err != nil {
		t.Fatalf("conditional delete: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := s.Get(ctx, "seed:lock"); ok {
		t.Fatalf("lock row should be gone")
	}
}

func TestStore_SeedLockIsExclusive(t *testing.T) {
	_, s, _ := newFake(t)
	ctx := context.Background()
	a, b := app.NewStoreLock(s), app.NewStoreLock(s)

	if ok, err := a.Acquire(ctx, "a", time.Minute); !ok || err != nil {
		t.Fatalf("a acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Acquire(ctx, "b", time.Minute); ok || err != nil {
		t.Fatalf("b must not acquire: ok=%v err=%v", ok, err)
	}
	if err := a.Release(ctx, "a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := b.Acquire(ctx, "b", time.Minute); !ok {
		t.Fatalf("b should acquire after release")
	}
}

func TestStore_ServerErrors(t *testing.T) {
	f, s, _ := newFake(t)
	f.fail = true
	ctx := context.Background()

	if _, err := s.GetByPrefix(ctx, "property:"); err == nil || !strings.Contains(err.Error(), "database unavailable") {
		t.Fatalf("want server error, got %v", err)
	}
	if _, err := s.CompareAndSwap(ctx, "seed:lock", nil, []byte(`{"owner":"a"}`)); err == nil {
		t.Fatalf("insert failure without a conflicting row must surface")
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Set(cctx, "k", []byte(`1`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled context: %v", err)
	}
}

func TestVerifier_Verify(t *testing.T) {
	_, _, v := newFake(t)
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.ID != "8f14e45f-ceea-467f-a0e6-1a3e8c9b2d10" || id.Email != "agent@example.com" || id.Role != "authenticated" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if _, err := v.Verify(ctx, "forged"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if _, err := v.Verify(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("empty token: %v", err)
	}
}
