package memory_test

import (
	"context"
	"encoding/json"
	"testing"

	"brokerage_site/internal/storage/memory"
)

func TestStore_CRUDAndPrefix(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "property:1", json.RawMessage(`{"id":"1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "property:1", json.RawMessage(`{"id":"1","v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = s.Set(ctx, "testimonial:1", json.RawMessage(`{"id":"t"}`))
	s.PutRaw("property:bad", []byte(`{not json`))

	v, ok, _ := s.Get(ctx, "property:1")
	if !ok || string(v) != `{"id":"1","v":2}` {
		t.Fatalf("unexpected value %s ok=%v", v, ok)
	}
	if _, ok, _ := s.Get(ctx, "property:bad"); ok {
		t.Fatalf("malformed value must read as absent")
	}

	got, err := s.GetByPrefix(ctx, "property:")
	if err != nil || len(got) != 1 {
		t.Fatalf("prefix scan: %d values, err=%v", len(got), err)
	}
	if none, _ := s.GetByPrefix(ctx, "blog:post:"); len(none) != 0 {
		t.Fatalf("expected empty scan, got %d", len(none))
	}

	if err := s.Delete(ctx, "property:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "property:1"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
}

func TestStore_DeleteByPrefixRemovesMalformedRows(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.Set(ctx, "property:abc", json.RawMessage(`{"id":"xyz"}`))
	s.PutRaw("property:bad", []byte(`{not json`))
	_ = s.Set(ctx, "propertyx", json.RawMessage(`{}`))
	_ = s.Set(ctx, "testimonial:1", json.RawMessage(`{}`))

	n, err := s.DeleteByPrefix(ctx, "property:")
	if err != nil || n != 2 {
		t.Fatalf("deleted %d err=%v, want 2", n, err)
	}
	if s.Len() != 2 {
		t.Fatalf("keys left = %d, want 2", s.Len())
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if ok, _ := s.CompareAndSwap(ctx, "k", nil, json.RawMessage(`1`)); !ok {
		t.Fatalf("create on absent key should succeed")
	}
	if ok, _ := s.CompareAndSwap(ctx, "k", nil, json.RawMessage(`2`)); ok {
		t.Fatalf("create on present key must fail")
	}
	if ok, _ := s.CompareAndSwap(ctx, "k", json.RawMessage(`9`), json.RawMessage(`2`)); ok {
		t.Fatalf("swap with stale old value must fail")
	}
	if ok, _ := s.CompareAndSwap(ctx, "k", json.RawMessage(`1`), json.RawMessage(`2`)); !ok {
		t.Fatalf("swap with current value should succeed")
	}
	if ok, _ := s.CompareAndSwap(ctx, "k", json.RawMessage(`2`), nil); !ok {
		t.Fatalf("conditional delete should succeed")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("key should be gone")
	}
	if ok, _ := s.CompareAndSwap(ctx, "k", json.RawMessage(`2`), nil); ok {
		t.Fatalf("conditional delete of absent key must fail")
	}
}
