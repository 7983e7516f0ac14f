// Package memory is an in-process domain.KVStore for tests and local runs.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"brokerage_site/internal/domain"
)

var _ domain.CASStore = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store { return &Store{data: map[string][]byte{}} }

func (s *Store) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !json.Valid(v) {
		log.Warn().Str("key", key).Msg("malformed JSON value; treating as absent")
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetByPrefix(_ context.Context, prefix string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		v := s.data[k]
		if !json.Valid(v) {
			log.Warn().Str("key", k).Msg("skipping malformed JSON value")
			continue
		}
		out = append(out, append(json.RawMessage(nil), v...))
	}
	return out, nil
}

func (s *Store) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) CompareAndSwap(_ context.Context, key string, old, next json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	switch {
	case old == nil && ok:
		return false, nil
	case old != nil && (!ok || !bytes.Equal(cur, old)):
		return false, nil
	}
	if next == nil {
		delete(s.data, key)
	} else {
		s.data[key] = append([]byte(nil), next...)
	}
	return true, nil
}

// PutRaw stores bytes without any validation, for simulating corrupted rows.
func (s *Store) PutRaw(key string, b []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), b...)
	s.mu.Unlock()
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
