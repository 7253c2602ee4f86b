package kvstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time // zero means no expiry
}

type memoryData struct {
	mu   sync.Mutex
	data map[string]entry
}

// MemoryStore is an in-memory KVStore used in tests in place of Redis. It
// implements the same expiry semantics (lazy expiry on read). Sub views
// share the same backing map and mutex as their parent so concurrent use
// across namespaces stays race-free.
type MemoryStore struct {
	shared *memoryData
	prefix string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shared: &memoryData{data: make(map[string]entry)}}
}

func (s *MemoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	k := s.key(key)
	e, ok := s.shared.data[k]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.shared.data, k)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.data[s.key(key)] = entry{value: value}
	return nil
}

func (s *MemoryStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.data[s.key(key)] = entry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	delete(s.shared.data, s.key(key))
	return nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	k := s.key(key)
	e, ok := s.shared.data[k]
	if !ok {
		return ErrNotFound
	}
	e.expires = time.Now().Add(ttl)
	s.shared.data[k] = e
	return nil
}

// Sub returns a view over the same backing store with an extra namespace
// prefix, mirroring RedisStore.Sub.
func (s *MemoryStore) Sub(namespace string) KVStore {
	prefix := namespace
	if s.prefix != "" {
		prefix = s.prefix + ":" + namespace
	}
	return &MemoryStore{shared: s.shared, prefix: prefix}
}

func (s *MemoryStore) Close() error {
	return nil
}
