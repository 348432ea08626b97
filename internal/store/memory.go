package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// MemoryStore keeps entries in process memory. Only use it when a single
// instance of the app is running.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache
}

func NewMemoryStore() *MemoryStore {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &MemoryStore{cache: c}
}

func (m *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.translate(m.cache.SetWithTTL(key, value, ttl))
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return "", false, nil
		}

		return "", false, m.translate(err)
	}

	return v.(string), true, nil
}

func (m *MemoryStore) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return "", false, nil
		}

		return "", false, m.translate(err)
	}

	if err := m.cache.Remove(key); err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return "", false, m.translate(err)
	}

	return v.(string), true, nil
}

func (m *MemoryStore) TakeIfMatch(_ context.Context, key, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return false, nil
		}

		return false, m.translate(err)
	}

	if v.(string) != expected {
		return false, nil
	}

	if err := m.cache.Remove(key); err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return false, m.translate(err)
	}

	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.cache.Remove(key)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return nil
	}

	return m.translate(err)
}

func (m *MemoryStore) Close() error {
	return m.translate(m.cache.Close())
}

func (m *MemoryStore) translate(err error) error {
	if errors.Is(err, ttlcache.ErrClosed) {
		return ErrClosed
	}

	return err
}
