package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// KeyPrefix namespaces every feed cache key
const KeyPrefix = "feed:"

var (
	// ErrNotFound is returned by stores for missing or expired keys
	ErrNotFound = errors.New("cache key not found")

	// ErrUnavailable wraps backend failures. Callers treat it as a miss.
	ErrUnavailable = errors.New("cache unavailable")
)

// Key identifies a cached feed by source and subject
type Key struct {
	Source  string
	Subject string
}

// HandleKey case-folds a human handle
func HandleKey(source, handle string) Key {
	return Key{Source: source, Subject: strings.ToLower(handle)}
}

// IDKey keeps a canonical id as-is
func IDKey(source, id string) Key {
	return Key{Source: source, Subject: id}
}

func (k Key) String() string {
	return KeyPrefix + k.Source + ":" + k.Subject
}

// Store keeps opaque blobs with an expiry. Reads may be eventually consistent.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, blob []byte, ttl time.Duration) error
	// DeleteAll removes every key in the namespace as one all-or-nothing batch
	DeleteAll(ctx context.Context) (int, error)
	Close() error
}

// NopStore caches nothing
type NopStore struct{}

func (NopStore) Get(context.Context, Key) ([]byte, error)              { return nil, ErrNotFound }
func (NopStore) Set(context.Context, Key, []byte, time.Duration) error { return nil }
func (NopStore) DeleteAll(context.Context) (int, error)                { return 0, nil }
func (NopStore) Close() error                                          { return nil }

type memoryEntry struct {
	blob      []byte
	expiresAt time.Time
}

// MemoryStore keeps blobs in process memory. Expired entries are dropped on the next Set.
type MemoryStore struct {
	sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key Key) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	entry, ok := m.entries[key.String()]
	if !ok || !m.now().Before(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.blob, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, blob []byte, ttl time.Duration) error {
	m.Lock()
	defer m.Unlock()

	now := m.now()
	for k, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key.String()] = memoryEntry{blob: blob, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) DeleteAll(context.Context) (int, error) {
	m.Lock()
	defer m.Unlock()

	count := len(m.entries)
	m.entries = make(map[string]memoryEntry)
	return count, nil
}

func (m *MemoryStore) Close() error { return nil }
