package persistence

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by a Store when the key holds nothing.
var ErrNotFound = errors.New("key not found")

// Record is one stored save blob.
type Record struct {
	Data     []byte `db:"data"`
	Codec    string `db:"codec"`    // CodecLZ4, CodecJSON, or "" to sniff
	Checksum string `db:"checksum"` // Hex BLAKE3 of Data; empty skips verification
	SavedAt  int64  `db:"saved_at"` // Unix milliseconds
}

// Store is the key-value backend saves are written to.
type Store interface {
	Get(key string) (Record, error)
	Put(key string, rec Record) error
}

// MemoryStore is an in-process Store, used by tests and throwaway sessions.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

// Get returns a copy of the record under key.
func (m *MemoryStore) Get(key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return rec, nil
}

// Put stores a copy of rec under key.
func (m *MemoryStore) Put(key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Data = append([]byte(nil), rec.Data...)
	m.recs[key] = rec
	return nil
}
