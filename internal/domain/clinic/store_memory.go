package clinic

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded document in memory. Load always decodes a
// fresh copy so callers never share state.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return NewDocument(), nil
	}
	return Decode(data)
}

func (s *MemoryStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.saves++
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Raw returns the last saved bytes.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// SetRaw replaces the stored bytes without validation.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}
