package blobs

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/selva/internal/common"
)

// MemoryStore keeps blobs in process memory. Content is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, content []byte) error {
	b := make([]byte, len(content))
	copy(b, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = b
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
