package alert

import (
	"context"
	"sync"
)

// MemoryMarkerStore keeps the marker in process. Only suitable when a single
// instance serves the alert endpoint.
type MemoryMarkerStore struct {
	mu     sync.Mutex
	marker RunMarker
}

var _ MarkerStore = (*MemoryMarkerStore)(nil)

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{}
}

func (s *MemoryMarkerStore) Load(ctx context.Context) (RunMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.marker, nil
}

func (s *MemoryMarkerStore) CompareAndSwap(ctx context.Context, old, new RunMarker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.marker.Equal(old) {
		return false, nil
	}
	s.marker = new
	return true, nil
}
