package submission

import (
	"context"
	"sync"

	"github.com/crowdpollen/crowdpollen/internal/geo"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions []Submission
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a MemoryStore seeded with submissions.
func NewMemoryStoreWith(submissions []Submission) *MemoryStore {
	return &MemoryStore{submissions: submissions}
}

// Add appends a submission to the store.
func (s *MemoryStore) Add(sub Submission) {
	s.mu.Lock()
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()
}

// GetNearby returns submissions within radiusKm of the point. Submissions
// without coordinates are always included.
func (s *MemoryStore) GetNearby(_ context.Context, lat, lon, radiusKm float64) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Submission
	for _, sub := range s.submissions {
		if !sub.HasLocation() {
			result = append(result, sub)
			continue
		}
		if geo.DistanceKm(lat, lon, *sub.Latitude, *sub.Longitude) <= radiusKm {
			result = append(result, sub)
		}
	}
	return result, nil
}
