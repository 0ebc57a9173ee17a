package exportjobs

import (
	"context"
	"sync"
	"time"
)

// StatusStore persists jobs until they expire.
type StatusStore interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
}

type memoryEntry struct {
	job       Job
	expiresAt time.Time
}

const memoryStoreMaxEntries = 1000

// MemoryStore keeps jobs in process. It only works when the API and the
// worker run in the same binary.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[job.ID] = memoryEntry{job: *job, expiresAt: now.Add(s.ttl)}
	if len(s.entries) > memoryStoreMaxEntries {
		for id, entry := range s.entries {
			if now.After(entry.expiresAt) {
				delete(s.entries, id)
			}
		}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrJobNotFound
	}
	job := entry.job
	return &job, nil
}
