package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askdb-io/askdb-engine/pkg/models"
)

// ResultStore holds recent query results so drill-down and pinning can
// reference them by opaque ID after the originating request finished.
type ResultStore interface {
	// Save stores the result and returns its ID, assigning one if unset.
	Save(result *models.QueryResult) string
	// Get returns the result for id, or false when unknown or expired.
	Get(id string) (*models.QueryResult, bool)
}

type resultEntry struct {
	result    *models.QueryResult
	expiresAt time.Time
}

type resultStore struct {
	mu      sync.Mutex
	entries map[string]resultEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResultStore creates an in-memory result store. Entries expire after
// ttl; expired entries are dropped lazily on access.
func NewResultStore(ttl time.Duration) ResultStore {
	return &resultStore{
		entries: make(map[string]resultEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *resultStore) Save(result *models.QueryResult) string {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[result.ID] = resultEntry{result: result, expiresAt: now.Add(s.ttl)}

	return result.ID
}

func (s *resultStore) Get(id string) (*models.QueryResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, false
	}
	return entry.result, true
}

var _ ResultStore = (*resultStore)(nil)
