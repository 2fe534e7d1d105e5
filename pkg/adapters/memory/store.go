package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Store is an in-memory, thread-safe SubmissionStore. Records are deep-copied
// on both save and load so callers can never mutate shared state.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*domain.Submission
	bySession map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records:   make(map[string]*domain.Submission),
		bySession: make(map[string]string),
	}
}

func (s *Store) Save(ctx context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[sub.ID]; ok && prev.SessionID != sub.SessionID {
		delete(s.bySession, prev.SessionID)
	}
	s.records[sub.ID] = sub.Clone()
	if sub.SessionID != "" {
		s.bySession[sub.SessionID] = sub.ID
	}
	return nil
}

func (s *Store) Load(ctx context.Context, submissionID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.records[submissionID]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (s *Store) FindBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return s.records[id].Clone(), nil
}

func (s *Store) Delete(ctx context.Context, submissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.records[submissionID]; ok {
		delete(s.bySession, sub.SessionID)
		delete(s.records, submissionID)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
