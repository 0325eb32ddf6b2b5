package election

import (
	"context"
	"sync"
	"time"

	"unionvote/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres election store for unit tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	elections map[string]Election
	options   map[string][]Option
	results   map[string]Figures
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		elections: make(map[string]Election),
		options:   make(map[string][]Option),
		results:   make(map[string]Figures),
	}
}

func (s *InMemoryStore) Create(_ context.Context, e *Election, options []Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.elections[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.elections[e.ID] = *e
	s.options[e.ID] = append([]Option(nil), options...)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elections := make([]Election, 0, len(s.elections))
	for _, e := range s.elections {
		elections = append(elections, e)
	}
	return elections, nil
}

func (s *InMemoryStore) ListOptions(_ context.Context, electionID string) ([]Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Option(nil), s.options[electionID]...), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elections[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Status = status
	s.elections[id] = e
	return nil
}

func (s *InMemoryStore) UpdateEndAt(_ context.Context, id string, endAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elections[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.EndAt = endAt
	s.elections[id] = e
	return nil
}

func (s *InMemoryStore) SetCounted(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elections[id]
	if !ok || e.Status == StatusCounted {
		return false, nil
	}
	e.Status = StatusCounted
	s.elections[id] = e
	return true, nil
}

func (s *InMemoryStore) SaveResults(_ context.Context, electionID string, figures *Figures) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[electionID] = *figures
	return nil
}

func (s *InMemoryStore) GetResults(_ context.Context, electionID string) (*Figures, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.results[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &f, nil
}
