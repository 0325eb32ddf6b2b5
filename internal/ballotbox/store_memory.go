package ballotbox

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore mirrors the Postgres ballot store for unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	ballots []Ballot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AppendAll(_ context.Context, ballots []Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots = append(s.ballots, ballots...)
	return nil
}

func (s *InMemoryStore) CountByOption(_ context.Context, electionID string) ([]OptionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byOption := make(map[string]int)
	for _, b := range s.ballots {
		if b.ElectionID == electionID {
			byOption[b.SelectedOption]++
		}
	}
	counts := make([]OptionCount, 0, len(byOption))
	for option, count := range byOption {
		counts = append(counts, OptionCount{Option: option, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Option < counts[j].Option
	})
	return counts, nil
}

// Ballots returns a copy of everything appended for the given election.
// Test helper.
func (s *InMemoryStore) Ballots(electionID string) []Ballot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Ballot
	for _, b := range s.ballots {
		if b.ElectionID == electionID {
			out = append(out, b)
		}
	}
	return out
}
