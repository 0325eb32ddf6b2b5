package roster

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"unionvote/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres roll store for unit tests. The mutex
// gives SetStatusIf the same exactly-one-winner guarantee the conditional
// UPDATE provides in Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	members  map[string]Member
	statuses map[string]VotingStatus // key: electionID + "/" + employeeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		members:  make(map[string]Member),
		statuses: make(map[string]VotingStatus),
	}
}

func statusKey(electionID, employeeID string) string {
	return electionID + "/" + employeeID
}

func (s *InMemoryStore) Get(_ context.Context, employeeID string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].EmployeeID < members[j].EmployeeID })
	return members, nil
}

func (s *InMemoryStore) Search(_ context.Context, q string, limit int) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(q)
	var matches []Member
	for _, m := range s.members {
		if strings.Contains(strings.ToLower(m.EmployeeID), needle) ||
			strings.Contains(strings.ToLower(m.Name), needle) {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].EmployeeID < matches[j].EmployeeID })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *InMemoryStore) ListVoterIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, m := range s.members {
		if m.Role == RoleVoter {
			ids = append(ids, m.EmployeeID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryStore) CountVoters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.members {
		if m.Role == RoleVoter {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) UpsertAll(_ context.Context, members []Member) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		s.members[m.EmployeeID] = m
	}
	return len(members), nil
}

func (s *InMemoryStore) DeleteNonAdmins(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, m := range s.members {
		if m.Role != RoleAdmin {
			delete(s.members, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) GetStatus(_ context.Context, electionID, employeeID string) (*VotingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.statuses[statusKey(electionID, employeeID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &vs, nil
}

func (s *InMemoryStore) EnsureRow(_ context.Context, electionID, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusKey(electionID, employeeID)
	if _, ok := s.statuses[key]; !ok {
		s.statuses[key] = VotingStatus{
			ElectionID: electionID,
			EmployeeID: employeeID,
			Status:     StatusNotVoted,
			UpdatedAt:  time.Now(),
		}
	}
	return nil
}

func (s *InMemoryStore) InitForElection(_ context.Context, electionID string, employeeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, employeeID := range employeeIDs {
		key := statusKey(electionID, employeeID)
		if _, ok := s.statuses[key]; !ok {
			s.statuses[key] = VotingStatus{
				ElectionID: electionID,
				EmployeeID: employeeID,
				Status:     StatusNotVoted,
				UpdatedAt:  time.Now(),
			}
		}
	}
	return nil
}

func (s *InMemoryStore) SetStatusIf(_ context.Context, electionID, employeeID string, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusKey(electionID, employeeID)
	vs, ok := s.statuses[key]
	if !ok || vs.Status != from {
		return false, nil
	}
	vs.Status = to
	vs.UpdatedAt = time.Now()
	s.statuses[key] = vs
	return true, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, electionID string) (StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts StatusCounts
	for _, vs := range s.statuses {
		if vs.ElectionID != electionID {
			continue
		}
		switch vs.Status {
		case StatusNotVoted:
			counts.NotVoted++
		case StatusVotedElectronic:
			counts.VotedElectronic++
		case StatusVotedPaper:
			counts.VotedPaper++
		}
	}
	return counts, nil
}

func (s *InMemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = make(map[string]VotingStatus)
	return nil
}
