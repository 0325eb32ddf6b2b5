// Package roster is the roll store: member identity, roles, and per-election
// voting status. It owns the "has this person voted" fact and nothing about
// ballot content; the ballot box lives behind a separate handle with no
// joinable key back to this package's tables.
package roster

import (
	"fmt"
	"time"
)

// Role determines a member's capability.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReception Role = "reception"
	RoleVoter     Role = "voter"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReception, RoleVoter:
		return true
	}
	return false
}

// Member is the identity anchor for roll store rows. PIN is the login
// credential, compared verbatim in constant time.
type Member struct {
	EmployeeID string
	PIN        string
	Name       string
	Role       Role
	CreatedAt  time.Time
}

// Status is a member's voting state for one election.
type Status string

const (
	StatusNotVoted        Status = "not_voted"
	StatusVotedElectronic Status = "voted_electronic"
	StatusVotedPaper      Status = "voted_paper"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotVoted, StatusVotedElectronic, StatusVotedPaper:
		return true
	}
	return false
}

// Label renders the status for operator-facing messages.
func (s Status) Label() string {
	switch s {
	case StatusNotVoted:
		return "not voted"
	case StatusVotedElectronic:
		return "voted electronically"
	case StatusVotedPaper:
		return "registered for paper voting"
	}
	return string(s)
}

// CanTransition encodes the status state machine. Transitions are
// forward-only: not_voted may become either voted state exactly once.
// The single legal reverse edge is voted_paper back to not_voted, used by the
// administrative override. An electronic vote is irreversible because the
// ballot box holds no identity to reconcile a reversal against.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusNotVoted:
		return to == StatusVotedElectronic || to == StatusVotedPaper
	case StatusVotedPaper:
		return to == StatusNotVoted
	}
	return false
}

// VotingStatus is one (election, member) row in the roll store.
type VotingStatus struct {
	ElectionID string
	EmployeeID string
	Status     Status
	UpdatedAt  time.Time
}

// StatusCounts aggregates a single election's roll without identities.
type StatusCounts struct {
	NotVoted        int
	VotedElectronic int
	VotedPaper      int
}

// Voted returns the number of members who cast a vote through either path.
func (c StatusCounts) Voted() int {
	return c.VotedElectronic + c.VotedPaper
}

// Turnout renders voted out of total as a percentage with one decimal place.
// Turnout counts voters, not ballots. "0.0" when the roll is empty.
func Turnout(voted, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(voted)/float64(total)*100)
}
