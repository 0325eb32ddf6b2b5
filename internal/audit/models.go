// Package audit is the append-only record of administrative and voting
// actions. Entries are keyed by actor, never by ballot content: the one hard
// rule is that selected options never appear here.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed enumeration of auditable actions.
type Action string

const (
	ActionElectionCreated     Action = "election_created"
	ActionElectionActivated   Action = "election_activated"
	ActionElectionExtended    Action = "election_extended"
	ActionElectionCounted     Action = "election_counted"
	ActionVoteSubmitted       Action = "vote_submitted"
	ActionPaperVoteRegistered Action = "paper_vote_registered"
	ActionStatusForceReset    Action = "status_force_reset"
	// ActionRollbackFailed marks a failed saga compensation: a voter is
	// marked as voted with no corresponding ballot. Fatal class; requires
	// manual reconciliation.
	ActionRollbackFailed Action = "rollback_failed"

	ActionPaperTallyRecorded Action = "paper_tally_recorded"
	ActionMembersImported    Action = "members_imported"
	ActionMembersReset       Action = "members_reset"
	ActionLoginSucceeded     Action = "login_succeeded"
	ActionLoginFailed        Action = "login_failed"
)

// Actor identifies who performed an action, for audit purposes.
type Actor struct {
	ID   string
	Role string
	IP   string
}

// Entry is one append-only audit record.
type Entry struct {
	ID               uuid.UUID
	Timestamp        time.Time
	ActorID          string
	ActorRole        string
	Action           Action
	TargetEmployeeID string
	ElectionID       string
	Reason           string
	Details          map[string]any
	IPAddress        string
}

// Page is one page of the admin audit read.
type Page struct {
	Entries    []Entry `json:"logs"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}
