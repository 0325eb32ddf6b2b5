package roster

import "context"

// MemberStore is pure I/O over the members table. Domain rules live in
// services.
type MemberStore interface {
	Get(ctx context.Context, employeeID string) (*Member, error)
	List(ctx context.Context) ([]Member, error)
	Search(ctx context.Context, q string, limit int) ([]Member, error)
	ListVoterIDs(ctx context.Context) ([]string, error)
	CountVoters(ctx context.Context) (int, error)
	UpsertAll(ctx context.Context, members []Member) (int, error)
	// DeleteNonAdmins removes every member except admins and returns the
	// number deleted. Used by the bulk roster reset.
	DeleteNonAdmins(ctx context.Context) (int, error)
}

// StatusStore is pure I/O over the voting_status table.
type StatusStore interface {
	GetStatus(ctx context.Context, electionID, employeeID string) (*VotingStatus, error)
	// EnsureRow lazily creates a not_voted row if none exists. Safe to call
	// concurrently; an existing row is left untouched.
	EnsureRow(ctx context.Context, electionID, employeeID string) error
	// InitForElection bulk-creates not_voted rows for the given members.
	InitForElection(ctx context.Context, electionID string, employeeIDs []string) error
	// SetStatusIf performs the atomic conditional transition that the
	// double-vote guard depends on: the row is updated only when its current
	// status equals from, and the return value reports whether this caller
	// won. Racing callers must observe exactly one true result.
	SetStatusIf(ctx context.Context, electionID, employeeID string, from, to Status) (bool, error)
	CountByStatus(ctx context.Context, electionID string) (StatusCounts, error)
	DeleteAll(ctx context.Context) error
}
