package ballotbox

import "context"

// Store persists anonymous ballots. Append and aggregate only; individual
// rows are never updated, deleted, or returned to callers.
type Store interface {
	// AppendAll writes every ballot of one casting event, all or nothing.
	// Atomicity here is what makes the casting saga's compensation sound: a
	// partial write never needs partial cleanup.
	AppendAll(ctx context.Context, ballots []Ballot) error
	CountByOption(ctx context.Context, electionID string) ([]OptionCount, error)
}
