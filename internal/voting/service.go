// Package voting implements the ballot casting transaction: the coordinating
// procedure that validates eligibility, flips the roll-store status, writes
// anonymous ballots, and compensates on partial failure.
package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"unionvote/internal/audit"
	"unionvote/internal/ballotbox"
	"unionvote/internal/election"
	"unionvote/internal/platform/metrics"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

// Service coordinates a cast across the roll store and the ballot box. The
// two stores share no transaction; the double-vote guard is the roll store's
// atomic conditional flip and everything after it is a best-effort saga.
type Service struct {
	elections election.Store
	statuses  roster.StatusStore
	ballots   ballotbox.Store
	audit     *audit.Service
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock. Tests pin time with this.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(elections election.Store, statuses roster.StatusStore, ballots ballotbox.Store, auditSvc *audit.Service, m *metrics.Metrics, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		elections: elections,
		statuses:  statuses,
		ballots:   ballots,
		audit:     auditSvc,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cast records one voter's ballot for one election.
//
// Preconditions are checked in order, each with its own failure mode: the
// election exists, the voting window is open and the election active, the
// voter has not voted, every selection names a real option, and the
// selection shape fits the election type.
//
// The commit protocol is a two-step saga. Step one atomically flips the
// voter's status from not_voted to voted_electronic; of two racing casts
// exactly one wins that flip and the loser gets a conflict without ever
// touching the ballot box. Step two appends the ballot rows. If step two
// fails the flip is reverted as compensation; if the revert itself fails the
// voter is left marked as voted with no ballot recorded, which is a
// data-integrity incident. That condition is never swallowed: it is written
// to the audit log synchronously as rollback_failed before the error
// returns. A crash between the flip and the compensation leaves the same
// incident without the audit entry; that is the accepted failure window of
// running two stores without a shared transaction.
func (s *Service) Cast(ctx context.Context, electionID, voterID string, selections []string, actor audit.Actor) error {
	e, err := s.elections.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election")
	}

	now := s.now()
	if e.Status != election.StatusActive || !e.WindowOpen(now) {
		return dErrors.New(dErrors.CodeInvalidState, "election is not open for voting")
	}

	if err := s.statuses.EnsureRow(ctx, electionID, voterID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize voting status")
	}
	current, err := s.statuses.GetStatus(ctx, electionID, voterID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting status")
	}
	if current.Status != roster.StatusNotVoted {
		return dErrors.Newf(dErrors.CodeConflict, "you have already voted in this election (%s)", current.Status.Label())
	}

	if err := s.validateSelections(ctx, e, selections); err != nil {
		return err
	}

	// Step one: the atomic flip is the double-vote guard. The early status
	// read above only produces a friendlier error; this conditional update is
	// what actually closes the race.
	won, err := s.statuses.SetStatusIf(ctx, electionID, voterID, roster.StatusNotVoted, roster.StatusVotedElectronic)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update voting status")
	}
	if !won {
		s.metrics.IncCastConflicts()
		return dErrors.New(dErrors.CodeConflict, "you have already voted in this election")
	}

	ballots := make([]ballotbox.Ballot, 0, len(selections))
	for _, sel := range selections {
		ballots = append(ballots, ballotbox.Ballot{
			ID:             uuid.New(),
			ElectionID:     electionID,
			SelectedOption: sel,
			Source:         ballotbox.SourceElectronic,
			CastAt:         now,
		})
	}

	// Step two: write the anonymous ballots. On failure, compensate the flip.
	if err := s.ballots.AppendAll(ctx, ballots); err != nil {
		s.logger.ErrorContext(ctx, "ballot write failed after status flip, compensating",
			"error", err,
			"election_id", electionID,
			"voter_id", voterID,
		)
		s.compensate(ctx, electionID, voterID, actor, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ballot")
	}

	s.metrics.IncVotesCast()
	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:          voterID,
		ActorRole:        actor.Role,
		Action:           audit.ActionVoteSubmitted,
		TargetEmployeeID: voterID,
		ElectionID:       electionID,
		// The count is audited, never the selections. The audit log is keyed
		// by actor and must stay unjoinable to ballot content.
		Details:   map[string]any{"ballot_count": len(ballots)},
		IPAddress: actor.IP,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit vote submission",
			"error", err,
			"election_id", electionID,
		)
	}
	return nil
}

// validateSelections checks option validity and the per-type selection shape.
func (s *Service) validateSelections(ctx context.Context, e *election.Election, selections []string) error {
	if len(selections) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one selection is required")
	}

	options, err := s.elections.ListOptions(ctx, e.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list election options")
	}
	valid := make(map[string]bool, len(options))
	for _, opt := range options {
		valid[opt.Name] = true
	}

	seen := make(map[string]bool, len(selections))
	hasAbstain := false
	for _, sel := range selections {
		if !valid[sel] {
			return dErrors.Newf(dErrors.CodeBadRequest, "%q is not an option in this election", sel)
		}
		if seen[sel] {
			return dErrors.Newf(dErrors.CodeBadRequest, "option %q selected more than once", sel)
		}
		seen[sel] = true
		if sel == election.AbstainOption {
			hasAbstain = true
		}
	}

	if !e.Type.MultiSelect() {
		if len(selections) != 1 {
			return dErrors.New(dErrors.CodeBadRequest, "this election accepts exactly one selection")
		}
		return nil
	}
	// Abstention in a multi-select election must stand alone. The UI enforces
	// this too; the server does not trust the client.
	if hasAbstain && len(selections) > 1 {
		return dErrors.New(dErrors.CodeBadRequest, "abstention cannot be combined with other selections")
	}
	return nil
}

// compensate reverts the status flip after a failed ballot write. A failed
// revert is the fatal class: the audit entry is written synchronously so the
// incident is on the operational record before the caller sees an error.
func (s *Service) compensate(ctx context.Context, electionID, voterID string, actor audit.Actor, cause error) {
	reverted, err := s.statuses.SetStatusIf(ctx, electionID, voterID, roster.StatusVotedElectronic, roster.StatusNotVoted)
	if err == nil && reverted {
		return
	}

	s.metrics.IncRollbackFailures()
	s.logger.ErrorContext(ctx, "saga compensation failed, voter marked voted with no ballot",
		"error", err,
		"election_id", electionID,
		"voter_id", voterID,
	)
	if auditErr := s.audit.Emit(ctx, audit.Entry{
		ActorID:          voterID,
		ActorRole:        actor.Role,
		Action:           audit.ActionRollbackFailed,
		TargetEmployeeID: voterID,
		ElectionID:       electionID,
		Reason:           "status flip could not be reverted after ballot write failure; manual reconciliation required",
		Details: map[string]any{
			"ballot_write_error": cause.Error(),
			"revert_error":       errString(err),
		},
		IPAddress: actor.IP,
	}); auditErr != nil {
		// Nothing left to escalate to; the log line is the last trace.
		s.logger.ErrorContext(ctx, "failed to audit rollback failure",
			"error", auditErr,
			"election_id", electionID,
			"voter_id", voterID,
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
