// Package tally aggregates anonymous ballots into published figures. It
// reads the ballot box and roll-store aggregates, never individual
// identities.
package tally

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"unionvote/internal/audit"
	"unionvote/internal/ballotbox"
	"unionvote/internal/election"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

// Engine computes count-time figures and accepts the out-of-band paper
// count. It satisfies election.TallyEngine.
type Engine struct {
	elections election.Store
	ballots   ballotbox.Store
	members   roster.MemberStore
	statuses  roster.StatusStore
	audit     *audit.Service
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine clock. Tests pin time with this.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(elections election.Store, ballots ballotbox.Store, members roster.MemberStore, statuses roster.StatusStore, auditSvc *audit.Service, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		elections: elections,
		ballots:   ballots,
		members:   members,
		statuses:  statuses,
		audit:     auditSvc,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute aggregates one election's ballots by option and derives turnout.
// Options nobody selected appear with a zero count. An option's count is the
// number of ballots naming it; turnout counts voters, so a multi-select
// ballot inflates neither.
func (e *Engine) Compute(ctx context.Context, electionID string) (*election.Figures, error) {
	var (
		options      []election.Option
		optionCounts []ballotbox.OptionCount
		statusCounts roster.StatusCounts
		totalVoters  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		options, err = e.elections.ListOptions(gctx, electionID)
		return err
	})
	g.Go(func() error {
		var err error
		optionCounts, err = e.ballots.CountByOption(gctx, electionID)
		return err
	})
	g.Go(func() error {
		var err error
		statusCounts, err = e.statuses.CountByStatus(gctx, electionID)
		return err
	})
	g.Go(func() error {
		var err error
		totalVoters, err = e.members.CountVoters(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather tally inputs")
	}

	byOption := make(map[string]int, len(options))
	for _, opt := range options {
		byOption[opt.Name] = 0
	}
	for _, oc := range optionCounts {
		byOption[oc.Option] = oc.Count
	}

	results := make([]election.Result, 0, len(byOption))
	for option, count := range byOption {
		results = append(results, election.Result{Option: option, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Option < results[j].Option
	})

	return &election.Figures{
		Results:     results,
		Turnout:     roster.Turnout(statusCounts.Voted(), totalVoters),
		TotalVoters: totalVoters,
		VotedCount:  statusCounts.Voted(),
	}, nil
}

// RegisterPaperTally enters the manual paper count for one option as n
// anonymous paper-aggregate ballot rows. Legal only after the voting window
// closes and before the election is counted, so paper ballots land in the
// same aggregation the electronic ones do.
func (e *Engine) RegisterPaperTally(ctx context.Context, electionID, option string, n int, actor audit.Actor) error {
	if n <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "ballot count must be positive")
	}

	el, err := e.elections.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election")
	}
	now := e.now()
	if el.Status == election.StatusCounted {
		return dErrors.New(dErrors.CodeInvalidState, "election has already been counted")
	}
	if !el.IsClosed(now) {
		return dErrors.New(dErrors.CodeInvalidState, "paper tallies can only be entered after the voting window ends")
	}

	options, err := e.elections.ListOptions(ctx, electionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list election options")
	}
	known := false
	for _, opt := range options {
		if opt.Name == option {
			known = true
			break
		}
	}
	if !known {
		return dErrors.Newf(dErrors.CodeBadRequest, "%q is not an option in this election", option)
	}

	rows := make([]ballotbox.Ballot, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, ballotbox.Ballot{
			ID:             uuid.New(),
			ElectionID:     electionID,
			SelectedOption: option,
			Source:         ballotbox.SourcePaperAggregate,
			CastAt:         now,
		})
	}
	if err := e.ballots.AppendAll(ctx, rows); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record paper tally")
	}

	if err := e.audit.Emit(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     audit.ActionPaperTallyRecorded,
		ElectionID: electionID,
		Details:    map[string]any{"ballots_added": n},
		IPAddress:  actor.IP,
	}); err != nil {
		e.logger.ErrorContext(ctx, "failed to audit paper tally",
			"error", err,
			"election_id", electionID,
		)
	}
	return nil
}
