package election

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"unionvote/internal/audit"
	"unionvote/internal/platform/metrics"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

// TallyEngine computes count-time figures. Implemented by internal/tally;
// declared here so the lifecycle manager can trigger it without importing it.
type TallyEngine interface {
	Compute(ctx context.Context, electionID string) (*Figures, error)
}

// TxRunner wraps a function in a roll-database transaction. The count-time
// status flip and the results write must commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the election lifecycle manager. It owns the
// upcoming/active/closed/counted machine and gates which operations are legal
// at each state.
type Service struct {
	store    Store
	members  roster.MemberStore
	statuses roster.StatusStore
	tally    TallyEngine
	txRunner TxRunner
	audit    *audit.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock. Tests pin time with this.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithTxRunner sets the transaction runner used by Count.
func WithTxRunner(r TxRunner) ServiceOption {
	return func(s *Service) { s.txRunner = r }
}

func NewService(store Store, members roster.MemberStore, statuses roster.StatusStore, auditSvc *audit.Service, m *metrics.Metrics, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		members:  members,
		statuses: statuses,
		audit:    auditSvc,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTallyEngine wires the tally engine after construction. The engine reads
// election metadata, so it is built second.
func (s *Service) SetTallyEngine(engine TallyEngine) {
	s.tally = engine
}

// Create validates and persists a new election, always appending the
// synthetic abstain option, then initializes a not_voted status row for every
// current voter.
func (s *Service) Create(ctx context.Context, input CreateInput, actor audit.Actor) (*Election, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "election title is required")
	}
	if !input.Type.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown election type %q", input.Type)
	}
	if !input.StartAt.Before(input.EndAt) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "election start must be before its end")
	}
	if len(input.Options) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one option is required")
	}

	e := &Election{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
		Status:      StatusUpcoming,
		DetailURL:   strings.TrimSpace(input.DetailURL),
		CreatedAt:   s.now(),
	}

	seen := make(map[string]bool, len(input.Options)+1)
	options := make([]Option, 0, len(input.Options)+1)
	for i, in := range input.Options {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "option names must be non-empty")
		}
		if name == AbstainOption {
			// The abstain option is always synthetic; a caller-supplied copy
			// would double it.
			continue
		}
		if seen[name] {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "duplicate option name %q", name)
		}
		seen[name] = true
		options = append(options, Option{
			ElectionID:   e.ID,
			Name:         name,
			Description:  strings.TrimSpace(in.Description),
			DisplayOrder: i + 1,
		})
	}
	if len(options) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one non-abstain option is required")
	}
	options = append(options, Option{
		ElectionID:   e.ID,
		Name:         AbstainOption,
		DisplayOrder: len(options) + 1,
	})

	if err := s.store.Create(ctx, e, options); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}

	voterIDs, err := s.members.ListVoterIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voters for status initialization")
	}
	if err := s.statuses.InitForElection(ctx, e.ID, voterIDs); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize voting statuses")
	}

	s.metrics.IncElectionsCreated()
	s.emitAudit(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     audit.ActionElectionCreated,
		ElectionID: e.ID,
		Details: map[string]any{
			"title":        e.Title,
			"type":         string(e.Type),
			"option_count": len(options),
			"voter_count":  len(voterIDs),
		},
		IPAddress: actor.IP,
	})
	return e, nil
}

// Activate moves an upcoming election to active. Re-activating an active
// election is a legal idempotent edge; activating a closed or counted one is
// not.
func (s *Service) Activate(ctx context.Context, id string, actor audit.Actor) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	switch e.EffectiveStatus(s.now()) {
	case StatusCounted:
		return dErrors.New(dErrors.CodeInvalidState, "election has already been counted")
	case StatusClosed:
		return dErrors.New(dErrors.CodeInvalidState, "election voting window has already ended")
	case StatusActive:
		// Idempotent; fall through to the audit entry.
	default:
		if err := s.store.UpdateStatus(ctx, id, StatusActive); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate election")
		}
	}

	s.emitAudit(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     audit.ActionElectionActivated,
		ElectionID: id,
		IPAddress:  actor.IP,
	})
	return nil
}

// Extend pushes an election's end strictly later. Every other field is
// immutable after creation.
func (s *Service) Extend(ctx context.Context, id string, newEnd time.Time, actor audit.Actor) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == StatusCounted {
		return dErrors.New(dErrors.CodeInvalidState, "election has already been counted")
	}
	if !newEnd.After(e.EndAt) {
		return dErrors.New(dErrors.CodeBadRequest, "new end must be later than the current end")
	}

	if err := s.store.UpdateEndAt(ctx, id, newEnd); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend election")
	}

	s.emitAudit(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     audit.ActionElectionExtended,
		ElectionID: id,
		Details: map[string]any{
			"previous_end": e.EndAt,
			"new_end":      newEnd,
		},
		IPAddress: actor.IP,
	})
	return nil
}

// Count closes the books on an election: it computes the tally once and
// persists it in the same transaction that flips the status to counted, so a
// racing count request cannot publish a second set of figures.
func (s *Service) Count(ctx context.Context, id string, actor audit.Actor) (*Figures, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if e.Status == StatusCounted {
		return nil, dErrors.New(dErrors.CodeInvalidState, "election has already been counted")
	}
	if !e.IsClosed(now) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "election voting window has not ended yet")
	}

	figures, err := s.tally.Compute(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute tally")
	}
	figures.CountedAt = now

	err = s.runInTx(ctx, func(ctx context.Context) error {
		won, err := s.store.SetCounted(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark election counted")
		}
		if !won {
			return dErrors.New(dErrors.CodeConflict, "election was counted concurrently")
		}
		if err := s.store.SaveResults(ctx, id, figures); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist election results")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     audit.ActionElectionCounted,
		ElectionID: id,
		Details: map[string]any{
			"turnout":      figures.Turnout,
			"total_voters": figures.TotalVoters,
			"voted_count":  figures.VotedCount,
		},
		IPAddress: actor.IP,
	})
	return figures, nil
}

// Results replays the figures persisted at count time. It never recomputes,
// so a later ballot-store change cannot alter a published result.
func (s *Service) Results(ctx context.Context, id string) (*Figures, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusCounted {
		return nil, dErrors.New(dErrors.CodeInvalidState, "results are not available until the election has been counted")
	}
	figures, err := s.store.GetResults(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeIntegrity, "election is marked counted but has no persisted results")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election results")
	}
	return figures, nil
}

// Get returns one election with the implicit closed state resolved.
func (s *Service) Get(ctx context.Context, id string) (*Election, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Status = e.EffectiveStatus(s.now())
	return e, nil
}

// Options lists an election's options in display order.
func (s *Service) Options(ctx context.Context, id string) ([]Option, error) {
	options, err := s.store.ListOptions(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list election options")
	}
	return options, nil
}

// List returns every election, newest first, with effective statuses.
func (s *Service) List(ctx context.Context) ([]Election, error) {
	elections, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	now := s.now()
	for i := range elections {
		elections[i].Status = elections[i].EffectiveStatus(now)
	}
	sort.Slice(elections, func(i, j int) bool {
		return elections[i].StartAt.After(elections[j].StartAt)
	})
	return elections, nil
}

// VoterView is one election as shown to a voter: options plus the caller's
// own status.
type VoterView struct {
	Election
	Options     []Option      `json:"candidates"`
	VoterStatus roster.Status `json:"my_status"`
}

// ListForVoter returns upcoming and active elections with the caller's status
// attached. A voter added after election creation gets a status row lazily on
// first read.
func (s *Service) ListForVoter(ctx context.Context, employeeID string) ([]VoterView, error) {
	elections, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var views []VoterView
	for _, e := range elections {
		if e.Status != StatusUpcoming && e.Status != StatusActive {
			continue
		}
		options, err := s.store.ListOptions(ctx, e.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list election options")
		}
		if err := s.statuses.EnsureRow(ctx, e.ID, employeeID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize voting status")
		}
		vs, err := s.statuses.GetStatus(ctx, e.ID, employeeID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting status")
		}
		views = append(views, VoterView{
			Election:    e,
			Options:     options,
			VoterStatus: vs.Status,
		})
	}
	return views, nil
}

func (s *Service) get(ctx context.Context, id string) (*Election, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election")
	}
	return e, nil
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txRunner == nil {
		return fn(ctx)
	}
	return s.txRunner.RunInTx(ctx, fn)
}

func (s *Service) emitAudit(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Emit(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit election action",
			"error", err,
			"action", string(entry.Action),
			"election_id", entry.ElectionID,
		)
	}
}
