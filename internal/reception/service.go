// Package reception handles the in-person voting desk: registering paper
// votes, looking members up, and desk-level statistics. Paper ballots never
// touch the ballot box here; their counts enter through the manual
// paper-tally path.
package reception

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"unionvote/internal/audit"
	"unionvote/internal/election"
	"unionvote/internal/platform/metrics"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

const paperVoteReason = "paper ballot issued at reception"

const searchLimit = 50

// Service implements the reception registrar.
type Service struct {
	elections election.Store
	members   roster.MemberStore
	statuses  roster.StatusStore
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

func NewService(elections election.Store, members roster.MemberStore, statuses roster.StatusStore, auditSvc *audit.Service, m *metrics.Metrics, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		elections: elections,
		members:   members,
		statuses:  statuses,
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

// RegisterPaperVote marks a member as having voted on paper. It walks the
// same status machine as an electronic cast through the same atomic flip, so
// a concurrent electronic vote and a desk registration cannot both succeed.
func (s *Service) RegisterPaperVote(ctx context.Context, electionID, employeeID string, actor audit.Actor) error {
	e, err := s.elections.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election")
	}
	if e.EffectiveStatus(s.now()) != election.StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, "election is not open for voting")
	}

	if _, err := s.members.Get(ctx, employeeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read member")
	}

	if err := s.statuses.EnsureRow(ctx, electionID, employeeID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize voting status")
	}

	won, err := s.statuses.SetStatusIf(ctx, electionID, employeeID, roster.StatusNotVoted, roster.StatusVotedPaper)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update voting status")
	}
	if !won {
		current, err := s.statuses.GetStatus(ctx, electionID, employeeID)
		if err != nil {
			return dErrors.New(dErrors.CodeConflict, "this member has already voted in this election")
		}
		return dErrors.Newf(dErrors.CodeConflict, "this member has already voted in this election (%s)", current.Status.Label())
	}

	s.metrics.IncPaperVotes()
	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		Action:           audit.ActionPaperVoteRegistered,
		TargetEmployeeID: employeeID,
		ElectionID:       electionID,
		Reason:           paperVoteReason,
		IPAddress:        actor.IP,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit paper vote registration",
			"error", err,
			"election_id", electionID,
			"target", employeeID,
		)
	}
	return nil
}

// MemberResult is one desk search hit with voting status attached.
type MemberResult struct {
	EmployeeID string        `json:"employee_id"`
	Name       string        `json:"name"`
	Status     roster.Status `json:"voting_status"`
}

// Search finds members by employee id or name fragment and attaches their
// status for the given election. Unregistered members count as not_voted.
func (s *Service) Search(ctx context.Context, electionID, query string) ([]MemberResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a search query is required")
	}

	members, err := s.members.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search members")
	}

	results := make([]MemberResult, 0, len(members))
	for _, m := range members {
		status := roster.StatusNotVoted
		if vs, err := s.statuses.GetStatus(ctx, electionID, m.EmployeeID); err == nil {
			status = vs.Status
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting status")
		}
		results = append(results, MemberResult{
			EmployeeID: m.EmployeeID,
			Name:       m.Name,
			Status:     status,
		})
	}
	return results, nil
}

// StatusLookup returns one member's status for one election.
func (s *Service) StatusLookup(ctx context.Context, electionID, employeeID string) (*MemberResult, error) {
	m, err := s.members.Get(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read member")
	}

	status := roster.StatusNotVoted
	if vs, err := s.statuses.GetStatus(ctx, electionID, employeeID); err == nil {
		status = vs.Status
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting status")
	}
	return &MemberResult{
		EmployeeID: m.EmployeeID,
		Name:       m.Name,
		Status:     status,
	}, nil
}

// Stats summarizes one election's roll for the desk dashboard.
type Stats struct {
	TotalVoters     int    `json:"total_voters"`
	NotVoted        int    `json:"not_voted"`
	VotedElectronic int    `json:"voted_electronic"`
	VotedPaper      int    `json:"voted_paper"`
	Turnout         string `json:"turnout"`
}

// ElectionStats aggregates per-status counts and turnout. Voters without a
// status row yet are counted as not_voted.
func (s *Service) ElectionStats(ctx context.Context, electionID string) (*Stats, error) {
	if _, err := s.elections.Get(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read election")
	}

	total, err := s.members.CountVoters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voters")
	}
	counts, err := s.statuses.CountByStatus(ctx, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voting statuses")
	}

	stats := &Stats{
		TotalVoters:     total,
		VotedElectronic: counts.VotedElectronic,
		VotedPaper:      counts.VotedPaper,
		Turnout:         roster.Turnout(counts.Voted(), total),
	}
	if notVoted := total - counts.Voted(); notVoted > 0 {
		stats.NotVoted = notVoted
	}
	return stats, nil
}
