package roster

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"unionvote/internal/audit"
	"unionvote/internal/platform/metrics"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

// Service owns roll-store mutations that are not part of a casting event:
// the administrative status override and bulk member management.
type Service struct {
	members  MemberStore
	statuses StatusStore
	audit    *audit.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(members MemberStore, statuses StatusStore, auditSvc *audit.Service, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		members:  members,
		statuses: statuses,
		audit:    auditSvc,
		metrics:  m,
		logger:   logger,
	}
}

// ForceReset is the single controlled exception to the forward-only status
// machine: voted_paper back to not_voted, with a mandatory reason. An
// electronic vote is never reset, because the ballot box holds no identity to
// reconcile a reversal against.
func (s *Service) ForceReset(ctx context.Context, electionID, employeeID, reason string, actor audit.Actor) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "a reason is required to reset a voting status")
	}

	current, err := s.statuses.GetStatus(ctx, electionID, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no voting status found for this member and election")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read voting status")
	}
	if current.Status != StatusVotedPaper {
		return dErrors.Newf(dErrors.CodePolicy,
			"status reset is only permitted from paper-vote registration; current status is %q", current.Status.Label())
	}

	ok, err := s.statuses.SetStatusIf(ctx, electionID, employeeID, StatusVotedPaper, StatusNotVoted)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset voting status")
	}
	if !ok {
		return dErrors.New(dErrors.CodeConflict, "voting status changed concurrently; reset aborted")
	}

	s.metrics.IncStatusResets()
	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		Action:           audit.ActionStatusForceReset,
		TargetEmployeeID: employeeID,
		ElectionID:       electionID,
		Reason:           reason,
		Details: map[string]any{
			"from_status": string(StatusVotedPaper),
			"to_status":   string(StatusNotVoted),
		},
		IPAddress: actor.IP,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit status reset",
			"error", err,
			"election_id", electionID,
			"target", employeeID,
		)
	}
	return nil
}

// ImportStats summarizes one bulk import.
type ImportStats struct {
	Imported int `json:"imported"`
	Deleted  int `json:"deleted"`
}

// ImportMembers upserts pre-parsed member records. With replace set, all
// non-admin members are removed first. CSV parsing happens upstream; this
// service only sees validated structs.
func (s *Service) ImportMembers(ctx context.Context, members []Member, replace bool, actor audit.Actor) (*ImportStats, error) {
	if len(members) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no member records supplied")
	}
	for _, m := range members {
		if strings.TrimSpace(m.EmployeeID) == "" || strings.TrimSpace(m.Name) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "employee_id and name are required for every member")
		}
		if !m.Role.Valid() {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid role %q for member %s", m.Role, m.EmployeeID)
		}
	}

	stats := &ImportStats{}
	if replace {
		deleted, err := s.members.DeleteNonAdmins(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear existing members")
		}
		stats.Deleted = deleted
	}

	imported, err := s.members.UpsertAll(ctx, members)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to import members")
	}
	stats.Imported = imported

	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    audit.ActionMembersImported,
		Details: map[string]any{
			"imported": stats.Imported,
			"deleted":  stats.Deleted,
			"replace":  replace,
		},
		IPAddress: actor.IP,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit member import", "error", err)
	}
	return stats, nil
}

// ResetMembers removes every non-admin member along with all voting status
// rows. The bulk reset used between election cycles.
func (s *Service) ResetMembers(ctx context.Context, actor audit.Actor) (int, error) {
	if err := s.statuses.DeleteAll(ctx); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear voting statuses")
	}
	deleted, err := s.members.DeleteNonAdmins(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete members")
	}

	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    audit.ActionMembersReset,
		Details:   map[string]any{"deleted_count": deleted},
		IPAddress: actor.IP,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit member reset", "error", err)
	}
	return deleted, nil
}

// ListMembers returns the roll without credentials.
func (s *Service) ListMembers(ctx context.Context) ([]Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	for i := range members {
		members[i].PIN = ""
	}
	return members, nil
}
