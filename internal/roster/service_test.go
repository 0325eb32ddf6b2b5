package roster

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"unionvote/internal/audit"
	dErrors "unionvote/pkg/domain-errors"
)

// =============================================================================
// Roster Service Test Suite
// =============================================================================
// ForceReset is the single legal reverse edge of the status machine; the
// tests pin its policy boundaries and the mandatory audit trail.

type RosterServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestRosterServiceSuite(t *testing.T) {
	suite.Run(t, new(RosterServiceSuite))
}

func (s *RosterServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(s.store, s.store, audit.NewService(s.auditStore), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RosterServiceSuite) actor() audit.Actor {
	return audit.Actor{ID: "admin1", Role: "admin", IP: "10.0.0.2"}
}

func (s *RosterServiceSuite) seedStatus(electionID, employeeID string, status Status) {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureRow(ctx, electionID, employeeID))
	if status != StatusNotVoted {
		ok, err := s.store.SetStatusIf(ctx, electionID, employeeID, StatusNotVoted, status)
		s.Require().NoError(err)
		s.Require().True(ok)
	}
}

func (s *RosterServiceSuite) TestForceReset() {
	ctx := context.Background()

	s.Run("resets a paper vote and audits the verbatim reason", func() {
		s.seedStatus("e1", "v1", StatusVotedPaper)

		err := s.service.ForceReset(ctx, "e1", "v1", "member voted at the wrong desk", s.actor())
		s.Require().NoError(err)

		vs, err := s.store.GetStatus(ctx, "e1", "v1")
		s.Require().NoError(err)
		s.Equal(StatusNotVoted, vs.Status)

		entry := s.auditStore.LastAction(audit.ActionStatusForceReset)
		s.Require().NotNil(entry)
		s.Equal("member voted at the wrong desk", entry.Reason)
		s.Equal("v1", entry.TargetEmployeeID)
		s.Equal("e1", entry.ElectionID)
	})

	s.Run("empty reason fails with no audit entry", func() {
		s.seedStatus("e2", "v2", StatusVotedPaper)
		before := len(s.auditStore.Entries())

		for _, reason := range []string{"", "   ", "\t\n"} {
			err := s.service.ForceReset(ctx, "e2", "v2", reason, s.actor())
			s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		}
		s.Len(s.auditStore.Entries(), before, "refused resets must leave no audit trace")
	})

	s.Run("electronic vote is never reset", func() {
		s.seedStatus("e3", "v3", StatusVotedElectronic)

		err := s.service.ForceReset(ctx, "e3", "v3", "operator mistake", s.actor())
		s.True(dErrors.Is(err, dErrors.CodePolicy))

		vs, err2 := s.store.GetStatus(ctx, "e3", "v3")
		s.Require().NoError(err2)
		s.Equal(StatusVotedElectronic, vs.Status)
	})

	s.Run("not_voted cannot be reset", func() {
		s.seedStatus("e4", "v4", StatusNotVoted)
		err := s.service.ForceReset(ctx, "e4", "v4", "nothing to undo", s.actor())
		s.True(dErrors.Is(err, dErrors.CodePolicy))
	})

	s.Run("missing status row", func() {
		err := s.service.ForceReset(ctx, "e5", "ghost", "who is this", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *RosterServiceSuite) TestImportMembers() {
	ctx := context.Background()

	s.Run("upserts records and audits the import", func() {
		stats, err := s.service.ImportMembers(ctx, []Member{
			{EmployeeID: "10001", PIN: "12345", Name: "Asha Rao", Role: RoleVoter},
			{EmployeeID: "10002", PIN: "23456", Name: "Ben Okafor", Role: RoleReception},
		}, false, s.actor())
		s.Require().NoError(err)
		s.Equal(2, stats.Imported)
		s.Equal(0, stats.Deleted)
		s.NotNil(s.auditStore.LastAction(audit.ActionMembersImported))
	})

	s.Run("replace mode clears non-admins first", func() {
		_, err := s.service.ImportMembers(ctx, []Member{
			{EmployeeID: "90001", PIN: "00000", Name: "Root", Role: RoleAdmin},
		}, false, s.actor())
		s.Require().NoError(err)

		stats, err := s.service.ImportMembers(ctx, []Member{
			{EmployeeID: "10003", PIN: "34567", Name: "Cam Diaz", Role: RoleVoter},
		}, true, s.actor())
		s.Require().NoError(err)
		s.Equal(1, stats.Imported)
		s.Equal(2, stats.Deleted, "admins survive a replace import")

		_, err = s.store.Get(ctx, "90001")
		s.NoError(err)
	})

	s.Run("rejects empty batch", func() {
		_, err := s.service.ImportMembers(ctx, nil, false, s.actor())
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects invalid role", func() {
		_, err := s.service.ImportMembers(ctx, []Member{
			{EmployeeID: "10004", PIN: "45678", Name: "Dai Chen", Role: "superuser"},
		}, false, s.actor())
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *RosterServiceSuite) TestListMembersStripsCredentials() {
	ctx := context.Background()
	_, err := s.service.ImportMembers(ctx, []Member{
		{EmployeeID: "10001", PIN: "12345", Name: "Asha Rao", Role: RoleVoter},
	}, false, s.actor())
	s.Require().NoError(err)

	members, err := s.service.ListMembers(ctx)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Empty(members[0].PIN)
}

func (s *RosterServiceSuite) TestResetMembers() {
	ctx := context.Background()
	_, err := s.service.ImportMembers(ctx, []Member{
		{EmployeeID: "90001", PIN: "00000", Name: "Root", Role: RoleAdmin},
		{EmployeeID: "10001", PIN: "12345", Name: "Asha Rao", Role: RoleVoter},
	}, false, s.actor())
	s.Require().NoError(err)
	s.seedStatus("e1", "10001", StatusVotedPaper)

	deleted, err := s.service.ResetMembers(ctx, s.actor())
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.GetStatus(ctx, "e1", "10001")
	s.Error(err, "status rows are cleared with the members")
	s.NotNil(s.auditStore.LastAction(audit.ActionMembersReset))
}
