package reception

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"unionvote/internal/audit"
	"unionvote/internal/election"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
)

// =============================================================================
// Reception Registrar Test Suite
// =============================================================================

type ReceptionSuite struct {
	suite.Suite
	elections  *election.InMemoryStore
	roll       *roster.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	now        time.Time
}

func TestReceptionSuite(t *testing.T) {
	suite.Run(t, new(ReceptionSuite))
}

func (s *ReceptionSuite) SetupTest() {
	s.elections = election.NewInMemoryStore()
	s.roll = roster.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	s.service = NewService(
		s.elections, s.roll, s.roll,
		audit.NewService(s.auditStore),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ReceptionSuite) seedElection(id string, status election.Status, start, end time.Time) {
	s.Require().NoError(s.elections.Create(context.Background(), &election.Election{
		ID: id, Title: "t", Type: election.TypeOfficer,
		StartAt: start, EndAt: end, Status: status,
	}, nil))
}

func (s *ReceptionSuite) seedMember(id, name string, role roster.Role) {
	_, err := s.roll.UpsertAll(context.Background(), []roster.Member{
		{EmployeeID: id, PIN: "12345", Name: name, Role: role},
	})
	s.Require().NoError(err)
}

func (s *ReceptionSuite) actor() audit.Actor {
	return audit.Actor{ID: "desk1", Role: "reception", IP: "10.0.0.3"}
}

func (s *ReceptionSuite) TestRegisterPaperVote() {
	ctx := context.Background()
	s.seedElection("e1", election.StatusActive, s.now.Add(-time.Hour), s.now.Add(time.Hour))
	s.seedMember("v1", "Asha Rao", roster.RoleVoter)

	s.Run("marks the member as voted on paper and audits", func() {
		err := s.service.RegisterPaperVote(ctx, "e1", "v1", s.actor())
		s.Require().NoError(err)

		vs, err := s.roll.GetStatus(ctx, "e1", "v1")
		s.Require().NoError(err)
		s.Equal(roster.StatusVotedPaper, vs.Status)

		entry := s.auditStore.LastAction(audit.ActionPaperVoteRegistered)
		s.Require().NotNil(entry)
		s.Equal("desk1", entry.ActorID)
		s.Equal("v1", entry.TargetEmployeeID)
		s.Equal(paperVoteReason, entry.Reason)
	})

	s.Run("double registration conflicts with a readable status", func() {
		err := s.service.RegisterPaperVote(ctx, "e1", "v1", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeConflict))
		s.Contains(dErrors.MessageOf(err), "registered for paper voting")
	})

	s.Run("already voted electronically conflicts", func() {
		s.seedMember("v2", "Ben Okafor", roster.RoleVoter)
		s.Require().NoError(s.roll.EnsureRow(ctx, "e1", "v2"))
		ok, err := s.roll.SetStatusIf(ctx, "e1", "v2", roster.StatusNotVoted, roster.StatusVotedElectronic)
		s.Require().NoError(err)
		s.Require().True(ok)

		err = s.service.RegisterPaperVote(ctx, "e1", "v2", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeConflict))
		s.Contains(dErrors.MessageOf(err), "voted electronically")
	})

	s.Run("unknown election", func() {
		err := s.service.RegisterPaperVote(ctx, "missing", "v1", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unknown member", func() {
		err := s.service.RegisterPaperVote(ctx, "e1", "ghost", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("inactive election", func() {
		s.seedElection("e2", election.StatusUpcoming, s.now.Add(time.Hour), s.now.Add(2*time.Hour))
		err := s.service.RegisterPaperVote(ctx, "e2", "v1", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})

	s.Run("window expired counts as inactive even when still marked active", func() {
		s.seedElection("e3", election.StatusActive, s.now.Add(-3*time.Hour), s.now.Add(-time.Hour))
		err := s.service.RegisterPaperVote(ctx, "e3", "v1", s.actor())
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *ReceptionSuite) TestSearch() {
	ctx := context.Background()
	s.seedElection("e1", election.StatusActive, s.now.Add(-time.Hour), s.now.Add(time.Hour))
	s.seedMember("10001", "Asha Rao", roster.RoleVoter)
	s.seedMember("10002", "Asha Patel", roster.RoleVoter)
	s.seedMember("20001", "Ben Okafor", roster.RoleVoter)

	s.Run("matches by name fragment with statuses attached", func() {
		results, err := s.service.Search(ctx, "e1", "asha")
		s.Require().NoError(err)
		s.Require().Len(results, 2)
		for _, r := range results {
			s.Equal(roster.StatusNotVoted, r.Status, "unregistered members read as not_voted")
		}
	})

	s.Run("matches by employee id", func() {
		results, err := s.service.Search(ctx, "e1", "20001")
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal("Ben Okafor", results[0].Name)
	})

	s.Run("blank query is rejected", func() {
		_, err := s.service.Search(ctx, "e1", "   ")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ReceptionSuite) TestElectionStats() {
	ctx := context.Background()
	s.seedElection("e1", election.StatusActive, s.now.Add(-time.Hour), s.now.Add(time.Hour))
	for _, id := range []string{"v1", "v2", "v3", "v4"} {
		s.seedMember(id, "Member", roster.RoleVoter)
	}
	s.Require().NoError(s.roll.EnsureRow(ctx, "e1", "v1"))
	ok, err := s.roll.SetStatusIf(ctx, "e1", "v1", roster.StatusNotVoted, roster.StatusVotedElectronic)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NoError(s.roll.EnsureRow(ctx, "e1", "v2"))
	ok, err = s.roll.SetStatusIf(ctx, "e1", "v2", roster.StatusNotVoted, roster.StatusVotedPaper)
	s.Require().NoError(err)
	s.Require().True(ok)

	stats, err := s.service.ElectionStats(ctx, "e1")
	s.Require().NoError(err)
	s.Equal(4, stats.TotalVoters)
	s.Equal(1, stats.VotedElectronic)
	s.Equal(1, stats.VotedPaper)
	s.Equal(2, stats.NotVoted, "voters without a status row count as not_voted")
	s.Equal("50.0", stats.Turnout)
}
