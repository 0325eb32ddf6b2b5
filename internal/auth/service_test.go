package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"unionvote/internal/audit"
	"unionvote/internal/auth/revocation"
	"unionvote/internal/jwttoken"
	"unionvote/internal/platform/middleware"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
)

// =============================================================================
// Auth Service Test Suite
// =============================================================================

type AuthSuite struct {
	suite.Suite
	roll       *roster.InMemoryStore
	auditStore *audit.InMemoryStore
	tokens     *jwttoken.Service
	trl        *revocation.MemoryTRL
	service    *Service
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.roll = roster.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.tokens = jwttoken.NewService("test-key", "unionvote", time.Hour)
	s.trl = revocation.NewMemoryTRL()
	s.service = NewService(s.roll, s.tokens, s.trl, audit.NewService(s.auditStore), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.roll.UpsertAll(context.Background(), []roster.Member{
		{EmployeeID: "10001", PIN: "12345", Name: "Asha Rao", Role: roster.RoleVoter},
	})
	s.Require().NoError(err)
}

func (s *AuthSuite) TestLogin() {
	ctx := context.Background()

	s.Run("valid credentials issue a token", func() {
		result, err := s.service.Login(ctx, "10001", "12345", "10.0.0.1")
		s.Require().NoError(err)
		s.NotEmpty(result.Token)
		s.Equal("10001", result.EmployeeID)
		s.Equal("voter", result.Role)

		principal, err := s.tokens.Validate(result.Token)
		s.Require().NoError(err)
		s.Equal("10001", principal.EmployeeID)
		s.NotNil(s.auditStore.LastAction(audit.ActionLoginSucceeded))
	})

	s.Run("wrong PIN and unknown member fail identically", func() {
		_, wrongPIN := s.service.Login(ctx, "10001", "54321", "10.0.0.1")
		_, unknown := s.service.Login(ctx, "99999", "12345", "10.0.0.1")

		s.True(dErrors.Is(wrongPIN, dErrors.CodeUnauthorized))
		s.True(dErrors.Is(unknown, dErrors.CodeUnauthorized))
		s.Equal(dErrors.MessageOf(wrongPIN), dErrors.MessageOf(unknown),
			"login failures must not reveal whether the employee ID exists")
		s.NotNil(s.auditStore.LastAction(audit.ActionLoginFailed))
	})

	s.Run("malformed PIN shape is rejected before lookup", func() {
		for _, pin := range []string{"", "1234", "123456", "12a45"} {
			_, err := s.service.Login(ctx, "10001", pin, "10.0.0.1")
			s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
		}
	})

	s.Run("missing employee id", func() {
		_, err := s.service.Login(ctx, "  ", "12345", "10.0.0.1")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *AuthSuite) TestLogout() {
	ctx := context.Background()

	principal := middleware.Principal{
		EmployeeID: "10001",
		JTI:        "jti-1",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	s.Require().NoError(s.service.Logout(ctx, principal))

	revoked, err := s.trl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	s.Run("expired token is a no-op", func() {
		expired := middleware.Principal{JTI: "jti-2", ExpiresAt: time.Now().Add(-time.Minute)}
		s.Require().NoError(s.service.Logout(ctx, expired))
		revoked, err := s.trl.IsRevoked(ctx, "jti-2")
		s.Require().NoError(err)
		s.False(revoked)
	})
}
