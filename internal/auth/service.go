// Package auth implements login against the member roll and logout via the
// token revocation list.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"unionvote/internal/audit"
	"unionvote/internal/platform/middleware"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/sentinel"
)

const pinLength = 5

// invalidCredentials is returned for every login failure. The message never
// distinguishes an unknown employee ID from a wrong PIN.
var invalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid employee ID or PIN")

// TokenIssuer signs access tokens. Implemented by internal/jwttoken.
type TokenIssuer interface {
	Generate(employeeID, name, role string) (string, error)
}

// RevocationList records logged-out tokens by jti.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service authenticates members and manages token revocation.
type Service struct {
	members roster.MemberStore
	tokens  TokenIssuer
	trl     RevocationList
	audit   *audit.Service
	logger  *slog.Logger
}

func NewService(members roster.MemberStore, tokens TokenIssuer, trl RevocationList, auditSvc *audit.Service, logger *slog.Logger) *Service {
	return &Service{
		members: members,
		tokens:  tokens,
		trl:     trl,
		audit:   auditSvc,
		logger:  logger,
	}
}

// LoginResult carries the issued token and the member it identifies.
type LoginResult struct {
	Token      string `json:"token"`
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// Login verifies an employee ID and PIN and issues an access token. The PIN
// is compared verbatim in constant time.
func (s *Service) Login(ctx context.Context, employeeID, pin, ip string) (*LoginResult, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "employee_id is required")
	}
	if len(pin) != pinLength || !govalidator.IsNumeric(pin) {
		s.auditLoginFailed(ctx, employeeID, ip)
		return nil, invalidCredentials
	}

	member, err := s.members.Get(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.auditLoginFailed(ctx, employeeID, ip)
			return nil, invalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read member")
	}
	if subtle.ConstantTimeCompare([]byte(member.PIN), []byte(pin)) != 1 {
		s.auditLoginFailed(ctx, employeeID, ip)
		return nil, invalidCredentials
	}

	token, err := s.tokens.Generate(member.EmployeeID, member.Name, string(member.Role))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:   member.EmployeeID,
		ActorRole: string(member.Role),
		Action:    audit.ActionLoginSucceeded,
		IPAddress: ip,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit login", "error", err)
	}
	return &LoginResult{
		Token:      token,
		EmployeeID: member.EmployeeID,
		Name:       member.Name,
		Role:       string(member.Role),
	}, nil
}

// Logout revokes the caller's token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, principal middleware.Principal) error {
	if s.trl == nil || principal.JTI == "" {
		return nil
	}
	ttl := time.Until(principal.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.Revoke(ctx, principal.JTI, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

func (s *Service) auditLoginFailed(ctx context.Context, employeeID, ip string) {
	if err := s.audit.Emit(ctx, audit.Entry{
		ActorID:   employeeID,
		Action:    audit.ActionLoginFailed,
		IPAddress: ip,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to audit login failure", "error", err)
	}
}
