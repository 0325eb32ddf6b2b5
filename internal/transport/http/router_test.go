package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionvote/internal/audit"
	"unionvote/internal/auth"
	"unionvote/internal/election"
	"unionvote/internal/platform/middleware"
	"unionvote/internal/reception"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
)

// staticValidator maps fixed bearer tokens to principals so handler tests
// need no real JWTs.
type staticValidator struct {
	principals map[string]middleware.Principal
}

func (v staticValidator) Validate(token string) (*middleware.Principal, error) {
	p, ok := v.principals[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &p, nil
}

type stubAuth struct {
	loginResult *auth.LoginResult
	loginErr    error
}

func (s stubAuth) Login(context.Context, string, string, string) (*auth.LoginResult, error) {
	return s.loginResult, s.loginErr
}

func (s stubAuth) Logout(context.Context, middleware.Principal) error { return nil }

type stubVoting struct {
	castErr  error
	lastCast struct {
		electionID string
		voterID    string
		selections []string
	}
}

func (s *stubVoting) Cast(_ context.Context, electionID, voterID string, selections []string, _ audit.Actor) error {
	s.lastCast.electionID = electionID
	s.lastCast.voterID = voterID
	s.lastCast.selections = selections
	return s.castErr
}

type stubElections struct {
	views []election.VoterView
}

func (s stubElections) Create(context.Context, election.CreateInput, audit.Actor) (*election.Election, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "not stubbed")
}
func (s stubElections) Activate(context.Context, string, audit.Actor) error { return nil }
func (s stubElections) Extend(context.Context, string, time.Time, audit.Actor) error {
	return nil
}
func (s stubElections) Count(context.Context, string, audit.Actor) (*election.Figures, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "not stubbed")
}
func (s stubElections) Results(context.Context, string) (*election.Figures, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "not stubbed")
}
func (s stubElections) List(context.Context) ([]election.Election, error) { return nil, nil }
func (s stubElections) ListForVoter(context.Context, string) ([]election.VoterView, error) {
	return s.views, nil
}

type stubReception struct{}

func (stubReception) RegisterPaperVote(context.Context, string, string, audit.Actor) error {
	return nil
}
func (stubReception) Search(context.Context, string, string) ([]reception.MemberResult, error) {
	return nil, nil
}
func (stubReception) StatusLookup(context.Context, string, string) (*reception.MemberResult, error) {
	return &reception.MemberResult{EmployeeID: "10001", Name: "Asha Rao", Status: roster.StatusNotVoted}, nil
}
func (stubReception) ElectionStats(context.Context, string) (*reception.Stats, error) {
	return &reception.Stats{}, nil
}

type stubRoster struct{}

func (stubRoster) ForceReset(context.Context, string, string, string, audit.Actor) error {
	return nil
}
func (stubRoster) ImportMembers(context.Context, []roster.Member, bool, audit.Actor) (*roster.ImportStats, error) {
	return &roster.ImportStats{}, nil
}
func (stubRoster) ResetMembers(context.Context, audit.Actor) (int, error) { return 0, nil }
func (stubRoster) ListMembers(context.Context) ([]roster.Member, error)   { return nil, nil }

type stubTally struct{}

func (stubTally) RegisterPaperTally(context.Context, string, string, int, audit.Actor) error {
	return nil
}

type stubAudit struct{}

func (stubAudit) List(context.Context, int, int) (*audit.Page, error) {
	return &audit.Page{Entries: []audit.Entry{}}, nil
}

func newTestRouter(t *testing.T, voting *stubVoting) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator: staticValidator{principals: map[string]middleware.Principal{
			"voter-token":     {EmployeeID: "10001", Name: "Asha Rao", Role: "voter"},
			"reception-token": {EmployeeID: "20001", Name: "Desk", Role: "reception"},
			"admin-token":     {EmployeeID: "90001", Name: "Root", Role: "admin"},
		}},
		Auth:      stubAuth{loginResult: &auth.LoginResult{Token: "voter-token", EmployeeID: "10001", Role: "voter"}},
		Voting:    voting,
		Elections: stubElections{},
		Reception: stubReception{},
		Roster:    stubRoster{},
		Tally:     stubTally{},
		Audit:     stubAudit{},
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"employee_id": "10001", "pin": "12345",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body auth.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "voter-token", body.Token)
}

func TestVoteSubmitRequiresAuth(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodPost, "/api/vote/submit", "", map[string]any{
		"election_id": "e1", "selections": []string{"Yes"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVoteSubmitRequiresVoterRole(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodPost, "/api/vote/submit", "reception-token", map[string]any{
		"election_id": "e1", "selections": []string{"Yes"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVoteSubmit(t *testing.T) {
	voting := &stubVoting{}
	router := newTestRouter(t, voting)

	rec := doJSON(t, router, http.MethodPost, "/api/vote/submit", "voter-token", map[string]any{
		"election_id": "e1", "selections": []string{"Yes"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "e1", voting.lastCast.electionID)
	assert.Equal(t, "10001", voting.lastCast.voterID, "the voter is taken from the token, never the body")
	assert.Equal(t, []string{"Yes"}, voting.lastCast.selections)
}

func TestVoteSubmitTranslatesConflict(t *testing.T) {
	voting := &stubVoting{castErr: dErrors.New(dErrors.CodeConflict, "you have already voted in this election")}
	router := newTestRouter(t, voting)

	rec := doJSON(t, router, http.MethodPost, "/api/vote/submit", "voter-token", map[string]any{
		"election_id": "e1", "selections": []string{"Yes"},
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body["error"])
	assert.NotEmpty(t, body["error_description"])
}

func TestVoteSubmitRejectsMissingElection(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodPost, "/api/vote/submit", "voter-token", map[string]any{
		"selections": []string{"Yes"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodGet, "/api/admin/audit-logs", "voter-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/admin/audit-logs", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReceptionRoutesAllowAdmins(t *testing.T) {
	router := newTestRouter(t, &stubVoting{})

	rec := doJSON(t, router, http.MethodGet, "/api/reception/status?election_id=e1&employee_id=10001", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/reception/status?election_id=e1&employee_id=10001", "voter-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
