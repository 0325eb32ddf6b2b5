package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"unionvote/internal/audit"
	"unionvote/internal/election"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/httputil"
)

// VotingService is the slice of the casting service this handler needs.
type VotingService interface {
	Cast(ctx context.Context, electionID, voterID string, selections []string, actor audit.Actor) error
}

// ElectionService is the slice of the election service the transport needs.
type ElectionService interface {
	Create(ctx context.Context, input election.CreateInput, actor audit.Actor) (*election.Election, error)
	Activate(ctx context.Context, id string, actor audit.Actor) error
	Extend(ctx context.Context, id string, newEnd time.Time, actor audit.Actor) error
	Count(ctx context.Context, id string, actor audit.Actor) (*election.Figures, error)
	Results(ctx context.Context, id string) (*election.Figures, error)
	List(ctx context.Context) ([]election.Election, error)
	ListForVoter(ctx context.Context, employeeID string) ([]election.VoterView, error)
}

type VoteHandler struct {
	voting    VotingService
	elections ElectionService
}

func (h *VoteHandler) handleListElections(w http.ResponseWriter, r *http.Request) {
	principal, _ := actorFromRequest(r)
	views, err := h.elections.ListForVoter(r.Context(), principal.EmployeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if views == nil {
		views = []election.VoterView{}
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *VoteHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElectionID string   `json:"election_id"`
		Selections []string `json:"selections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.ElectionID) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id is required"))
		return
	}

	principal, ip := actorFromRequest(r)
	actor := audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip}
	if err := h.voting.Cast(r.Context(), req.ElectionID, principal.EmployeeID, req.Selections, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Confirmation only; ballot content is never echoed back.
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "your vote has been recorded"})
}
