package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"unionvote/internal/audit"
	"unionvote/internal/election"
	"unionvote/internal/reception"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/httputil"
)

// ReceptionService is the slice of the reception service this handler needs.
type ReceptionService interface {
	RegisterPaperVote(ctx context.Context, electionID, employeeID string, actor audit.Actor) error
	Search(ctx context.Context, electionID, query string) ([]reception.MemberResult, error)
	StatusLookup(ctx context.Context, electionID, employeeID string) (*reception.MemberResult, error)
	ElectionStats(ctx context.Context, electionID string) (*reception.Stats, error)
}

type ReceptionHandler struct {
	reception ReceptionService
	elections ElectionService
}

func (h *ReceptionHandler) handleListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.elections.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if elections == nil {
		elections = []election.Election{}
	}
	httputil.WriteJSON(w, http.StatusOK, elections)
}

func (h *ReceptionHandler) handleRegisterPaperVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElectionID string `json:"election_id"`
		EmployeeID string `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.ElectionID) == "" || strings.TrimSpace(req.EmployeeID) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id and employee_id are required"))
		return
	}

	principal, ip := actorFromRequest(r)
	actor := audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip}
	if err := h.reception.RegisterPaperVote(r.Context(), req.ElectionID, req.EmployeeID, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "paper vote registered"})
}

func (h *ReceptionHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	electionID := r.URL.Query().Get("election_id")
	if electionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id is required"))
		return
	}
	results, err := h.reception.Search(r.Context(), electionID, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if results == nil {
		results = []reception.MemberResult{}
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (h *ReceptionHandler) handleStatusLookup(w http.ResponseWriter, r *http.Request) {
	electionID := r.URL.Query().Get("election_id")
	employeeID := r.URL.Query().Get("employee_id")
	if electionID == "" || employeeID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id and employee_id are required"))
		return
	}
	result, err := h.reception.StatusLookup(r.Context(), electionID, employeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *ReceptionHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	electionID := r.URL.Query().Get("election_id")
	if electionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id is required"))
		return
	}
	stats, err := h.reception.ElectionStats(r.Context(), electionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
