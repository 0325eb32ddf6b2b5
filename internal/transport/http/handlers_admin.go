package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"unionvote/internal/audit"
	"unionvote/internal/election"
	"unionvote/internal/reception"
	"unionvote/internal/roster"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/httputil"
)

// RosterService is the slice of the roster service this handler needs.
type RosterService interface {
	ForceReset(ctx context.Context, electionID, employeeID, reason string, actor audit.Actor) error
	ImportMembers(ctx context.Context, members []roster.Member, replace bool, actor audit.Actor) (*roster.ImportStats, error)
	ResetMembers(ctx context.Context, actor audit.Actor) (int, error)
	ListMembers(ctx context.Context) ([]roster.Member, error)
}

// TallyService is the slice of the tally engine this handler needs.
type TallyService interface {
	RegisterPaperTally(ctx context.Context, electionID, option string, n int, actor audit.Actor) error
}

// AuditService is the slice of the audit service this handler needs.
type AuditService interface {
	List(ctx context.Context, page, limit int) (*audit.Page, error)
}

// ReceptionStatsService lets admins reuse the desk statistics.
type ReceptionStatsService interface {
	ElectionStats(ctx context.Context, electionID string) (*reception.Stats, error)
}

type AdminHandler struct {
	elections ElectionService
	roster    RosterService
	tally     TallyService
	audit     AuditService
	stats     ReceptionStatsService
}

func (h *AdminHandler) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Type        string    `json:"type"`
		StartAt     time.Time `json:"start_datetime"`
		EndAt       time.Time `json:"end_datetime"`
		DetailURL   string    `json:"detail_url"`
		Candidates  []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := election.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        election.Type(req.Type),
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		DetailURL:   req.DetailURL,
	}
	for _, c := range req.Candidates {
		input.Options = append(input.Options, election.OptionInput{Name: c.Name, Description: c.Description})
	}

	principal, ip := actorFromRequest(r)
	created, err := h.elections.Create(r.Context(), input, audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) handleListElections(w http.ResponseWriter, r *http.Request) {
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

func (h *AdminHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	principal, ip := actorFromRequest(r)
	err := h.elections.Activate(r.Context(), chi.URLParam(r, "id"), audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "election activated"})
}

func (h *AdminHandler) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEnd time.Time `json:"new_end_datetime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewEnd.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "new_end_datetime is required"))
		return
	}

	principal, ip := actorFromRequest(r)
	err := h.elections.Extend(r.Context(), chi.URLParam(r, "id"), req.NewEnd, audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "election extended"})
}

func (h *AdminHandler) handleCount(w http.ResponseWriter, r *http.Request) {
	principal, ip := actorFromRequest(r)
	figures, err := h.elections.Count(r.Context(), chi.URLParam(r, "id"), audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, figures)
}

func (h *AdminHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	figures, err := h.elections.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, figures)
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "statistics are not available"))
		return
	}
	stats, err := h.stats.ElectionStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) handleResetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElectionID string `json:"election_id"`
		EmployeeID string `json:"employee_id"`
		Reason     string `json:"reason"`
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
	err := h.roster.ForceReset(r.Context(), req.ElectionID, req.EmployeeID, req.Reason, audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "voting status reset"})
}

func (h *AdminHandler) handlePaperTally(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElectionID string `json:"election_id"`
		Option     string `json:"selected_option"`
		Count      int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.ElectionID) == "" || strings.TrimSpace(req.Option) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "election_id and selected_option are required"))
		return
	}

	principal, ip := actorFromRequest(r)
	err := h.tally.RegisterPaperTally(r.Context(), req.ElectionID, req.Option, req.Count, audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "paper tally recorded"})
}

func (h *AdminHandler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.audit.List(r.Context(), page, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.roster.ListMembers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	type memberView struct {
		EmployeeID string    `json:"employee_id"`
		Name       string    `json:"name"`
		Role       string    `json:"role"`
		CreatedAt  time.Time `json:"created_at"`
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{
			EmployeeID: m.EmployeeID,
			Name:       m.Name,
			Role:       string(m.Role),
			CreatedAt:  m.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) handleImportMembers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Replace bool `json:"replace"`
		Members []struct {
			EmployeeID string `json:"employee_id"`
			PIN        string `json:"pin"`
			Name       string `json:"name"`
			Role       string `json:"role"`
		} `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	members := make([]roster.Member, 0, len(req.Members))
	for _, m := range req.Members {
		role := m.Role
		if role == "" {
			role = string(roster.RoleVoter)
		}
		members = append(members, roster.Member{
			EmployeeID: m.EmployeeID,
			PIN:        m.PIN,
			Name:       m.Name,
			Role:       roster.Role(role),
		})
	}

	principal, ip := actorFromRequest(r)
	stats, err := h.roster.ImportMembers(r.Context(), members, req.Replace, audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) handleResetMembers(w http.ResponseWriter, r *http.Request) {
	principal, ip := actorFromRequest(r)
	deleted, err := h.roster.ResetMembers(r.Context(), audit.Actor{ID: principal.EmployeeID, Role: principal.Role, IP: ip})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
