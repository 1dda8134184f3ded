/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Requests:
    POST   /api/requests                  Submit a leave request
    GET    /api/requests/{id}             Request with its approval chain
    POST   /api/requests/{id}/approve     Approve the current level
    POST   /api/requests/{id}/reject      Reject the request
    POST   /api/requests/{id}/cancel      Withdraw (requester only)
    GET    /api/requests/pending          Approver's queue (?approver=)

  Users:
    GET    /api/users                     List org users (?org=)
    POST   /api/users                     Create/update a user
    GET    /api/users/{id}                Directory record
    GET    /api/users/{id}/requests       Request history
    GET    /api/users/{id}/summary        Entitlement summary (?year=)

  Configuration:
    /api/organizations, /api/teams, /api/leave-types, /api/holidays,
    /api/rules - admin CRUD; POST /api/holidays/german loads the
    Bundesland presets for a year

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, out-of-order actions
  - 404: Resource not found
  - 422: Organization misconfiguration (no resolvable approver)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. The actor is taken from
  the request body; an auth middleware would supply it instead.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/factory"
	"github.com/zeitpal/leave-engine/holiday"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/store/sqlite"
	"github.com/zeitpal/leave-engine/workday"
)

const timeLayout = time.RFC3339

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Service     *leave.Service
	RuleFactory *factory.RuleFactory
}

// NewHandler creates a handler over the store and the lifecycle service.
func NewHandler(store *sqlite.Store, service *leave.Service) *Handler {
	return &Handler{
		Store:       store,
		Service:     service,
		RuleFactory: factory.NewRuleFactory(),
	}
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// SubmitRequest handles POST /api/requests.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var dto SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	dateRange, err := parseRange(dto)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	req, approvals, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		RequesterID: approval.UserID(dto.RequesterID),
		LeaveTypeID: approval.LeaveTypeID(dto.LeaveTypeID),
		Range:       dateRange,
		Reason:      dto.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(*req, approvals))
}

// GetRequest handles GET /api/requests/{id}.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req == nil {
		writeErrorStatus(w, http.StatusNotFound, fmt.Errorf("request %s not found", id))
		return
	}

	approvals, err := h.Store.ApprovalsByRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req, approvals))
}

// ApproveRequest handles POST /api/requests/{id}/approve.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id string, dto DecisionDTO) (*leave.Request, error) {
		return h.Service.Approve(r.Context(), id, approval.UserID(dto.ActorID), dto.Comment)
	})
}

// RejectRequest handles POST /api/requests/{id}/reject.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id string, dto DecisionDTO) (*leave.Request, error) {
		return h.Service.Reject(r.Context(), id, approval.UserID(dto.ActorID), dto.Reason)
	})
}

// CancelRequest handles POST /api/requests/{id}/cancel.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(id string, dto DecisionDTO) (*leave.Request, error) {
		return h.Service.Cancel(r.Context(), id, approval.UserID(dto.ActorID))
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, act func(string, DecisionDTO) (*leave.Request, error)) {
	id := chi.URLParam(r, "id")

	var dto DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.ActorID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("actor_id is required"))
		return
	}

	req, err := act(id, dto)
	if err != nil {
		writeError(w, err)
		return
	}

	approvals, err := h.Store.ApprovalsByRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req, approvals))
}

// ListPendingRequests handles GET /api/requests/pending?approver=.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	approver := r.URL.Query().Get("approver")
	if approver == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("approver query parameter is required"))
		return
	}

	requests, err := h.Store.ListPendingForApprover(r.Context(), approval.UserID(approver))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req, nil))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.OrgID == "" || dto.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org_id and name are required"))
		return
	}
	if dto.Region != "" && !holiday.ValidRegion(dto.Region) {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("unknown region %q", dto.Region))
		return
	}
	if dto.ID == "" {
		dto.ID = uuid.NewString()
	}
	if dto.Role == "" {
		dto.Role = "employee"
	}

	if err := h.Store.SaveUser(r.Context(), fromUserDTO(dto)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.Store.Member(r.Context(), approval.UserID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	if m == nil {
		writeErrorStatus(w, http.StatusNotFound, fmt.Errorf("user %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*m))
}

// ListUsers handles GET /api/users?org=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org query parameter is required"))
		return
	}

	members, err := h.Store.ListUsers(r.Context(), approval.OrgID(orgID))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]UserDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, toUserDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListUserRequests handles GET /api/users/{id}/requests.
func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	requests, err := h.Store.ListRequestsByRequester(r.Context(), approval.UserID(id))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req, nil))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSummary handles GET /api/users/{id}/summary?year=.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
			return
		}
		year = parsed
	}

	summaries, err := h.Service.Summary(r.Context(), approval.UserID(id), year)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]SummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, SummaryDTO{
			LeaveTypeID: string(s.LeaveType.ID),
			Name:        s.LeaveType.Name,
			Entitlement: s.LeaveType.AnnualEntitlement.String(),
			Used:        s.Used.String(),
			Remaining:   s.Remaining.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// CreateOrganization handles POST /api/organizations.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var dto OrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.ID == "" {
		dto.ID = uuid.NewString()
	}
	if dto.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	err := h.Store.SaveOrganization(r.Context(), sqlite.Organization{
		ID: approval.OrgID(dto.ID), Name: dto.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// CreateTeam handles POST /api/teams.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var dto TeamDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.OrgID == "" || dto.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org_id and name are required"))
		return
	}
	if dto.ID == "" {
		dto.ID = uuid.NewString()
	}

	err := h.Store.SaveTeam(r.Context(), sqlite.Team{
		ID:     approval.TeamID(dto.ID),
		OrgID:  approval.OrgID(dto.OrgID),
		Name:   dto.Name,
		LeadID: approval.UserID(dto.LeadID),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListTeams handles GET /api/teams?org=.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org query parameter is required"))
		return
	}

	teams, err := h.Store.ListTeams(r.Context(), approval.OrgID(orgID))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]TeamDTO, 0, len(teams))
	for _, t := range teams {
		dtos = append(dtos, TeamDTO{
			ID: string(t.ID), OrgID: string(t.OrgID), Name: t.Name, LeadID: string(t.LeadID),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLeaveType handles POST /api/leave-types.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var dto LeaveTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.ID == "" || dto.OrgID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("id and org_id are required"))
		return
	}

	entitlement, err := decimal.NewFromString(dto.AnnualEntitlement)
	if err != nil || entitlement.IsNegative() {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid annual_entitlement %q", dto.AnnualEntitlement))
		return
	}

	err = h.Store.SaveLeaveType(r.Context(), leave.LeaveType{
		ID:                approval.LeaveTypeID(dto.ID),
		OrgID:             approval.OrgID(dto.OrgID),
		Name:              dto.Name,
		AnnualEntitlement: entitlement,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListLeaveTypes handles GET /api/leave-types?org=.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org query parameter is required"))
		return
	}

	types, err := h.Store.ListLeaveTypes(r.Context(), approval.OrgID(orgID))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]LeaveTypeDTO, 0, len(types))
	for _, lt := range types {
		dtos = append(dtos, LeaveTypeDTO{
			ID:                string(lt.ID),
			OrgID:             string(lt.OrgID),
			Name:              lt.Name,
			AnnualEntitlement: lt.AnnualEntitlement.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// CreateHoliday handles POST /api/holidays.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if dto.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	if dto.Region != "" && !holiday.ValidRegion(dto.Region) {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("unknown region %q", dto.Region))
		return
	}

	date, err := workday.ParseDate(dto.Date)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if dto.ID == "" {
		dto.ID = uuid.NewString()
	}

	err = h.Store.SaveHoliday(r.Context(), sqlite.HolidayRecord{
		ID: dto.ID, Region: dto.Region, Date: date, Name: dto.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListHolidays handles GET /api/holidays?region=&year=.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
			return
		}
		year = parsed
	}

	holidays, err := h.Store.ListHolidays(r.Context(), region, year)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, rec := range holidays {
		dtos = append(dtos, toHolidayDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteHoliday handles DELETE /api/holidays/{id}.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadGermanHolidays handles POST /api/holidays/german. It computes the
// statutory holidays of a Bundesland for a year and stores them.
func (h *Handler) LoadGermanHolidays(w http.ResponseWriter, r *http.Request) {
	var dto LoadPresetsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if !holiday.ValidRegion(dto.Region) {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("unknown region %q", dto.Region))
		return
	}
	if dto.Year < 1900 || dto.Year > 2200 {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("year %d out of range", dto.Year))
		return
	}

	var dtos []HolidayDTO
	for _, preset := range holiday.ForRegion(dto.Year, dto.Region) {
		rec := sqlite.HolidayRecord{
			ID:     uuid.NewString(),
			Region: preset.Region,
			Date:   preset.Date,
			Name:   preset.Name,
		}
		if err := h.Store.SaveHoliday(r.Context(), rec); err != nil {
			writeError(w, err)
			return
		}
		dtos = append(dtos, toHolidayDTO(rec))
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// CreateRule handles POST /api/rules. The body is the rule JSON schema;
// the factory validates it before anything is stored.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if rj.ID == "" {
		rj.ID = uuid.NewString()
	}

	rule, err := h.RuleFactory.Build(rj)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rj)
}

// ListRules handles GET /api/rules?org=.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("org query parameter is required"))
		return
	}

	rules, err := h.Store.RulesForOrg(r.Context(), approval.OrgID(orgID))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]factory.RuleJSON, 0, len(rules))
	for _, rule := range rules {
		rj := factory.RuleJSON{
			ID:             string(rule.ID),
			OrgID:          string(rule.OrgID),
			Name:           rule.Name,
			Conditions:     factory.ConditionsToJSON(rule.Conditions),
			ApproverType:   string(rule.ApproverType),
			ApproverUserID: string(rule.ApproverUserID),
			Level:          rule.Level,
			Priority:       rule.Priority,
			Active:         rule.Active,
		}
		dtos = append(dtos, rj)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteRule handles DELETE /api/rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRule(r.Context(), approval.RuleID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsNotFound(err):
		writeErrorStatus(w, http.StatusNotFound, err)
	case leave.IsClientError(err):
		writeErrorStatus(w, http.StatusBadRequest, err)
	case leave.IsMisconfiguration(err):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
	default:
		writeErrorStatus(w, http.StatusInternalServerError, err)
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorDTO{Error: err.Error()})
}
