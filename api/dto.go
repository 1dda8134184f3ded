/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers. Rule payloads reuse factory.RuleJSON so the factory remains
  the single validation point for rule configuration.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type
*/
package api

import (
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/store/sqlite"
	"github.com/zeitpal/leave-engine/workday"
)

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitRequestDTO is the request body for submitting a leave request.
// Dates use the YYYY-MM-DD form; half-day flags are "morning",
// "afternoon", or absent.
type SubmitRequestDTO struct {
	RequesterID string `json:"requester_id"`
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartHalf   string `json:"start_half,omitempty"`
	EndHalf     string `json:"end_half,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// DecisionDTO is the request body for approve/reject/cancel actions.
type DecisionDTO struct {
	ActorID string `json:"actor_id"`
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID              string        `json:"id"`
	OrgID           string        `json:"org_id"`
	RequesterID     string        `json:"requester_id"`
	LeaveTypeID     string        `json:"leave_type_id"`
	StartDate       string        `json:"start_date"`
	EndDate         string        `json:"end_date"`
	StartHalf       string        `json:"start_half,omitempty"`
	EndHalf         string        `json:"end_half,omitempty"`
	WorkDays        string        `json:"work_days"`
	Status          string        `json:"status"`
	Reason          string        `json:"reason,omitempty"`
	DecidedBy       string        `json:"decided_by,omitempty"`
	DecidedAt       string        `json:"decided_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	Approvals       []ApprovalDTO `json:"approvals,omitempty"`
	CreatedAt       string        `json:"created_at"`
}

// ApprovalDTO represents one approval level of a request.
type ApprovalDTO struct {
	ID         string   `json:"id"`
	Level      int      `json:"level"`
	Candidates []string `json:"candidates"`
	Status     string   `json:"status"`
	ActedBy    string   `json:"acted_by,omitempty"`
	ActedAt    string   `json:"acted_at,omitempty"`
	Comment    string   `json:"comment,omitempty"`
}

// SummaryDTO is the per-type entitlement view for one year.
type SummaryDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	Name        string `json:"name"`
	Entitlement string `json:"entitlement"`
	Used        string `json:"used"`
	Remaining   string `json:"remaining"`
}

// =============================================================================
// DIRECTORY AND CONFIGURATION
// =============================================================================

// UserDTO represents a directory record.
type UserDTO struct {
	ID        string   `json:"id"`
	OrgID     string   `json:"org_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Role      string   `json:"role"`
	Region    string   `json:"region,omitempty"`
	ManagerID string   `json:"manager_id,omitempty"`
	TeamIDs   []string `json:"team_ids,omitempty"`
}

// TeamDTO represents a team.
type TeamDTO struct {
	ID     string `json:"id"`
	OrgID  string `json:"org_id"`
	Name   string `json:"name"`
	LeadID string `json:"lead_id,omitempty"`
}

// OrganizationDTO represents a tenant.
type OrganizationDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaveTypeDTO represents a leave type with its annual entitlement.
type LeaveTypeDTO struct {
	ID                string `json:"id"`
	OrgID             string `json:"org_id"`
	Name              string `json:"name"`
	AnnualEntitlement string `json:"annual_entitlement"`
}

// HolidayDTO represents a public holiday ("" region = nationwide).
type HolidayDTO struct {
	ID     string `json:"id,omitempty"`
	Region string `json:"region,omitempty"`
	Date   string `json:"date"`
	Name   string `json:"name"`
}

// LoadPresetsDTO requests loading the German holiday presets of a
// Bundesland for a year.
type LoadPresetsDTO struct {
	Region string `json:"region"`
	Year   int    `json:"year"`
}

// ErrorDTO is the uniform error envelope.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRequestDTO(req leave.Request, approvals []leave.Approval) RequestDTO {
	dto := RequestDTO{
		ID:              req.ID,
		OrgID:           string(req.OrgID),
		RequesterID:     string(req.RequesterID),
		LeaveTypeID:     string(req.LeaveTypeID),
		StartDate:       req.Range.Start.String(),
		EndDate:         req.Range.End.String(),
		StartHalf:       string(req.Range.StartHalf),
		EndHalf:         string(req.Range.EndHalf),
		WorkDays:        req.WorkDays.String(),
		Status:          string(req.Status),
		Reason:          req.Reason,
		DecidedBy:       string(req.DecidedBy),
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt.Format(timeLayout),
	}
	if req.DecidedAt != nil {
		dto.DecidedAt = req.DecidedAt.Format(timeLayout)
	}
	for _, a := range approvals {
		dto.Approvals = append(dto.Approvals, toApprovalDTO(a))
	}
	return dto
}

func toApprovalDTO(a leave.Approval) ApprovalDTO {
	dto := ApprovalDTO{
		ID:      a.ID,
		Level:   a.Level,
		Status:  string(a.Status),
		ActedBy: string(a.ActedBy),
		Comment: a.Comment,
	}
	for _, c := range a.Candidates {
		dto.Candidates = append(dto.Candidates, string(c))
	}
	if a.ActedAt != nil {
		dto.ActedAt = a.ActedAt.Format(timeLayout)
	}
	return dto
}

func toUserDTO(m leave.Member) UserDTO {
	dto := UserDTO{
		ID:        string(m.ID),
		OrgID:     string(m.OrgID),
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		Region:    m.Region,
		ManagerID: string(m.ManagerID),
	}
	for _, t := range m.TeamIDs {
		dto.TeamIDs = append(dto.TeamIDs, string(t))
	}
	return dto
}

func fromUserDTO(dto UserDTO) leave.Member {
	m := leave.Member{
		ID:        approval.UserID(dto.ID),
		OrgID:     approval.OrgID(dto.OrgID),
		Name:      dto.Name,
		Email:     dto.Email,
		Role:      dto.Role,
		Region:    dto.Region,
		ManagerID: approval.UserID(dto.ManagerID),
	}
	for _, t := range dto.TeamIDs {
		m.TeamIDs = append(m.TeamIDs, approval.TeamID(t))
	}
	return m
}

func toHolidayDTO(h sqlite.HolidayRecord) HolidayDTO {
	return HolidayDTO{
		ID:     h.ID,
		Region: h.Region,
		Date:   h.Date.String(),
		Name:   h.Name,
	}
}

func parseRange(dto SubmitRequestDTO) (workday.DateRange, error) {
	start, err := workday.ParseDate(dto.StartDate)
	if err != nil {
		return workday.DateRange{}, err
	}
	end, err := workday.ParseDate(dto.EndDate)
	if err != nil {
		return workday.DateRange{}, err
	}
	startHalf, err := workday.ParseHalfDay(dto.StartHalf)
	if err != nil {
		return workday.DateRange{}, err
	}
	endHalf, err := workday.ParseHalfDay(dto.EndHalf)
	if err != nil {
		return workday.DateRange{}, err
	}
	return workday.DateRange{Start: start, End: end, StartHalf: startHalf, EndHalf: endHalf}, nil
}
