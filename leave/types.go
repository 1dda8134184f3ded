/*
Package leave implements the leave-request lifecycle.

PURPOSE:
  Ties the work-day calculator and the approval-rule resolver into the
  submission workflow: a request is validated, its chargeable work days
  computed against the requester's regional holiday calendar, and its
  approval chain materialized as persisted approval rows. Approve,
  reject, and cancel actions then advance the request through its
  levels.

KEY CONCEPTS IN THIS FILE (types.go):
  - Request: A leave request with its computed work days and status
  - Approval: One persisted approval level with its candidate approvers
  - Member/LeaveType: Directory and catalog records the service reads
  - Store/Directory/...Source: Collaborator interfaces the service
    depends on (implemented by store/sqlite and store/memory)

LIFECYCLE:
  submit -> pending -> approved   (every level approved, in order)
                    -> rejected   (any pending level rejects)
                    -> cancelled  (requester withdraws)

SEE ALSO:
  - service.go: Submit/Approve/Reject/Cancel/Summary
  - workday: Work-day calculation
  - approval: Chain resolution
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/workday"
)

// =============================================================================
// REQUEST - A leave request
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Request is a leave request. WorkDays is computed at submission and
// never recomputed; the holiday snapshot it was computed against may
// change later without affecting existing requests.
type Request struct {
	ID          string
	OrgID       approval.OrgID
	RequesterID approval.UserID
	LeaveTypeID approval.LeaveTypeID
	Range       workday.DateRange
	WorkDays    decimal.Decimal
	Status      Status
	Reason      string

	DecidedBy       approval.UserID // approver of the final level, or rejecter
	DecidedAt       *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// APPROVAL - One persisted approval level
// =============================================================================

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalVoid     ApprovalStatus = "void" // remaining levels after a rejection or cancellation
)

// Approval is one materialized level of a request's approval chain.
// Candidates is the ordered, deduplicated approver set resolved at
// submission time.
type Approval struct {
	ID         string
	RequestID  string
	Level      int
	Candidates []approval.UserID
	Status     ApprovalStatus
	ActedBy    approval.UserID
	ActedAt    *time.Time
	Comment    string
	CreatedAt  time.Time
}

// Eligible reports whether user may act on this level.
func (a Approval) Eligible(user approval.UserID) bool {
	for _, c := range a.Candidates {
		if c == user {
			return true
		}
	}
	return false
}

// =============================================================================
// DIRECTORY AND CATALOG RECORDS
// =============================================================================

// Member is the directory record of an organization member.
type Member struct {
	ID        approval.UserID
	OrgID     approval.OrgID
	Name      string
	Email     string
	Role      string // "employee", "hr", "admin"
	Region    string // Bundesland code for holiday lookup
	ManagerID approval.UserID
	TeamIDs   []approval.TeamID
}

// LeaveType is a configured category of leave with its annual
// entitlement in work days.
type LeaveType struct {
	ID                approval.LeaveTypeID
	OrgID             approval.OrgID
	Name              string
	AnnualEntitlement decimal.Decimal
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Store persists requests and their approval rows.
type Store interface {
	// CreateRequest persists the request together with its approval
	// rows atomically. Either all rows are written or none.
	CreateRequest(ctx context.Context, req Request, approvals []Approval) error

	GetRequest(ctx context.Context, id string) (*Request, error)
	UpdateRequest(ctx context.Context, req Request) error
	ListRequestsByRequester(ctx context.Context, requesterID approval.UserID) ([]Request, error)

	// ApprovalsByRequest returns the request's approval rows ordered by
	// level ascending.
	ApprovalsByRequest(ctx context.Context, requestID string) ([]Approval, error)
	UpdateApproval(ctx context.Context, a Approval) error

	// ListPendingForApprover returns pending requests where the user is
	// a candidate on the currently actionable (lowest pending) level.
	ListPendingForApprover(ctx context.Context, userID approval.UserID) ([]Request, error)

	// ApprovedWorkDaysInYear sums the work days of approved requests of
	// the given leave type starting in the year.
	ApprovedWorkDaysInYear(ctx context.Context, requesterID approval.UserID, leaveTypeID approval.LeaveTypeID, year int) (decimal.Decimal, error)
}

// Directory resolves members and implements the membership view the
// approval resolver needs.
type Directory interface {
	approval.MembershipView

	// Member returns the directory record, or nil if unknown.
	Member(ctx context.Context, userID approval.UserID) (*Member, error)
}

// RuleSource supplies the organization's approval rules, already parsed
// and validated (see factory package).
type RuleSource interface {
	RulesForOrg(ctx context.Context, orgID approval.OrgID) ([]approval.Rule, error)
}

// HolidaySource supplies the public-holiday snapshot for a region and span.
type HolidaySource interface {
	HolidaysInRange(ctx context.Context, region string, from, to workday.Date) (workday.HolidaySet, error)
}

// LeaveTypeSource supplies the organization's leave-type catalog.
type LeaveTypeSource interface {
	LeaveType(ctx context.Context, orgID approval.OrgID, id approval.LeaveTypeID) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context, orgID approval.OrgID) ([]LeaveType, error)
}
