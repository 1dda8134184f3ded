/*
service.go - Leave-request lifecycle orchestration

PURPOSE:
  Orchestrates the submission workflow the rest of the system hangs off:

  1. Submission: validate range, fetch the regional holiday snapshot,
     compute work days, resolve the approval chain, persist request +
     approval rows atomically
  2. Approval: candidates clear levels strictly in ascending order;
     clearing the last level approves the request
  3. Rejection: any pending-level candidate rejects; remaining levels
     are voided
  4. Cancellation: the requester withdraws a pending request

SEQUENCING:
  The service owns the "fetch rules -> fetch membership -> compute"
  sequencing and the atomic persistence of the request with its derived
  approval rows. The calculator and resolver themselves stay pure.

EXAMPLE:
  svc := leave.NewService(store, directory, rules, holidays, leaveTypes)

  req, chain, err := svc.Submit(ctx, leave.SubmitInput{
      RequesterID: "emp-1",
      LeaveTypeID: "vacation",
      Range:       workday.NewDateRange(start, end),
      Reason:      "summer vacation",
  })

  approved, err := svc.Approve(ctx, req.ID, "mgr-1", "enjoy")

SEE ALSO:
  - types.go: Entities and collaborator interfaces
  - approval/resolver.go: Chain resolution invoked here
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/workday"
)

// Service orchestrates the leave-request lifecycle.
type Service struct {
	Store      Store
	Directory  Directory
	Rules      RuleSource
	Holidays   HolidaySource
	LeaveTypes LeaveTypeSource

	// now is swappable for tests.
	now func() time.Time
}

func NewService(store Store, directory Directory, rules RuleSource, holidays HolidaySource, leaveTypes LeaveTypeSource) *Service {
	return &Service{
		Store:      store,
		Directory:  directory,
		Rules:      rules,
		Holidays:   holidays,
		LeaveTypes: leaveTypes,
		now:        time.Now,
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitInput is the resolved submission payload.
type SubmitInput struct {
	RequesterID approval.UserID
	LeaveTypeID approval.LeaveTypeID
	Range       workday.DateRange
	Reason      string
}

// Submit validates and persists a new leave request together with its
// materialized approval chain.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, []Approval, error) {
	member, err := s.Directory.Member(ctx, in.RequesterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load member %s: %w", in.RequesterID, err)
	}
	if member == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMemberNotFound, in.RequesterID)
	}

	leaveType, err := s.LeaveTypes.LeaveType(ctx, member.OrgID, in.LeaveTypeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load leave type %s: %w", in.LeaveTypeID, err)
	}
	if leaveType == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrLeaveTypeNotFound, in.LeaveTypeID)
	}

	if err := in.Range.Validate(); err != nil {
		return nil, nil, err
	}

	holidays, err := s.Holidays.HolidaysInRange(ctx, member.Region, in.Range.Start, in.Range.End)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load holidays for region %s: %w", member.Region, err)
	}

	workDays, err := workday.Compute(in.Range, holidays)
	if err != nil {
		return nil, nil, err
	}
	if workDays.IsZero() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoChargeableDays, in.Range)
	}

	rules, err := s.Rules.RulesForOrg(ctx, member.OrgID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load approval rules: %w", err)
	}

	chain, err := approval.Resolve(ctx, rules, approval.Candidate{
		RequesterID: member.ID,
		OrgID:       member.OrgID,
		LeaveTypeID: in.LeaveTypeID,
		WorkDays:    workDays,
		TeamIDs:     member.TeamIDs,
		ManagerID:   member.ManagerID,
	}, s.Directory)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	req := Request{
		ID:          uuid.NewString(),
		OrgID:       member.OrgID,
		RequesterID: member.ID,
		LeaveTypeID: in.LeaveTypeID,
		Range:       in.Range,
		WorkDays:    workDays,
		Status:      StatusPending,
		Reason:      in.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	approvals := make([]Approval, len(chain))
	for i, level := range chain {
		approvals[i] = Approval{
			ID:         uuid.NewString(),
			RequestID:  req.ID,
			Level:      level.Level,
			Candidates: level.Approvers,
			Status:     ApprovalPending,
			CreatedAt:  now,
		}
	}

	if err := s.Store.CreateRequest(ctx, req, approvals); err != nil {
		return nil, nil, fmt.Errorf("failed to persist request: %w", err)
	}

	return &req, approvals, nil
}

// =============================================================================
// APPROVAL ACTIONS
// =============================================================================

// Approve records an approval by actor at the lowest pending level.
// Approving the last pending level approves the request.
func (s *Service) Approve(ctx context.Context, requestID string, actorID approval.UserID, comment string) (*Request, error) {
	req, approvals, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	current, remaining := nextPending(approvals)
	if current == nil {
		// A pending request always has a pending level; repair path.
		return nil, fmt.Errorf("request %s is pending but has no pending approval level", requestID)
	}
	if !current.Eligible(actorID) {
		return nil, &NotEligibleError{RequestID: requestID, ActorID: actorID, Level: current.Level}
	}

	now := s.now().UTC()
	current.Status = ApprovalApproved
	current.ActedBy = actorID
	current.ActedAt = &now
	current.Comment = comment
	if err := s.Store.UpdateApproval(ctx, *current); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}

	if remaining == 0 {
		req.Status = StatusApproved
		req.DecidedBy = actorID
		req.DecidedAt = &now
		req.UpdatedAt = now
		if err := s.Store.UpdateRequest(ctx, *req); err != nil {
			return nil, fmt.Errorf("failed to update request: %w", err)
		}
	}

	return req, nil
}

// Reject records a rejection by a candidate of any still-pending level.
// The request is rejected immediately; all other pending levels are voided.
func (s *Service) Reject(ctx context.Context, requestID string, actorID approval.UserID, reason string) (*Request, error) {
	req, approvals, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var acted *Approval
	for i := range approvals {
		if approvals[i].Status == ApprovalPending && approvals[i].Eligible(actorID) {
			acted = &approvals[i]
			break
		}
	}
	if acted == nil {
		level := 0
		if cur, _ := nextPending(approvals); cur != nil {
			level = cur.Level
		}
		return nil, &NotEligibleError{RequestID: requestID, ActorID: actorID, Level: level}
	}

	now := s.now().UTC()
	acted.Status = ApprovalRejected
	acted.ActedBy = actorID
	acted.ActedAt = &now
	acted.Comment = reason
	if err := s.Store.UpdateApproval(ctx, *acted); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}

	if err := s.voidPending(ctx, approvals); err != nil {
		return nil, err
	}

	req.Status = StatusRejected
	req.DecidedBy = actorID
	req.DecidedAt = &now
	req.RejectionReason = reason
	req.UpdatedAt = now
	if err := s.Store.UpdateRequest(ctx, *req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	return req, nil
}

// Cancel withdraws a pending request. Only the requester may cancel.
func (s *Service) Cancel(ctx context.Context, requestID string, actorID approval.UserID) (*Request, error) {
	req, approvals, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actorID {
		return nil, &NotEligibleError{RequestID: requestID, ActorID: actorID}
	}

	if err := s.voidPending(ctx, approvals); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req.Status = StatusCancelled
	req.UpdatedAt = now
	if err := s.Store.UpdateRequest(ctx, *req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	return req, nil
}

func (s *Service) loadPending(ctx context.Context, requestID string) (*Request, []Approval, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if req.Status != StatusPending {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrNotPending, requestID, req.Status)
	}

	approvals, err := s.Store.ApprovalsByRequest(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load approvals for %s: %w", requestID, err)
	}
	return req, approvals, nil
}

// nextPending returns the lowest pending level and how many more
// pending levels follow it.
func nextPending(approvals []Approval) (*Approval, int) {
	var current *Approval
	remaining := 0
	for i := range approvals {
		if approvals[i].Status != ApprovalPending {
			continue
		}
		if current == nil {
			current = &approvals[i]
			continue
		}
		remaining++
	}
	return current, remaining
}

func (s *Service) voidPending(ctx context.Context, approvals []Approval) error {
	for i := range approvals {
		if approvals[i].Status != ApprovalPending {
			continue
		}
		approvals[i].Status = ApprovalVoid
		if err := s.Store.UpdateApproval(ctx, approvals[i]); err != nil {
			return fmt.Errorf("failed to void approval level %d: %w", approvals[i].Level, err)
		}
	}
	return nil
}

// =============================================================================
// SUMMARY - Per-year entitlement view
// =============================================================================

// TypeSummary is the used/remaining view for one leave type.
type TypeSummary struct {
	LeaveType LeaveType
	Used      decimal.Decimal
	Remaining decimal.Decimal
}

// Summary returns the member's entitlement usage for the year across
// all leave types of the organization. Only approved requests count;
// pending requests do not reserve balance here.
func (s *Service) Summary(ctx context.Context, userID approval.UserID, year int) ([]TypeSummary, error) {
	member, err := s.Directory.Member(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member %s: %w", userID, err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, userID)
	}

	leaveTypes, err := s.LeaveTypes.ListLeaveTypes(ctx, member.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}

	summaries := make([]TypeSummary, 0, len(leaveTypes))
	for _, lt := range leaveTypes {
		used, err := s.Store.ApprovedWorkDaysInYear(ctx, userID, lt.ID, year)
		if err != nil {
			return nil, fmt.Errorf("failed to sum work days for %s: %w", lt.ID, err)
		}
		summaries = append(summaries, TypeSummary{
			LeaveType: lt,
			Used:      used,
			Remaining: lt.AnnualEntitlement.Sub(used),
		})
	}
	return summaries, nil
}
