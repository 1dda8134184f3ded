/*
errors.go - Error types for approval-chain resolution

PURPOSE:
  All resolution errors in one place. These are terminal, synchronous,
  non-retryable computation errors: they indicate bad input or
  misconfiguration, never transient failure. The resolver surfaces them
  directly to the caller, which owns all user-visible behavior - the
  core never logs, swallows, or partially recovers.
*/
package approval

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoApproverFound is returned when no level of the chain
	// resolves to any approver. The caller decides the policy
	// (auto-approve vs. block).
	ErrNoApproverFound = errors.New("no approver found")

	// ErrUnresolvedApprover is returned when a specific_user rule
	// references a user that does not resolve. This is rule
	// misconfiguration, not a gap.
	ErrUnresolvedApprover = errors.New("approver reference does not resolve")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NoApproverFoundError reports an empty approval chain.
type NoApproverFoundError struct {
	OrgID       OrgID
	RequesterID UserID
	LeaveTypeID LeaveTypeID
}

func (e *NoApproverFoundError) Error() string {
	return fmt.Sprintf("no approver found for requester %s (org %s, leave type %s)",
		e.RequesterID, e.OrgID, e.LeaveTypeID)
}

func (e *NoApproverFoundError) Unwrap() error { return ErrNoApproverFound }

// UnresolvedApproverError reports a specific_user rule whose configured
// approver does not exist.
type UnresolvedApproverError struct {
	RuleID         RuleID
	ApproverUserID UserID
}

func (e *UnresolvedApproverError) Error() string {
	return fmt.Sprintf("rule %s: configured approver %s does not resolve",
		e.RuleID, e.ApproverUserID)
}

func (e *UnresolvedApproverError) Unwrap() error { return ErrUnresolvedApprover }
