/*
errors.go - Centralized error types for the leave lifecycle

PURPOSE:
  All lifecycle errors in one place. Handler code maps these onto HTTP
  status codes with the helper predicates below.
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/workday"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrLeaveTypeNotFound is returned when a referenced leave type doesn't exist.
	ErrLeaveTypeNotFound = errors.New("leave type not found")

	// ErrNotPending is returned when acting on a request that already
	// reached a terminal status.
	ErrNotPending = errors.New("request is not pending")

	// ErrNotEligible is returned when the actor is not a candidate on
	// the level being acted on, or is acting out of level order.
	ErrNotEligible = errors.New("actor is not eligible to act on this request")

	// ErrNoChargeableDays is returned when a request consumes zero work
	// days (entirely weekends/holidays).
	ErrNoChargeableDays = errors.New("request contains no chargeable work days")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotEligibleError reports who tried to act and at which level.
type NotEligibleError struct {
	RequestID string
	ActorID   approval.UserID
	Level     int
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("user %s is not an eligible approver at level %d of request %s",
		e.ActorID, e.Level, e.RequestID)
}

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports errors caused by invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, workday.ErrInvalidRange) ||
		errors.Is(err, ErrNoChargeableDays) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotEligible)
}

// IsNotFound reports errors caused by missing resources.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound)
}

// IsMisconfiguration reports errors caused by bad organization
// configuration rather than by the request itself.
func IsMisconfiguration(err error) bool {
	return errors.Is(err, approval.ErrNoApproverFound) ||
		errors.Is(err, approval.ErrUnresolvedApprover)
}
