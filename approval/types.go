/*
Package approval resolves multi-level approval chains for leave requests.

PURPOSE:
  Given an organization's configured approval rules and a candidate
  leave request, this package determines which approval levels apply and
  who may act at each level. The result is an ordered chain the caller
  persists as approval-queue records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rule: One configured approval rule (conditions, approver, level)
  - Conditions: Optional leave-type and work-day bounds a rule matches on
  - Candidate: The resolved request the rules are matched against
  - Chain/ChainLevel: The ordered output consumed by the caller

DESIGN PRINCIPLES:
  1. Purity: Resolution is a synchronous computation over snapshots;
     membership lookups go through an explicit interface, never ambient state
  2. Closed variants: Approver types are a closed enum with one resolver
     per variant - no stringly-typed branching over raw configuration
  3. Determinism: Same rules + candidate + membership = same chain

SEE ALSO:
  - resolver.go: The chain-resolution algorithm
  - membership.go: The MembershipView collaborator interface
  - factory/rule.go: Parses and validates stored rule JSON into Rule
*/
package approval

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TeamID string
type OrgID string
type RuleID string
type LeaveTypeID string

// Role is an organization-level role used by role-based approver types.
type Role string

const (
	RoleHR    Role = "hr"
	RoleAdmin Role = "admin"
)

// =============================================================================
// APPROVER TYPE - Closed variant set
// =============================================================================

// ApproverType selects who may approve at a rule's level.
type ApproverType string

const (
	ApproverTeamLead     ApproverType = "team_lead"
	ApproverManager      ApproverType = "manager"
	ApproverHR           ApproverType = "hr"
	ApproverSpecificUser ApproverType = "specific_user"
	ApproverAnyAdmin     ApproverType = "any_admin"
)

// Valid reports whether t is one of the closed set of approver types.
func (t ApproverType) Valid() bool {
	switch t {
	case ApproverTeamLead, ApproverManager, ApproverHR, ApproverSpecificUser, ApproverAnyAdmin:
		return true
	}
	return false
}

// =============================================================================
// RULE - One configured approval rule
// =============================================================================

// Rule is a single approval rule belonging to exactly one organization.
//
// INVARIANTS (enforced at load time by the factory package):
//   - Level >= 1
//   - ApproverType is one of the closed variant set
//   - ApproverType == specific_user implies ApproverUserID != ""
type Rule struct {
	ID             RuleID
	OrgID          OrgID
	Name           string
	Conditions     Conditions
	ApproverType   ApproverType
	ApproverUserID UserID // only for specific_user
	Level          int
	Priority       int
	Active         bool
}

// Conditions are the optional matching criteria of a rule. An unset
// field matches everything. Parsed and validated once at rule load, not
// per resolution call.
type Conditions struct {
	LeaveTypeIDs map[LeaveTypeID]struct{} // nil or empty = any leave type
	MinDays      *decimal.Decimal         // inclusive lower bound on work days
	MaxDays      *decimal.Decimal         // inclusive upper bound on work days
}

// Matches reports whether the candidate satisfies all set conditions.
func (c Conditions) Matches(cand Candidate) bool {
	if len(c.LeaveTypeIDs) > 0 {
		if _, ok := c.LeaveTypeIDs[cand.LeaveTypeID]; !ok {
			return false
		}
	}
	if c.MinDays != nil && cand.WorkDays.LessThan(*c.MinDays) {
		return false
	}
	if c.MaxDays != nil && cand.WorkDays.GreaterThan(*c.MaxDays) {
		return false
	}
	return true
}

// =============================================================================
// CANDIDATE - Resolved request input for rule matching
// =============================================================================

// Candidate is the resolved view of a leave request the rules are
// matched against. Owned transiently by the resolution call.
type Candidate struct {
	RequesterID UserID
	OrgID       OrgID
	LeaveTypeID LeaveTypeID
	WorkDays    decimal.Decimal
	TeamIDs     []TeamID
	ManagerID   UserID // empty = no manager
}

// =============================================================================
// CHAIN - Resolver output
// =============================================================================

// ChainLevel is one stage of the approval chain. Approvers is ordered,
// deduplicated, and never empty (empty levels are skipped).
type ChainLevel struct {
	Level     int
	Approvers []UserID
}

// Chain is the ordered sequence of approval levels, strictly ascending
// by level number.
type Chain []ChainLevel

// Levels returns the level numbers in chain order.
func (c Chain) Levels() []int {
	levels := make([]int, len(c))
	for i, l := range c {
		levels[i] = l.Level
	}
	return levels
}

// ContainsApprover reports whether user is a candidate at any level.
func (c Chain) ContainsApprover(user UserID) bool {
	for _, l := range c {
		for _, a := range l.Approvers {
			if a == user {
				return true
			}
		}
	}
	return false
}
