/*
resolver.go - Approval-chain resolution

PURPOSE:
  Turns a rule set plus a candidate request into the ordered chain of
  approval levels the request must clear.

ALGORITHM:
  1. Keep active rules belonging to the candidate's organization
  2. Keep rules whose conditions match (leave type, work-day bounds)
  3. Group by level, ascending
  4. Per level, select the single rule with highest priority
     (ties broken by rule ID ascending, for determinism)
  5. Resolve the selected rule's approver candidates via the per-variant
     resolver for its approver type
  6. A level that resolves to zero approvers is a GAP and is skipped -
     no matching approver means no gate at that level
  7. An entirely empty chain is NoApproverFoundError

GAPS vs MISCONFIGURATION:
  A team with no lead or a requester with no manager is a gap: the
  level is skipped. A specific_user rule pointing at a user that does
  not exist is misconfiguration: resolution fails with
  UnresolvedApproverError so an administrator can fix the rule.

APPROVER DISPATCH:
  Each ApproverType variant has its own resolver implementing the
  approverResolver interface. The variant set is closed; an unknown
  type coming from storage is rejected at rule-load time by the
  factory, so the dispatch map is total for valid rules.

EXAMPLE:
  chain, err := approval.Resolve(ctx, rules, approval.Candidate{
      RequesterID: "u-42",
      OrgID:       "org-1",
      LeaveTypeID: "vacation",
      WorkDays:    decimal.NewFromInt(5),
      TeamIDs:     []approval.TeamID{"team-a"},
  }, membership)

SEE ALSO:
  - types.go: Rule, Candidate, Chain
  - membership.go: MembershipView
*/
package approval

import (
	"context"
	"fmt"
	"sort"
)

// Resolve computes the approval chain for the candidate. The rule slice
// and membership view are treated as consistent snapshots; Resolve
// holds no state between calls and is safe for concurrent use.
func Resolve(ctx context.Context, rules []Rule, cand Candidate, membership MembershipView) (Chain, error) {
	matched := matchRules(rules, cand)

	// Group matching rules by level.
	byLevel := make(map[int][]Rule)
	for _, r := range matched {
		byLevel[r.Level] = append(byLevel[r.Level], r)
	}

	levels := make([]int, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	var chain Chain
	for _, level := range levels {
		rule := selectRule(byLevel[level])

		approvers, err := resolveApprovers(ctx, rule, cand, membership)
		if err != nil {
			return nil, err
		}
		if len(approvers) == 0 {
			// Gap: proceed without this gate.
			continue
		}

		chain = append(chain, ChainLevel{Level: level, Approvers: approvers})
	}

	if len(chain) == 0 {
		return nil, &NoApproverFoundError{
			OrgID:       cand.OrgID,
			RequesterID: cand.RequesterID,
			LeaveTypeID: cand.LeaveTypeID,
		}
	}

	return chain, nil
}

// matchRules filters to active, same-org rules whose conditions match.
func matchRules(rules []Rule, cand Candidate) []Rule {
	var matched []Rule
	for _, r := range rules {
		if !r.Active || r.OrgID != cand.OrgID {
			continue
		}
		if !r.Conditions.Matches(cand) {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}

// selectRule picks the winning rule at one level: highest priority,
// ties broken by rule ID ascending.
func selectRule(rules []Rule) Rule {
	best := rules[0]
	for _, r := range rules[1:] {
		if r.Priority > best.Priority {
			best = r
			continue
		}
		if r.Priority == best.Priority && r.ID < best.ID {
			best = r
		}
	}
	return best
}

// =============================================================================
// APPROVER RESOLUTION - One resolver per variant
// =============================================================================

type approverResolver interface {
	resolve(ctx context.Context, rule Rule, cand Candidate, membership MembershipView) ([]UserID, error)
}

var approverResolvers = map[ApproverType]approverResolver{
	ApproverTeamLead:     teamLeadResolver{},
	ApproverManager:      managerResolver{},
	ApproverHR:           roleResolver{role: RoleHR},
	ApproverAnyAdmin:     roleResolver{role: RoleAdmin},
	ApproverSpecificUser: specificUserResolver{},
}

func resolveApprovers(ctx context.Context, rule Rule, cand Candidate, membership MembershipView) ([]UserID, error) {
	resolver, ok := approverResolvers[rule.ApproverType]
	if !ok {
		// Unreachable for rules loaded through the factory.
		return nil, fmt.Errorf("rule %s: unknown approver type %q", rule.ID, rule.ApproverType)
	}
	return resolver.resolve(ctx, rule, cand, membership)
}

// teamLeadResolver fans out across every team the requester belongs to,
// one candidate per distinct team lead.
type teamLeadResolver struct{}

func (teamLeadResolver) resolve(ctx context.Context, _ Rule, cand Candidate, membership MembershipView) ([]UserID, error) {
	teams := append([]TeamID(nil), cand.TeamIDs...)
	sort.Slice(teams, func(i, j int) bool { return teams[i] < teams[j] })

	var leads []UserID
	seen := make(map[UserID]struct{})
	for _, team := range teams {
		lead, err := membership.TeamLead(ctx, team)
		if err != nil {
			return nil, fmt.Errorf("failed to look up lead of team %s: %w", team, err)
		}
		if lead == "" {
			continue
		}
		if _, dup := seen[lead]; dup {
			continue
		}
		seen[lead] = struct{}{}
		leads = append(leads, lead)
	}
	return leads, nil
}

// managerResolver yields zero or one candidate: the requester's manager.
type managerResolver struct{}

func (managerResolver) resolve(ctx context.Context, _ Rule, cand Candidate, membership MembershipView) ([]UserID, error) {
	manager := cand.ManagerID
	if manager == "" {
		var err error
		manager, err = membership.ManagerOf(ctx, cand.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up manager of %s: %w", cand.RequesterID, err)
		}
	}
	if manager == "" {
		return nil, nil
	}
	return []UserID{manager}, nil
}

// roleResolver yields every user holding a role in the organization,
// sorted for determinism.
type roleResolver struct {
	role Role
}

func (r roleResolver) resolve(ctx context.Context, _ Rule, cand Candidate, membership MembershipView) ([]UserID, error) {
	users, err := membership.UsersWithRole(ctx, cand.OrgID, r.role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with role %s: %w", r.role, err)
	}
	sorted := append([]UserID(nil), users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return dedupe(sorted), nil
}

// specificUserResolver yields the single configured approver. An
// unresolvable reference is misconfiguration, not a gap.
type specificUserResolver struct{}

func (specificUserResolver) resolve(ctx context.Context, rule Rule, _ Candidate, membership MembershipView) ([]UserID, error) {
	resolved, err := membership.User(ctx, rule.ApproverUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", rule.ApproverUserID, err)
	}
	if resolved == "" {
		return nil, &UnresolvedApproverError{RuleID: rule.ID, ApproverUserID: rule.ApproverUserID}
	}
	return []UserID{resolved}, nil
}

func dedupe(users []UserID) []UserID {
	var out []UserID
	seen := make(map[UserID]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
