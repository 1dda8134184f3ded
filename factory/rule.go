/*
Package factory provides JSON to Go approval-rule conversion.

PURPOSE:
  Converts JSON rule definitions into approval.Rule values. Rules are
  stored as JSON in the organization's configuration table so HR admins
  can change approval workflows without code changes; this factory is
  the single place that parsing and validation happen. Rules reaching
  the resolver are always well-formed.

JSON SCHEMA:
  {
    "id": "rule-mgr-default",
    "org_id": "org-1",
    "name": "Manager approval",
    "conditions": {
      "leave_type_ids": ["vacation", "unpaid"],
      "min_days": 0.5,
      "max_days": 10
    },
    "approver_type": "manager",
    "level": 1,
    "priority": 0,
    "active": true
  }

VALIDATION (at load time, never per resolution call):
  - approver_type must be one of the closed variant set
  - specific_user requires approver_user_id
  - level must be >= 1
  - min_days/max_days must be non-negative, min <= max when both set

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(jsonString)

SEE ALSO:
  - approval/types.go: Rule type definition
  - store/sqlite: Stores rules with their conditions JSON
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of an approval rule.
type RuleJSON struct {
	ID             string          `json:"id"`
	OrgID          string          `json:"org_id"`
	Name           string          `json:"name"`
	Conditions     *ConditionsJSON `json:"conditions,omitempty"`
	ApproverType   string          `json:"approver_type"`
	ApproverUserID string          `json:"approver_user_id,omitempty"`
	Level          int             `json:"level"`
	Priority       int             `json:"priority"`
	Active         bool            `json:"active"`
}

// ConditionsJSON represents the optional matching conditions.
// Absent fields match everything.
type ConditionsJSON struct {
	LeaveTypeIDs []string `json:"leave_type_ids,omitempty"`
	MinDays      *float64 `json:"min_days,omitempty"`
	MaxDays      *float64 `json:"max_days,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rules to approval.Rule values.
type RuleFactory struct{}

func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses and validates a complete rule definition.
func (f *RuleFactory) ParseRule(jsonStr string) (approval.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return approval.Rule{}, fmt.Errorf("invalid rule JSON: %w", err)
	}
	return f.Build(rj)
}

// Build validates a decoded RuleJSON and produces the typed rule.
func (f *RuleFactory) Build(rj RuleJSON) (approval.Rule, error) {
	if rj.ID == "" {
		return approval.Rule{}, fmt.Errorf("rule is missing id")
	}
	if rj.OrgID == "" {
		return approval.Rule{}, fmt.Errorf("rule %s is missing org_id", rj.ID)
	}

	approverType := approval.ApproverType(rj.ApproverType)
	if !approverType.Valid() {
		return approval.Rule{}, fmt.Errorf("rule %s: unknown approver_type %q", rj.ID, rj.ApproverType)
	}
	if approverType == approval.ApproverSpecificUser && rj.ApproverUserID == "" {
		return approval.Rule{}, fmt.Errorf("rule %s: approver_type specific_user requires approver_user_id", rj.ID)
	}
	if approverType != approval.ApproverSpecificUser && rj.ApproverUserID != "" {
		return approval.Rule{}, fmt.Errorf("rule %s: approver_user_id only valid with approver_type specific_user", rj.ID)
	}

	if rj.Level < 1 {
		return approval.Rule{}, fmt.Errorf("rule %s: level must be >= 1, got %d", rj.ID, rj.Level)
	}

	conditions, err := f.buildConditions(rj.ID, rj.Conditions)
	if err != nil {
		return approval.Rule{}, err
	}

	return approval.Rule{
		ID:             approval.RuleID(rj.ID),
		OrgID:          approval.OrgID(rj.OrgID),
		Name:           rj.Name,
		Conditions:     conditions,
		ApproverType:   approverType,
		ApproverUserID: approval.UserID(rj.ApproverUserID),
		Level:          rj.Level,
		Priority:       rj.Priority,
		Active:         rj.Active,
	}, nil
}

// ParseConditions parses a stored conditions JSON blob on its own.
// An empty string yields wildcard conditions.
func (f *RuleFactory) ParseConditions(ruleID, jsonStr string) (approval.Conditions, error) {
	if jsonStr == "" {
		return approval.Conditions{}, nil
	}
	var cj ConditionsJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return approval.Conditions{}, fmt.Errorf("rule %s: invalid conditions JSON: %w", ruleID, err)
	}
	return f.buildConditions(ruleID, &cj)
}

func (f *RuleFactory) buildConditions(ruleID string, cj *ConditionsJSON) (approval.Conditions, error) {
	if cj == nil {
		return approval.Conditions{}, nil
	}

	var conditions approval.Conditions

	if len(cj.LeaveTypeIDs) > 0 {
		conditions.LeaveTypeIDs = make(map[approval.LeaveTypeID]struct{}, len(cj.LeaveTypeIDs))
		for _, id := range cj.LeaveTypeIDs {
			if id == "" {
				return approval.Conditions{}, fmt.Errorf("rule %s: empty leave type id in conditions", ruleID)
			}
			conditions.LeaveTypeIDs[approval.LeaveTypeID(id)] = struct{}{}
		}
	}

	if cj.MinDays != nil {
		if *cj.MinDays < 0 {
			return approval.Conditions{}, fmt.Errorf("rule %s: min_days must be non-negative", ruleID)
		}
		min := decimal.NewFromFloat(*cj.MinDays)
		conditions.MinDays = &min
	}
	if cj.MaxDays != nil {
		if *cj.MaxDays < 0 {
			return approval.Conditions{}, fmt.Errorf("rule %s: max_days must be non-negative", ruleID)
		}
		max := decimal.NewFromFloat(*cj.MaxDays)
		conditions.MaxDays = &max
	}
	if conditions.MinDays != nil && conditions.MaxDays != nil && conditions.MinDays.GreaterThan(*conditions.MaxDays) {
		return approval.Conditions{}, fmt.Errorf("rule %s: min_days exceeds max_days", ruleID)
	}

	return conditions, nil
}

// ConditionsToJSON converts typed conditions back to their JSON schema
// form. Returns nil for wildcard conditions.
func ConditionsToJSON(c approval.Conditions) *ConditionsJSON {
	if len(c.LeaveTypeIDs) == 0 && c.MinDays == nil && c.MaxDays == nil {
		return nil
	}
	cj := &ConditionsJSON{}
	for id := range c.LeaveTypeIDs {
		cj.LeaveTypeIDs = append(cj.LeaveTypeIDs, string(id))
	}
	sort.Strings(cj.LeaveTypeIDs)
	if c.MinDays != nil {
		v, _ := c.MinDays.Float64()
		cj.MinDays = &v
	}
	if c.MaxDays != nil {
		v, _ := c.MaxDays.Float64()
		cj.MaxDays = &v
	}
	return cj
}

// EncodeConditions serializes conditions to the stored JSON form.
// Wildcard conditions encode to the empty string.
func EncodeConditions(c approval.Conditions) (string, error) {
	cj := ConditionsToJSON(c)
	if cj == nil {
		return "", nil
	}
	b, err := json.Marshal(cj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
