package factory_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/factory"
)

func TestParseRule_Complete(t *testing.T) {
	// GIVEN: A complete rule definition with all condition fields
	// WHEN: Parsing
	// THEN: All fields land in the typed rule

	jsonStr := `{
		"id": "rule-1",
		"org_id": "org-1",
		"name": "Manager approval up to 10 days",
		"conditions": {
			"leave_type_ids": ["vacation", "unpaid"],
			"min_days": 0.5,
			"max_days": 10
		},
		"approver_type": "manager",
		"level": 1,
		"priority": 2,
		"active": true
	}`

	rule, err := factory.NewRuleFactory().ParseRule(jsonStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rule.ID != "rule-1" || rule.OrgID != "org-1" {
		t.Errorf("unexpected identifiers: %+v", rule)
	}
	if rule.ApproverType != approval.ApproverManager {
		t.Errorf("expected manager approver, got %s", rule.ApproverType)
	}
	if len(rule.Conditions.LeaveTypeIDs) != 2 {
		t.Errorf("expected 2 leave type conditions, got %d", len(rule.Conditions.LeaveTypeIDs))
	}
	if rule.Conditions.MinDays == nil || !rule.Conditions.MinDays.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("unexpected min_days: %v", rule.Conditions.MinDays)
	}
	if rule.Conditions.MaxDays == nil || !rule.Conditions.MaxDays.Equal(decimal.NewFromInt(10)) {
		t.Errorf("unexpected max_days: %v", rule.Conditions.MaxDays)
	}
}

func TestParseRule_NoConditions_Wildcard(t *testing.T) {
	// GIVEN: A rule without a conditions block
	// WHEN: Parsing
	// THEN: The rule matches any candidate

	jsonStr := `{"id": "rule-1", "org_id": "org-1", "approver_type": "hr", "level": 1, "active": true}`

	rule, err := factory.NewRuleFactory().ParseRule(jsonStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cand := approval.Candidate{OrgID: "org-1", LeaveTypeID: "anything", WorkDays: decimal.NewFromInt(99)}
	if !rule.Conditions.Matches(cand) {
		t.Error("wildcard conditions should match any candidate")
	}
}

func TestParseRule_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		jsonStr string
		wantMsg string
	}{
		{
			name:    "unknown approver type",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "cfo", "level": 1}`,
			wantMsg: "unknown approver_type",
		},
		{
			name:    "specific_user without approver_user_id",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "specific_user", "level": 1}`,
			wantMsg: "requires approver_user_id",
		},
		{
			name:    "approver_user_id on non-specific rule",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "manager", "approver_user_id": "u-1", "level": 1}`,
			wantMsg: "only valid with approver_type specific_user",
		},
		{
			name:    "level zero",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "manager", "level": 0}`,
			wantMsg: "level must be >= 1",
		},
		{
			name:    "negative min_days",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "manager", "level": 1, "conditions": {"min_days": -1}}`,
			wantMsg: "min_days must be non-negative",
		},
		{
			name:    "min exceeds max",
			jsonStr: `{"id": "r", "org_id": "o", "approver_type": "manager", "level": 1, "conditions": {"min_days": 5, "max_days": 2}}`,
			wantMsg: "min_days exceeds max_days",
		},
		{
			name:    "missing org",
			jsonStr: `{"id": "r", "approver_type": "manager", "level": 1}`,
			wantMsg: "missing org_id",
		},
		{
			name:    "malformed JSON",
			jsonStr: `{"id": `,
			wantMsg: "invalid rule JSON",
		},
	}

	f := factory.NewRuleFactory()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseRule(tc.jsonStr)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tc.wantMsg, err)
			}
		})
	}
}

func TestConditions_RoundTrip(t *testing.T) {
	// GIVEN: Parsed conditions
	// WHEN: Encoding and re-parsing
	// THEN: The conditions survive unchanged

	f := factory.NewRuleFactory()

	original, err := f.ParseConditions("r-1", `{"leave_type_ids": ["vacation"], "max_days": 3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoded, err := factory.EncodeConditions(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := f.ParseConditions("r-1", encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(again.LeaveTypeIDs) != 1 {
		t.Errorf("leave types lost in round trip: %+v", again)
	}
	if again.MaxDays == nil || !again.MaxDays.Equal(decimal.NewFromInt(3)) {
		t.Errorf("max_days lost in round trip: %+v", again)
	}
	if again.MinDays != nil {
		t.Errorf("min_days appeared from nowhere: %+v", again)
	}
}

func TestParseConditions_Empty(t *testing.T) {
	conditions, err := factory.NewRuleFactory().ParseConditions("r-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conditions.MinDays != nil || conditions.MaxDays != nil || len(conditions.LeaveTypeIDs) != 0 {
		t.Errorf("expected wildcard conditions, got %+v", conditions)
	}
}
