package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/store/sqlite"
	"github.com/zeitpal/leave-engine/workday"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRequestRoundTrip(t *testing.T) {
	// GIVEN: A request with two approval levels
	// WHEN: Persisting and re-reading
	// THEN: All fields survive, levels come back ascending

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	req := leave.Request{
		ID: "req-1", OrgID: "org-1", RequesterID: "emp-1", LeaveTypeID: "vacation",
		Range: workday.DateRange{
			Start:     workday.NewDate(2025, time.June, 2),
			End:       workday.NewDate(2025, time.June, 6),
			StartHalf: workday.HalfAfternoon,
		},
		WorkDays:  decimal.RequireFromString("4.5"),
		Status:    leave.StatusPending,
		Reason:    "summer vacation",
		CreatedAt: now, UpdatedAt: now,
	}
	approvals := []leave.Approval{
		{ID: "ap-2", RequestID: "req-1", Level: 2, Candidates: []approval.UserID{"hr-1"},
			Status: leave.ApprovalPending, CreatedAt: now},
		{ID: "ap-1", RequestID: "req-1", Level: 1, Candidates: []approval.UserID{"mgr-1", "mgr-2"},
			Status: leave.ApprovalPending, CreatedAt: now},
	}

	require.NoError(t, store.CreateRequest(ctx, req, approvals))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.Range, got.Range)
	assert.True(t, got.WorkDays.Equal(req.WorkDays))
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Equal(t, "summer vacation", got.Reason)

	rows, err := store.ApprovalsByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Level)
	assert.Equal(t, []approval.UserID{"mgr-1", "mgr-2"}, rows[0].Candidates)
	assert.Equal(t, 2, rows[1].Level)
}

func TestGetRequest_Unknown(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRequest(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateRequestAndApproval(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	req := leave.Request{
		ID: "req-1", OrgID: "org-1", RequesterID: "emp-1", LeaveTypeID: "vacation",
		Range: workday.NewDateRange(
			workday.NewDate(2025, time.June, 2), workday.NewDate(2025, time.June, 3)),
		WorkDays: decimal.NewFromInt(2), Status: leave.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	approvals := []leave.Approval{
		{ID: "ap-1", RequestID: "req-1", Level: 1, Candidates: []approval.UserID{"mgr-1"},
			Status: leave.ApprovalPending, CreatedAt: now},
	}
	require.NoError(t, store.CreateRequest(ctx, req, approvals))

	acted := now.Add(time.Hour)
	approvals[0].Status = leave.ApprovalApproved
	approvals[0].ActedBy = "mgr-1"
	approvals[0].ActedAt = &acted
	approvals[0].Comment = "ok"
	require.NoError(t, store.UpdateApproval(ctx, approvals[0]))

	req.Status = leave.StatusApproved
	req.DecidedBy = "mgr-1"
	req.DecidedAt = &acted
	req.UpdatedAt = acted
	require.NoError(t, store.UpdateRequest(ctx, req))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, approval.UserID("mgr-1"), got.DecidedBy)
	require.NotNil(t, got.DecidedAt)

	rows, err := store.ApprovalsByRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.ApprovalApproved, rows[0].Status)
	assert.Equal(t, "ok", rows[0].Comment)
}

func TestListPendingForApprover_LowestLevelOnly(t *testing.T) {
	// GIVEN: A pending two-level request (mgr-1, then hr-1)
	// WHEN: Listing each approver's queue
	// THEN: Only mgr-1 sees it while level 1 is open

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	req := leave.Request{
		ID: "req-1", OrgID: "org-1", RequesterID: "emp-1", LeaveTypeID: "vacation",
		Range: workday.NewDateRange(
			workday.NewDate(2025, time.June, 2), workday.NewDate(2025, time.June, 13)),
		WorkDays: decimal.NewFromInt(10), Status: leave.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	approvals := []leave.Approval{
		{ID: "ap-1", RequestID: "req-1", Level: 1, Candidates: []approval.UserID{"mgr-1"},
			Status: leave.ApprovalPending, CreatedAt: now},
		{ID: "ap-2", RequestID: "req-1", Level: 2, Candidates: []approval.UserID{"hr-1"},
			Status: leave.ApprovalPending, CreatedAt: now},
	}
	require.NoError(t, store.CreateRequest(ctx, req, approvals))

	forManager, err := store.ListPendingForApprover(ctx, "mgr-1")
	require.NoError(t, err)
	assert.Len(t, forManager, 1)

	forHR, err := store.ListPendingForApprover(ctx, "hr-1")
	require.NoError(t, err)
	assert.Empty(t, forHR)

	approvals[0].Status = leave.ApprovalApproved
	require.NoError(t, store.UpdateApproval(ctx, approvals[0]))

	forHR, err = store.ListPendingForApprover(ctx, "hr-1")
	require.NoError(t, err)
	assert.Len(t, forHR, 1)
}

func TestApprovedWorkDaysInYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	add := func(id string, status leave.Status, start workday.Date, days int64) {
		req := leave.Request{
			ID: id, OrgID: "org-1", RequesterID: "emp-1", LeaveTypeID: "vacation",
			Range:    workday.NewDateRange(start, start.AddDays(int(days)-1)),
			WorkDays: decimal.NewFromInt(days), Status: status,
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, store.CreateRequest(ctx, req, nil))
	}

	add("req-1", leave.StatusApproved, workday.NewDate(2025, time.March, 3), 3)
	add("req-2", leave.StatusApproved, workday.NewDate(2025, time.August, 4), 5)
	add("req-3", leave.StatusPending, workday.NewDate(2025, time.September, 1), 2)
	add("req-4", leave.StatusApproved, workday.NewDate(2024, time.December, 2), 4)

	total, err := store.ApprovedWorkDaysInYear(ctx, "emp-1", "vacation", 2025)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(8)), "total = %v", total)
}

func TestDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOrganization(ctx, sqlite.Organization{ID: "org-1", Name: "ZeitPal GmbH"}))
	require.NoError(t, store.SaveUser(ctx, leave.Member{
		ID: "mgr-1", OrgID: "org-1", Name: "Max Chef", Role: "employee", Region: "BY",
	}))
	require.NoError(t, store.SaveUser(ctx, leave.Member{
		ID: "emp-1", OrgID: "org-1", Name: "Erika Muster", Role: "employee", Region: "BY",
		ManagerID: "mgr-1", TeamIDs: []approval.TeamID{"team-a", "team-b"},
	}))
	require.NoError(t, store.SaveUser(ctx, leave.Member{
		ID: "hr-1", OrgID: "org-1", Name: "Hanna Personal", Role: "hr",
	}))
	require.NoError(t, store.SaveTeam(ctx, sqlite.Team{
		ID: "team-a", OrgID: "org-1", Name: "Backend", LeadID: "mgr-1",
	}))

	m, err := store.Member(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, approval.UserID("mgr-1"), m.ManagerID)
	assert.Equal(t, []approval.TeamID{"team-a", "team-b"}, m.TeamIDs)

	lead, err := store.TeamLead(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, approval.UserID("mgr-1"), lead)

	lead, err = store.TeamLead(ctx, "team-x")
	require.NoError(t, err)
	assert.Empty(t, lead)

	manager, err := store.ManagerOf(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, approval.UserID("mgr-1"), manager)

	hr, err := store.UsersWithRole(ctx, "org-1", approval.RoleHR)
	require.NoError(t, err)
	assert.Equal(t, []approval.UserID{"hr-1"}, hr)

	id, err := store.User(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, approval.UserID("emp-1"), id)

	id, err = store.User(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestRuleRoundTrip(t *testing.T) {
	// GIVEN: A rule with leave-type and day-span conditions
	// WHEN: Saving and loading via RulesForOrg
	// THEN: Conditions are re-parsed and match semantically

	store := newTestStore(t)
	ctx := context.Background()

	minDays := decimal.NewFromInt(5)
	rule := approval.Rule{
		ID: "rule-1", OrgID: "org-1", Name: "HR for long vacation",
		Conditions: approval.Conditions{
			LeaveTypeIDs: map[approval.LeaveTypeID]struct{}{"vacation": {}},
			MinDays:      &minDays,
		},
		ApproverType: approval.ApproverHR, Level: 2, Priority: 10, Active: true,
	}
	require.NoError(t, store.SaveRule(ctx, rule))

	rules, err := store.RulesForOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	got := rules[0]
	assert.Equal(t, rule.ID, got.ID)
	assert.Equal(t, approval.ApproverHR, got.ApproverType)
	assert.Equal(t, 2, got.Level)
	assert.Contains(t, got.Conditions.LeaveTypeIDs, approval.LeaveTypeID("vacation"))
	require.NotNil(t, got.Conditions.MinDays)
	assert.True(t, got.Conditions.MinDays.Equal(minDays))

	require.NoError(t, store.DeleteRule(ctx, "rule-1"))
	rules, err = store.RulesForOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestHolidays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, sqlite.HolidayRecord{
		ID: "h-1", Region: "", Date: workday.NewDate(2025, time.October, 3), Name: "Tag der Deutschen Einheit",
	}))
	require.NoError(t, store.SaveHoliday(ctx, sqlite.HolidayRecord{
		ID: "h-2", Region: "BY", Date: workday.NewDate(2025, time.November, 1), Name: "Allerheiligen",
	}))
	require.NoError(t, store.SaveHoliday(ctx, sqlite.HolidayRecord{
		ID: "h-3", Region: "SN", Date: workday.NewDate(2025, time.November, 19), Name: "Buß- und Bettag",
	}))

	set, err := store.HolidaysInRange(ctx, "BY",
		workday.NewDate(2025, time.October, 1), workday.NewDate(2025, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(workday.NewDate(2025, time.November, 1)))
	assert.False(t, set.Contains(workday.NewDate(2025, time.November, 19)), "other region's holiday excluded")

	listed, err := store.ListHolidays(ctx, "BY", 2025)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Tag der Deutschen Einheit", listed[0].Name)

	require.NoError(t, store.DeleteHoliday(ctx, "h-2"))
	set, err = store.HolidaysInRange(ctx, "BY",
		workday.NewDate(2025, time.October, 1), workday.NewDate(2025, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestLeaveTypes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLeaveType(ctx, leave.LeaveType{
		ID: "vacation", OrgID: "org-1", Name: "Urlaub",
		AnnualEntitlement: decimal.NewFromInt(30),
	}))
	require.NoError(t, store.SaveLeaveType(ctx, leave.LeaveType{
		ID: "special", OrgID: "org-1", Name: "Sonderurlaub",
		AnnualEntitlement: decimal.RequireFromString("2.5"),
	}))

	lt, err := store.LeaveType(ctx, "org-1", "vacation")
	require.NoError(t, err)
	require.NotNil(t, lt)
	assert.True(t, lt.AnnualEntitlement.Equal(decimal.NewFromInt(30)))

	lt, err = store.LeaveType(ctx, "org-2", "vacation")
	require.NoError(t, err)
	assert.Nil(t, lt, "leave types are org-scoped")

	types, err := store.ListLeaveTypes(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, types, 2)
}
