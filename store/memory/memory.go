// Package memory provides in-memory implementations of the leave
// collaborator interfaces (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/workday"
)

// =============================================================================
// MEMORY STORE - Requests and approvals
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	requests  map[string]leave.Request
	approvals map[string][]leave.Approval // keyed by request ID, level ascending
}

func NewStore() *Store {
	return &Store{
		requests:  make(map[string]leave.Request),
		approvals: make(map[string][]leave.Approval),
	}
}

// CreateRequest persists the request with its approval rows. The write
// is atomic under the store lock.
func (s *Store) CreateRequest(_ context.Context, req leave.Request, approvals []leave.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = req
	rows := append([]leave.Approval(nil), approvals...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Level < rows[j].Level })
	s.approvals[req.ID] = rows
	return nil
}

func (s *Store) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (s *Store) UpdateRequest(_ context.Context, req leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = req
	return nil
}

func (s *Store) ListRequestsByRequester(_ context.Context, requesterID approval.UserID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.Request
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ApprovalsByRequest(_ context.Context, requestID string) ([]leave.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.approvals[requestID]
	out := make([]leave.Approval, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *Store) UpdateApproval(_ context.Context, a leave.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.approvals[a.RequestID]
	for i := range rows {
		if rows[i].ID == a.ID {
			rows[i] = a
			return nil
		}
	}
	return nil
}

func (s *Store) ListPendingForApprover(_ context.Context, userID approval.UserID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.Request
	for id, req := range s.requests {
		if req.Status != leave.StatusPending {
			continue
		}
		for _, row := range s.approvals[id] {
			if row.Status != leave.ApprovalPending {
				continue
			}
			// Only the lowest pending level is actionable.
			if row.Eligible(userID) {
				out = append(out, req)
			}
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ApprovedWorkDaysInYear(_ context.Context, requesterID approval.UserID, leaveTypeID approval.LeaveTypeID, year int) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, req := range s.requests {
		if req.RequesterID != requesterID || req.LeaveTypeID != leaveTypeID {
			continue
		}
		if req.Status != leave.StatusApproved || req.Range.Start.Year() != year {
			continue
		}
		total = total.Add(req.WorkDays)
	}
	return total, nil
}

// =============================================================================
// DIRECTORY - Static membership and member records
// =============================================================================

type Directory struct {
	mu      sync.RWMutex
	members map[approval.UserID]leave.Member
	leads   map[approval.TeamID]approval.UserID
}

func NewDirectory() *Directory {
	return &Directory{
		members: make(map[approval.UserID]leave.Member),
		leads:   make(map[approval.TeamID]approval.UserID),
	}
}

// AddMember registers a member record.
func (d *Directory) AddMember(m leave.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.ID] = m
}

// SetTeamLead assigns the lead of a team.
func (d *Directory) SetTeamLead(teamID approval.TeamID, userID approval.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leads[teamID] = userID
}

func (d *Directory) Member(_ context.Context, userID approval.UserID) (*leave.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.members[userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (d *Directory) TeamLead(_ context.Context, teamID approval.TeamID) (approval.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.leads[teamID], nil
}

func (d *Directory) ManagerOf(_ context.Context, userID approval.UserID) (approval.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[userID].ManagerID, nil
}

func (d *Directory) UsersWithRole(_ context.Context, orgID approval.OrgID, role approval.Role) ([]approval.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []approval.UserID
	for id, m := range d.members {
		if m.OrgID == orgID && m.Role == string(role) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *Directory) User(_ context.Context, userID approval.UserID) (approval.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.members[userID]; ok {
		return userID, nil
	}
	return "", nil
}

// =============================================================================
// RULES, HOLIDAYS, LEAVE TYPES - Static sources
// =============================================================================

type Rules struct {
	mu    sync.RWMutex
	rules []approval.Rule
}

func NewRules(rules ...approval.Rule) *Rules {
	return &Rules{rules: rules}
}

func (r *Rules) Add(rule approval.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

func (r *Rules) RulesForOrg(_ context.Context, orgID approval.OrgID) ([]approval.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []approval.Rule
	for _, rule := range r.rules {
		if rule.OrgID == orgID {
			out = append(out, rule)
		}
	}
	return out, nil
}

type Holidays struct {
	mu    sync.RWMutex
	dates map[string][]workday.Date // keyed by region
}

func NewHolidays() *Holidays {
	return &Holidays{dates: make(map[string][]workday.Date)}
}

// Add registers a holiday for a region ("" = nationwide).
func (h *Holidays) Add(region string, date workday.Date) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dates[region] = append(h.dates[region], date)
}

// HolidaysInRange returns nationwide plus regional holidays in [from, to].
func (h *Holidays) HolidaysInRange(_ context.Context, region string, from, to workday.Date) (workday.HolidaySet, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := workday.NewHolidaySet()
	collect := func(dates []workday.Date) {
		for _, d := range dates {
			if !d.Before(from) && !d.After(to) {
				set.Add(d)
			}
		}
	}
	collect(h.dates[""])
	if region != "" {
		collect(h.dates[region])
	}
	return set, nil
}

type LeaveTypes struct {
	mu    sync.RWMutex
	types map[approval.LeaveTypeID]leave.LeaveType
}

func NewLeaveTypes(types ...leave.LeaveType) *LeaveTypes {
	lt := &LeaveTypes{types: make(map[approval.LeaveTypeID]leave.LeaveType)}
	for _, t := range types {
		lt.types[t.ID] = t
	}
	return lt
}

func (l *LeaveTypes) LeaveType(_ context.Context, orgID approval.OrgID, id approval.LeaveTypeID) (*leave.LeaveType, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.types[id]
	if !ok || t.OrgID != orgID {
		return nil, nil
	}
	return &t, nil
}

func (l *LeaveTypes) ListLeaveTypes(_ context.Context, orgID approval.OrgID) ([]leave.LeaveType, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []leave.LeaveType
	for _, t := range l.types {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Compile-time interface checks
var (
	_ leave.Store           = (*Store)(nil)
	_ leave.Directory       = (*Directory)(nil)
	_ leave.RuleSource      = (*Rules)(nil)
	_ leave.HolidaySource   = (*Holidays)(nil)
	_ leave.LeaveTypeSource = (*LeaveTypes)(nil)
)
