/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Implements every collaborator interface the leave service depends on
  (leave.Store, leave.Directory, leave.RuleSource, leave.HolidaySource,
  leave.LeaveTypeSource) plus the admin CRUD the HTTP API exposes. In
  production the same patterns apply to PostgreSQL with minor dialect
  differences.

KEY TABLES:
  organizations:   Tenant records
  users:           Directory records with role, region, manager
  teams:           Teams with their lead
  team_members:    User-to-team links
  leave_types:     Leave catalog with annual entitlement
  holidays:        Public holidays, region-scoped ("" = nationwide)
  approval_rules:  Rule rows with conditions stored as JSON
  leave_requests:  Requests with computed work days
  approvals:       Materialized approval levels with candidate lists

ATOMICITY:
  CreateRequest writes the request and all its approval rows inside one
  database transaction. Either all rows land or none.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers
  don't block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/zeitpal.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store, store, store, store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/types.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/zeitpal/leave-engine/approval"
	"github.com/zeitpal/leave-engine/factory"
	"github.com/zeitpal/leave-engine/leave"
	"github.com/zeitpal/leave-engine/workday"
)

// Store implements all persistence interfaces using SQLite.
type Store struct {
	db      *sql.DB
	factory *factory.RuleFactory
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The sqlite driver serializes writes; a second writer connection
	// would only produce SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.NewRuleFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Organizations (tenants)
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Users (directory records)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		region TEXT NOT NULL DEFAULT '',
		manager_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_org ON users(org_id);
	CREATE INDEX IF NOT EXISTS idx_users_org_role ON users(org_id, role);

	-- Teams
	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		lead_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_teams_org ON teams(org_id);

	CREATE TABLE IF NOT EXISTS team_members (
		team_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (team_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_team_members_user ON team_members(user_id);

	-- Leave types (catalog)
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		annual_entitlement TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_types_org ON leave_types(org_id);

	-- Holidays, region-scoped ('' = nationwide)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_region_date ON holidays(region, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique ON holidays(region, date, name);

	-- Approval rules; conditions stored as JSON and parsed on load
	CREATE TABLE IF NOT EXISTS approval_rules (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		conditions_json TEXT NOT NULL DEFAULT '',
		approver_type TEXT NOT NULL,
		approver_user_id TEXT,
		level INTEGER NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_org ON approval_rules(org_id);
	CREATE INDEX IF NOT EXISTS idx_rules_org_active ON approval_rules(org_id, active);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		start_half TEXT NOT NULL DEFAULT '',
		end_half TEXT NOT NULL DEFAULT '',
		work_days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT,
		decided_by TEXT,
		decided_at TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_requester ON leave_requests(requester_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON leave_requests(status);
	-- Hot path: per-year entitlement sums
	CREATE INDEX IF NOT EXISTS idx_requests_requester_type_start
		ON leave_requests(requester_id, leave_type_id, start_date);

	-- Approval levels; candidates stored as a JSON array of user IDs
	CREATE TABLE IF NOT EXISTS approvals (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		candidates_json TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		acted_by TEXT,
		acted_at TEXT,
		comment TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(request_id, level)
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_request ON approvals(request_id);
	CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUEST STORE (leave.Store interface)
// =============================================================================

// CreateRequest persists the request with its approval rows in one
// database transaction.
func (s *Store) CreateRequest(ctx context.Context, req leave.Request, approvals []leave.Approval) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRequest(ctx, tx, req); err != nil {
		return err
	}
	for _, a := range approvals {
		candidates, err := json.Marshal(a.Candidates)
		if err != nil {
			return fmt.Errorf("failed to encode candidates: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO approvals (id, request_id, level, candidates_json, status, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.RequestID, a.Level, string(candidates), a.Status, a.Comment,
			a.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert approval level %d: %w", a.Level, err)
		}
	}

	return tx.Commit()
}

func insertRequest(ctx context.Context, tx *sql.Tx, req leave.Request) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, org_id, requester_id, leave_type_id, start_date, end_date, start_half, end_half,
		 work_days, status, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.OrgID, req.RequesterID, req.LeaveTypeID,
		req.Range.Start.String(), req.Range.End.String(),
		string(req.Range.StartHalf), string(req.Range.EndHalf),
		req.WorkDays.String(), req.Status, req.Reason,
		req.CreatedAt.UTC().Format(time.RFC3339),
		req.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

const requestColumns = `id, org_id, requester_id, leave_type_id, start_date, end_date,
	start_half, end_half, work_days, status, reason, decided_by, decided_at,
	rejection_reason, created_at, updated_at`

// GetRequest returns the request, or nil if unknown.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequest writes back the mutable request fields.
func (s *Store) UpdateRequest(ctx context.Context, req leave.Request) error {
	var decidedAt *string
	if req.DecidedAt != nil {
		t := req.DecidedAt.UTC().Format(time.RFC3339)
		decidedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, decided_by = ?, decided_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		req.Status, nullString(string(req.DecidedBy)), decidedAt,
		req.RejectionReason, req.UpdatedAt.UTC().Format(time.RFC3339), req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request %s: %w", req.ID, err)
	}
	return nil
}

// ListRequestsByRequester returns the user's requests, oldest first.
func (s *Store) ListRequestsByRequester(ctx context.Context, requesterID approval.UserID) ([]leave.Request, error) {
	return s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE requester_id = ? ORDER BY created_at ASC",
		requesterID)
}

// ApprovalsByRequest returns the request's approval rows, level ascending.
func (s *Store) ApprovalsByRequest(ctx context.Context, requestID string) ([]leave.Approval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, level, candidates_json, status, acted_by, acted_at, comment, created_at
		FROM approvals
		WHERE request_id = ?
		ORDER BY level ASC`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []leave.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// UpdateApproval writes back the mutable approval fields.
func (s *Store) UpdateApproval(ctx context.Context, a leave.Approval) error {
	var actedAt *string
	if a.ActedAt != nil {
		t := a.ActedAt.UTC().Format(time.RFC3339)
		actedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE approvals
		SET status = ?, acted_by = ?, acted_at = ?, comment = ?
		WHERE id = ?`,
		a.Status, nullString(string(a.ActedBy)), actedAt, a.Comment, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval %s: %w", a.ID, err)
	}
	return nil
}

// ListPendingForApprover returns pending requests where the user is a
// candidate on the lowest pending level. Candidate membership lives in
// a JSON array, so the filter runs in Go after a status-indexed scan.
func (s *Store) ListPendingForApprover(ctx context.Context, userID approval.UserID) ([]leave.Request, error) {
	requests, err := s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE status = 'pending' ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}

	var out []leave.Request
	for _, req := range requests {
		approvals, err := s.ApprovalsByRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range approvals {
			if a.Status != leave.ApprovalPending {
				continue
			}
			if a.Eligible(userID) {
				out = append(out, req)
			}
			break
		}
	}
	return out, nil
}

// ApprovedWorkDaysInYear sums approved work days of one leave type whose
// range starts in the year.
func (s *Store) ApprovedWorkDaysInYear(ctx context.Context, requesterID approval.UserID, leaveTypeID approval.LeaveTypeID, year int) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT work_days FROM leave_requests
		WHERE requester_id = ? AND leave_type_id = ? AND status = 'approved'
		  AND start_date >= ? AND start_date <= ?`,
		requesterID, leaveTypeID,
		fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query work days: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt work_days value %q: %w", raw, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (leave.Request, error) {
	var (
		req                        leave.Request
		startDate, endDate         string
		startHalf, endHalf         string
		workDays                   string
		decidedBy, decidedAt       sql.NullString
		reason, rejectionReason    sql.NullString
		createdAt, updatedAt       string
	)

	err := row.Scan(
		&req.ID, &req.OrgID, &req.RequesterID, &req.LeaveTypeID,
		&startDate, &endDate, &startHalf, &endHalf, &workDays,
		&req.Status, &reason, &decidedBy, &decidedAt, &rejectionReason,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return req, err
	}

	start, err := workday.ParseDate(startDate)
	if err != nil {
		return req, fmt.Errorf("corrupt start_date %q: %w", startDate, err)
	}
	end, err := workday.ParseDate(endDate)
	if err != nil {
		return req, fmt.Errorf("corrupt end_date %q: %w", endDate, err)
	}
	req.Range = workday.DateRange{
		Start: start, End: end,
		StartHalf: workday.HalfDay(startHalf),
		EndHalf:   workday.HalfDay(endHalf),
	}

	req.WorkDays, err = decimal.NewFromString(workDays)
	if err != nil {
		return req, fmt.Errorf("corrupt work_days %q: %w", workDays, err)
	}

	req.Reason = reason.String
	req.RejectionReason = rejectionReason.String
	req.DecidedBy = approval.UserID(decidedBy.String)
	if decidedAt.Valid {
		t, _ := time.Parse(time.RFC3339, decidedAt.String)
		req.DecidedAt = &t
	}
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return req, nil
}

func scanApproval(row rowScanner) (leave.Approval, error) {
	var (
		a              leave.Approval
		candidatesJSON string
		actedBy        sql.NullString
		actedAt        sql.NullString
		comment        sql.NullString
		createdAt      string
	)

	err := row.Scan(&a.ID, &a.RequestID, &a.Level, &candidatesJSON,
		&a.Status, &actedBy, &actedAt, &comment, &createdAt)
	if err != nil {
		return a, fmt.Errorf("failed to scan approval: %w", err)
	}

	if err := json.Unmarshal([]byte(candidatesJSON), &a.Candidates); err != nil {
		return a, fmt.Errorf("corrupt candidates for approval %s: %w", a.ID, err)
	}
	a.ActedBy = approval.UserID(actedBy.String)
	a.Comment = comment.String
	if actedAt.Valid {
		t, _ := time.Parse(time.RFC3339, actedAt.String)
		a.ActedAt = &t
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return a, nil
}

// =============================================================================
// DIRECTORY (leave.Directory interface)
// =============================================================================

// SaveUser upserts a directory record, including team memberships.
func (s *Store) SaveUser(ctx context.Context, m leave.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, org_id, name, email, role, region, manager_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			region = excluded.region,
			manager_id = excluded.manager_id`,
		m.ID, m.OrgID, m.Name, m.Email, m.Role, m.Region,
		nullString(string(m.ManagerID)),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM team_members WHERE user_id = ?", m.ID); err != nil {
		return fmt.Errorf("failed to clear team memberships: %w", err)
	}
	for _, teamID := range m.TeamIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO team_members (team_id, user_id) VALUES (?, ?)", teamID, m.ID)
		if err != nil {
			return fmt.Errorf("failed to add team membership %s: %w", teamID, err)
		}
	}

	return tx.Commit()
}

// Member returns the directory record with its team memberships, or nil.
func (s *Store) Member(ctx context.Context, userID approval.UserID) (*leave.Member, error) {
	var (
		m         leave.Member
		email     sql.NullString
		managerID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, name, email, role, region, manager_id FROM users WHERE id = ?",
		userID,
	).Scan(&m.ID, &m.OrgID, &m.Name, &email, &m.Role, &m.Region, &managerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Email = email.String
	m.ManagerID = approval.UserID(managerID.String)

	rows, err := s.db.QueryContext(ctx,
		"SELECT team_id FROM team_members WHERE user_id = ? ORDER BY team_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID approval.TeamID
		if err := rows.Scan(&teamID); err != nil {
			return nil, err
		}
		m.TeamIDs = append(m.TeamIDs, teamID)
	}
	return &m, rows.Err()
}

// ListUsers returns all directory records of an organization.
func (s *Store) ListUsers(ctx context.Context, orgID approval.OrgID) ([]leave.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM users WHERE org_id = ? ORDER BY name", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []approval.UserID
	for rows.Next() {
		var id approval.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members := make([]leave.Member, 0, len(ids))
	for _, id := range ids {
		m, err := s.Member(ctx, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			members = append(members, *m)
		}
	}
	return members, nil
}

// TeamLead returns the lead of a team, empty if none is assigned.
func (s *Store) TeamLead(ctx context.Context, teamID approval.TeamID) (approval.UserID, error) {
	var leadID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT lead_id FROM teams WHERE id = ?", teamID).Scan(&leadID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return approval.UserID(leadID.String), nil
}

// ManagerOf returns the user's manager, empty if none.
func (s *Store) ManagerOf(ctx context.Context, userID approval.UserID) (approval.UserID, error) {
	var managerID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT manager_id FROM users WHERE id = ?", userID).Scan(&managerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return approval.UserID(managerID.String), nil
}

// UsersWithRole returns the org's users holding the role.
func (s *Store) UsersWithRole(ctx context.Context, orgID approval.OrgID, role approval.Role) ([]approval.UserID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM users WHERE org_id = ? AND role = ? ORDER BY id", orgID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []approval.UserID
	for rows.Next() {
		var id approval.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// User returns the user's ID if the record exists, empty otherwise.
func (s *Store) User(ctx context.Context, userID approval.UserID) (approval.UserID, error) {
	var id approval.UserID
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE id = ?", userID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// =============================================================================
// TEAMS
// =============================================================================

// Team is a stored team record.
type Team struct {
	ID     approval.TeamID
	OrgID  approval.OrgID
	Name   string
	LeadID approval.UserID
}

// SaveTeam upserts a team.
func (s *Store) SaveTeam(ctx context.Context, t Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, org_id, name, lead_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			lead_id = excluded.lead_id`,
		t.ID, t.OrgID, t.Name, nullString(string(t.LeadID)),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListTeams returns all teams of an organization.
func (s *Store) ListTeams(ctx context.Context, orgID approval.OrgID) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, org_id, name, lead_id FROM teams WHERE org_id = ? ORDER BY name", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		var leadID sql.NullString
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &leadID); err != nil {
			return nil, err
		}
		t.LeadID = approval.UserID(leadID.String)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

// Organization is a tenant record.
type Organization struct {
	ID   approval.OrgID
	Name string
}

// SaveOrganization upserts a tenant.
func (s *Store) SaveOrganization(ctx context.Context, org Organization) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		org.ID, org.Name, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetOrganization returns the tenant, or nil.
func (s *Store) GetOrganization(ctx context.Context, id approval.OrgID) (*Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM organizations WHERE id = ?", id).Scan(&org.ID, &org.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// =============================================================================
// LEAVE TYPES (leave.LeaveTypeSource interface)
// =============================================================================

// SaveLeaveType upserts a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types (id, org_id, name, annual_entitlement, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			annual_entitlement = excluded.annual_entitlement`,
		lt.ID, lt.OrgID, lt.Name, lt.AnnualEntitlement.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LeaveType returns the leave type scoped to the org, or nil.
func (s *Store) LeaveType(ctx context.Context, orgID approval.OrgID, id approval.LeaveTypeID) (*leave.LeaveType, error) {
	var lt leave.LeaveType
	var entitlement string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, name, annual_entitlement FROM leave_types WHERE id = ? AND org_id = ?",
		id, orgID,
	).Scan(&lt.ID, &lt.OrgID, &lt.Name, &entitlement)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lt.AnnualEntitlement, err = decimal.NewFromString(entitlement)
	if err != nil {
		return nil, fmt.Errorf("corrupt annual_entitlement %q: %w", entitlement, err)
	}
	return &lt, nil
}

// ListLeaveTypes returns the organization's leave catalog.
func (s *Store) ListLeaveTypes(ctx context.Context, orgID approval.OrgID) ([]leave.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, org_id, name, annual_entitlement FROM leave_types WHERE org_id = ? ORDER BY id",
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		var lt leave.LeaveType
		var entitlement string
		if err := rows.Scan(&lt.ID, &lt.OrgID, &lt.Name, &entitlement); err != nil {
			return nil, err
		}
		lt.AnnualEntitlement, err = decimal.NewFromString(entitlement)
		if err != nil {
			return nil, fmt.Errorf("corrupt annual_entitlement %q: %w", entitlement, err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// =============================================================================
// HOLIDAYS (leave.HolidaySource interface)
// =============================================================================

// HolidayRecord is a stored public holiday.
type HolidayRecord struct {
	ID     string
	Region string // "" = nationwide
	Date   workday.Date
	Name   string
}

// SaveHoliday upserts a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h HolidayRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, region, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(region, date, name) DO NOTHING`,
		h.ID, h.Region, h.Date.String(), h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns the region's holidays (nationwide included) in a
// year, date ascending.
func (s *Store) ListHolidays(ctx context.Context, region string, year int) ([]HolidayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region, date, name
		FROM holidays
		WHERE (region = ? OR region = '')
		  AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		region, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []HolidayRecord
	for rows.Next() {
		var h HolidayRecord
		var dateStr string
		if err := rows.Scan(&h.ID, &h.Region, &dateStr, &h.Name); err != nil {
			return nil, err
		}
		h.Date, err = workday.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", dateStr, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// HolidaysInRange returns nationwide plus regional holiday dates in [from, to].
func (s *Store) HolidaysInRange(ctx context.Context, region string, from, to workday.Date) (workday.HolidaySet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date
		FROM holidays
		WHERE (region = ? OR region = '')
		  AND date >= ? AND date <= ?`,
		region, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	set := workday.NewHolidaySet()
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, err
		}
		d, err := workday.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", dateStr, err)
		}
		set.Add(d)
	}
	return set, rows.Err()
}

// =============================================================================
// APPROVAL RULES (leave.RuleSource interface)
// =============================================================================

// SaveRule validates and upserts a rule. Conditions are encoded to JSON
// for storage; they are parsed back on every load so a rule row is
// always valid by the time the resolver sees it.
func (s *Store) SaveRule(ctx context.Context, rule approval.Rule) error {
	conditionsJSON, err := factory.EncodeConditions(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions for rule %s: %w", rule.ID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approval_rules
		(id, org_id, name, conditions_json, approver_type, approver_user_id, level, priority, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			conditions_json = excluded.conditions_json,
			approver_type = excluded.approver_type,
			approver_user_id = excluded.approver_user_id,
			level = excluded.level,
			priority = excluded.priority,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		rule.ID, rule.OrgID, rule.Name, conditionsJSON,
		rule.ApproverType, nullString(string(rule.ApproverUserID)),
		rule.Level, rule.Priority, rule.Active, now, now,
	)
	return err
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id approval.RuleID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM approval_rules WHERE id = ?", id)
	return err
}

// RulesForOrg returns all rules of an organization with their conditions
// parsed and validated.
func (s *Store) RulesForOrg(ctx context.Context, orgID approval.OrgID) ([]approval.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, conditions_json, approver_type, approver_user_id, level, priority, active
		FROM approval_rules
		WHERE org_id = ?
		ORDER BY level ASC, priority DESC, id ASC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []approval.Rule
	for rows.Next() {
		var (
			rule           approval.Rule
			conditionsJSON string
			approverUserID sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.OrgID, &rule.Name, &conditionsJSON,
			&rule.ApproverType, &approverUserID, &rule.Level, &rule.Priority, &rule.Active); err != nil {
			return nil, err
		}
		rule.ApproverUserID = approval.UserID(approverUserID.String)

		rule.Conditions, err = s.factory.ParseConditions(string(rule.ID), conditionsJSON)
		if err != nil {
			return nil, fmt.Errorf("corrupt conditions for rule %s: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"approvals", "leave_requests", "approval_rules", "holidays",
		"leave_types", "team_members", "teams", "users", "organizations",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time interface checks
var (
	_ leave.Store           = (*Store)(nil)
	_ leave.Directory       = (*Store)(nil)
	_ leave.RuleSource      = (*Store)(nil)
	_ leave.HolidaySource   = (*Store)(nil)
	_ leave.LeaveTypeSource = (*Store)(nil)
)
