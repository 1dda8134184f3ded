/*
membership.go - Organization membership collaborator interface

PURPOSE:
  The resolver needs team-lead, manager, and role information to turn an
  approver type into concrete users. That data lives outside this
  package (typically a database), so it is passed in explicitly as a
  read-only query facade. No ambient "current organization" state.

CONVENTIONS:
  - "No such user" is expressed as the empty UserID, not an error.
    Errors are reserved for lookup failures (e.g. database errors).
  - UsersWithRole is scoped to one organization and may return users in
    any order; the resolver sorts for determinism.

SEE ALSO:
  - resolver.go: The only consumer of this interface
  - store/sqlite: SQL-backed implementation
  - store/memory: Static implementation for tests
*/
package approval

import "context"

// MembershipView is a read-only query facade over team/role data.
type MembershipView interface {
	// TeamLead returns the lead of the team, or empty if the team has
	// no lead (or does not exist).
	TeamLead(ctx context.Context, teamID TeamID) (UserID, error)

	// ManagerOf returns the user's manager, or empty if none.
	ManagerOf(ctx context.Context, userID UserID) (UserID, error)

	// UsersWithRole returns all users holding the role in the
	// organization. Order is unspecified.
	UsersWithRole(ctx context.Context, orgID OrgID, role Role) ([]UserID, error)

	// User resolves a user reference. Returns empty if the user does
	// not exist.
	User(ctx context.Context, userID UserID) (UserID, error)
}
