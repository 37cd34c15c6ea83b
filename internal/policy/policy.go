// Package policy decides who may see and act on a case.
// Every function here is pure; callers fetch the case and pass it in.
package policy

import "caseflow/internal/model"

// Access is the level of access an actor has to a single case.
type Access int

const (
	NoAccess Access = iota
	ReadOnly
	Actionable
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case Actionable:
		return "actionable"
	default:
		return "no-access"
	}
}

// CanRead reports whether the case may be fetched.
func (a Access) CanRead() bool { return a >= ReadOnly }

// CanAct reports whether workflow actions may be performed.
func (a Access) CanAct() bool { return a == Actionable }

type scope int

const (
	scopeNone scope = iota
	scopeAll
	scopeAssignedOrSubmitted
)

var roleScopes = map[model.Role]scope{
	model.RoleSupervisor:         scopeAll,
	model.RoleRegistrar:          scopeAll,
	model.RoleRegistrarAssistant: scopeAssignedOrSubmitted,
	model.RoleLawyer:             scopeAssignedOrSubmitted,
	model.RoleNotary:             scopeAssignedOrSubmitted,
	model.RoleBailiff:            scopeAssignedOrSubmitted,
	model.RoleCitizen:            scopeNone,
}

func scopeOf(r model.Role) scope {
	return roleScopes[r]
}

// ForCase evaluates the access actor has to c.
func ForCase(actor model.Actor, c *model.Case) Access {
	if c == nil {
		return NoAccess
	}
	switch scopeOf(actor.Role) {
	case scopeAll:
		return Actionable
	case scopeAssignedOrSubmitted:
		if c.IsAssignedTo(actor.UserID) {
			return Actionable
		}
		if c.Status == model.CaseStatusSubmitted {
			return ReadOnly
		}
	}
	return NoAccess
}

// Filter is the list predicate compiled from the access rules.
// With MatchAll unset a case matches when it is assigned to AssignedTo or has Status.
type Filter struct {
	MatchAll   bool
	MatchNone  bool
	AssignedTo string
	Status     model.CaseStatus
}

// Matches evaluates the filter against c.
func (f Filter) Matches(c *model.Case) bool {
	switch {
	case f.MatchNone:
		return false
	case f.MatchAll:
		return true
	}
	return c.IsAssignedTo(f.AssignedTo) || c.Status == f.Status
}

// ListFilter returns the predicate selecting the cases actor may list.
func ListFilter(actor model.Actor) Filter {
	switch scopeOf(actor.Role) {
	case scopeAll:
		return Filter{MatchAll: true}
	case scopeAssignedOrSubmitted:
		return Filter{AssignedTo: actor.UserID, Status: model.CaseStatusSubmitted}
	default:
		return Filter{MatchNone: true}
	}
}

// CanListAssignableUsers reports whether role may browse users for assignment.
func CanListAssignableUsers(role model.Role) bool {
	return scopeOf(role) == scopeAll
}

// TracksOwnAssignments reports whether dashboard stats include the actor's assigned count.
func TracksOwnAssignments(role model.Role) bool {
	return role != model.RoleSupervisor
}
