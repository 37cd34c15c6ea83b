package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"caseflow/internal/model"
)

func ptr(s string) *string { return &s }

var allStatuses = []model.CaseStatus{
	model.CaseStatusSubmitted,
	model.CaseStatusAssigned,
	model.CaseStatusUnderReview,
	model.CaseStatusPendingDocuments,
	model.CaseStatusApproved,
	model.CaseStatusRejected,
}

var restrictedRoles = []model.Role{
	model.RoleRegistrarAssistant,
	model.RoleLawyer,
	model.RoleNotary,
	model.RoleBailiff,
}

func TestForCase(t *testing.T) {
	const me, other = "user-me", "user-other"

	tests := []struct {
		name string
		role model.Role
		c    model.Case
		want Access
	}{
		{"supervisor sees anything", model.RoleSupervisor, model.Case{Status: model.CaseStatusRejected, AssignedTo: ptr(other)}, Actionable},
		{"registrar sees anything", model.RoleRegistrar, model.Case{Status: model.CaseStatusUnderReview}, Actionable},
		{"lawyer assigned to self", model.RoleLawyer, model.Case{Status: model.CaseStatusUnderReview, AssignedTo: ptr(me)}, Actionable},
		{"lawyer on submitted case", model.RoleLawyer, model.Case{Status: model.CaseStatusSubmitted}, ReadOnly},
		{"lawyer on other's case", model.RoleLawyer, model.Case{Status: model.CaseStatusUnderReview, AssignedTo: ptr(other)}, NoAccess},
		{"notary on unassigned reviewed case", model.RoleNotary, model.Case{Status: model.CaseStatusApproved}, NoAccess},
		{"assistant assigned and submitted", model.RoleRegistrarAssistant, model.Case{Status: model.CaseStatusSubmitted, AssignedTo: ptr(me)}, Actionable},
		{"citizen", model.RoleCitizen, model.Case{Status: model.CaseStatusSubmitted}, NoAccess},
		{"unknown role", model.Role("janitor"), model.Case{Status: model.CaseStatusSubmitted}, NoAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := model.Actor{UserID: me, Role: tt.role}
			assert.Equal(t, tt.want, ForCase(actor, &tt.c))
		})
	}
}

func TestForCase_NilCase(t *testing.T) {
	assert.Equal(t, NoAccess, ForCase(model.Actor{UserID: "x", Role: model.RoleSupervisor}, nil))
}

func TestForCase_EmptyActorIDNeverMatchesAssignment(t *testing.T) {
	c := &model.Case{Status: model.CaseStatusUnderReview, AssignedTo: ptr("")}
	assert.Equal(t, NoAccess, ForCase(model.Actor{Role: model.RoleLawyer}, c))
}

func TestAccessHelpers(t *testing.T) {
	assert.False(t, NoAccess.CanRead())
	assert.True(t, ReadOnly.CanRead())
	assert.False(t, ReadOnly.CanAct())
	assert.True(t, Actionable.CanAct())
	assert.Equal(t, "read-only", ReadOnly.String())
}

func TestListFilter(t *testing.T) {
	assert.Equal(t, Filter{MatchAll: true}, ListFilter(model.Actor{UserID: "a", Role: model.RoleRegistrar}))
	assert.Equal(t, Filter{MatchAll: true}, ListFilter(model.Actor{UserID: "a", Role: model.RoleSupervisor}))
	assert.Equal(t, Filter{MatchNone: true}, ListFilter(model.Actor{UserID: "a", Role: model.RoleCitizen}))
	assert.Equal(t,
		Filter{AssignedTo: "a", Status: model.CaseStatusSubmitted},
		ListFilter(model.Actor{UserID: "a", Role: model.RoleBailiff}))
}

// The list predicate and the per-case rule must agree: a restricted role lists
// exactly the cases it can read.
func TestListFilterAgreesWithForCase(t *testing.T) {
	const me = "user-me"
	assignees := []*string{nil, ptr(me), ptr("someone-else")}

	for _, role := range append(restrictedRoles, model.RoleRegistrar, model.RoleSupervisor, model.RoleCitizen) {
		actor := model.Actor{UserID: me, Role: role}
		f := ListFilter(actor)
		for _, st := range allStatuses {
			for _, a := range assignees {
				c := &model.Case{Status: st, AssignedTo: a}
				assert.Equal(t, ForCase(actor, c).CanRead(), f.Matches(c), "role=%s status=%s", role, st)
			}
		}
	}
}

func TestRestrictedRolesNeverListForeignNonSubmitted(t *testing.T) {
	for _, role := range restrictedRoles {
		f := ListFilter(model.Actor{UserID: "me", Role: role})
		for _, st := range allStatuses {
			if st == model.CaseStatusSubmitted {
				continue
			}
			assert.False(t, f.Matches(&model.Case{Status: st, AssignedTo: ptr("other")}), "role=%s status=%s", role, st)
			assert.False(t, f.Matches(&model.Case{Status: st}), "role=%s status=%s", role, st)
		}
	}
}

func TestCanListAssignableUsers(t *testing.T) {
	assert.True(t, CanListAssignableUsers(model.RoleRegistrar))
	assert.True(t, CanListAssignableUsers(model.RoleSupervisor))
	for _, r := range append(restrictedRoles, model.RoleCitizen) {
		assert.False(t, CanListAssignableUsers(r), r)
	}
}

func TestTracksOwnAssignments(t *testing.T) {
	assert.False(t, TracksOwnAssignments(model.RoleSupervisor))
	assert.True(t, TracksOwnAssignments(model.RoleRegistrar))
	assert.True(t, TracksOwnAssignments(model.RoleLawyer))
}
