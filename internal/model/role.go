package model

// Role is the fixed set of principal roles.
type Role string

const (
	RoleCitizen            Role = "citizen"
	RoleRegistrar          Role = "registrar"
	RoleRegistrarAssistant Role = "registrar_assistant"
	RoleLawyer             Role = "lawyer"
	RoleNotary             Role = "notary"
	RoleBailiff            Role = "bailiff"
	RoleSupervisor         Role = "supervisor"
)

// Roles lists every known role.
var Roles = []Role{
	RoleCitizen,
	RoleRegistrar,
	RoleRegistrarAssistant,
	RoleLawyer,
	RoleNotary,
	RoleBailiff,
	RoleSupervisor,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether r is a back-office role.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleCitizen
}
