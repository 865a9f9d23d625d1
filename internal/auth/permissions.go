package auth

// Permission represents a named capability at the HMI.
type Permission string

// Permission constants.
const (
	// PermView reads alarms, logs, point tables and statistics.
	PermView Permission = "view"

	// PermPLCOperate writes boolean machine controls (start, reset, jog, cylinders).
	PermPLCOperate Permission = "plc:operate"

	// PermPLCConfigure writes machine parameters and axis velocities.
	PermPLCConfigure Permission = "plc:configure"

	// PermAdmin reads the audit trail.
	PermAdmin Permission = "admin"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleOperator: {
		PermView,
		PermPLCOperate,
	},
	RoleEngineer: {
		PermView,
		PermPLCOperate,
		PermPLCConfigure,
	},
	RoleAdmin: {
		PermView,
		PermPLCOperate,
		PermPLCConfigure,
		PermAdmin,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
