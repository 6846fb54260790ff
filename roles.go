package shield

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleKitchen:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleCashier,
		RoleKitchen,
	}
}

// RoleAllowed reports whether role appears in the allow list. An empty
// allow list admits every valid role, mirroring the client route guard's
// default.
func RoleAllowed(role UserRole, allowed []UserRole) bool {
	if !IsValidRole(role) {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
