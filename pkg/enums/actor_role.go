package enums

import "fmt"

// ActorRole identifies who is calling the API.
type ActorRole string

const (
	RoleMember   ActorRole = "member"
	RoleOperator ActorRole = "operator"
	RoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleMember,
	RoleOperator,
	RoleAdmin,
}

// IsValid reports whether the role is one of the canonical values.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
