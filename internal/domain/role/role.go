// Package role defines the closed set of mission roles.
package role

// Role identifies which member of the mission hierarchy issues a generation call.
type Role string

const (
	RolePlanner     Role = "planner"
	RolePhaser      Role = "phaser"
	RoleImplementer Role = "implementer"
	RoleReviewer    Role = "reviewer"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePlanner, RolePhaser, RoleImplementer, RoleReviewer:
		return true
	default:
		return false
	}
}
