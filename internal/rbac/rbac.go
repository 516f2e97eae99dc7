// Package rbac defines the two-role permission model: every signed-in user
// reports and votes; admins additionally tune the archive threshold and
// hard-delete tags.
package rbac

type Role string
type Action string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionReport Action = "report"
	ActionVote   Action = "vote"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return action == ActionRead || action == ActionReport || action == ActionVote
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}
