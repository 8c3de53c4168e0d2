package rbac

type Role string
type Action string

const (
	RoleViewer    Role = "viewer"
	RoleCommenter Role = "commenter"
	RoleSuggester Role = "suggester"
	RoleEditor    Role = "editor"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionWrite   Action = "write"
	ActionApprove Action = "approve"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionComment || action == ActionWrite || action == ActionApprove
	case RoleSuggester:
		return action == ActionRead || action == ActionComment || action == ActionWrite
	case RoleCommenter:
		return action == ActionRead || action == ActionComment
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// TracksChanges reports whether the role's edits become suggestions.
// Roles that may approve edit the canonical document directly; roles
// that may write but not approve are tracked.
func TracksChanges(role Role) bool {
	return Can(role, ActionWrite) && !Can(role, ActionApprove)
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleCommenter, RoleSuggester, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
