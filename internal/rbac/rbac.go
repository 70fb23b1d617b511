package rbac

type Role string
type Action string

const (
	RoleSuperadmin   Role = "superadmin"
	RoleAdmin        Role = "admin"
	RoleOrganization Role = "organization"
	RoleStudent      Role = "student"
)

const (
	// ActionUseTemplates covers viewing role-gated templates and
	// instantiating documents from them.
	ActionUseTemplates Action = "use_templates"
	// ActionManageTemplates covers template create/update/soft-delete.
	ActionManageTemplates Action = "manage_templates"
	// ActionManageUsers covers provisioning organization/student accounts.
	ActionManageUsers Action = "manage_users"
	// ActionManageAdmins covers admin account and organization lifecycle.
	ActionManageAdmins Action = "manage_admins"
	// ActionReviewRemovals covers approving/rejecting removal requests.
	ActionReviewRemovals Action = "review_removals"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleSuperadmin:
		return action == ActionManageAdmins || action == ActionReviewRemovals
	case RoleAdmin:
		return action == ActionManageTemplates || action == ActionManageUsers || action == ActionReviewRemovals
	case RoleOrganization, RoleStudent:
		return action == ActionUseTemplates
	default:
		return false
	}
}

// Valid reports whether the string names one of the closed roles.
func Valid(role string) bool {
	switch Role(role) {
	case RoleSuperadmin, RoleAdmin, RoleOrganization, RoleStudent:
		return true
	default:
		return false
	}
}

// RequiredRoleValid reports whether a template's requiredRole value is
// allowed: only the two end-user roles gate template visibility.
func RequiredRoleValid(role string) bool {
	return Role(role) == RoleOrganization || Role(role) == RoleStudent
}
