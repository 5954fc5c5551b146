package roles

import "github.com/autoshop-erp/autoshop/internal/rbac"

// RoleSummary describes a role and the size of its grant.
type RoleSummary struct {
	Name            rbac.Role                       `json:"name"`
	Resources       int                             `json:"resources"`
	PermissionCount int                             `json:"permission_count"`
	Permissions     map[rbac.Resource][]rbac.Action `json:"permissions"`
}
