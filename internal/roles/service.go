package roles

import "github.com/autoshop-erp/autoshop/internal/rbac"

// Service reports on the closed role set.
type Service struct {
	table *rbac.Table
}

// NewService builds Service instance.
func NewService(table *rbac.Table) *Service {
	return &Service{table: table}
}

// ListRoles returns every known role in declaration order.
func (s *Service) ListRoles() []RoleSummary {
	roles := rbac.Roles()
	out := make([]RoleSummary, 0, len(roles))
	for _, role := range roles {
		grants := s.table.Grants(role)
		count := 0
		for _, actions := range grants {
			count += len(actions)
		}
		out = append(out, RoleSummary{Name: role, Resources: len(grants), PermissionCount: count, Permissions: grants})
	}
	return out
}
