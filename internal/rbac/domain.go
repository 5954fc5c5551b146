package rbac

import (
	"fmt"
	"strings"
)

// Role is the single capability tier assigned to an account.
type Role string

// Known roles. The set is closed; anything else fails ParseRole.
const (
	RoleAdmin            Role = "Admin"
	RoleInventoryManager Role = "Inventory Manager"
	RoleSalesExecutive   Role = "Sales Executive"
	RoleHRManager        Role = "HR Manager"
	RoleServiceStaff     Role = "Service Staff"
)

// Resource names a business entity category subject to access control.
type Resource string

const (
	ResourceProducts       Resource = "products"
	ResourceCustomers      Resource = "customers"
	ResourceEmployees      Resource = "employees"
	ResourceOrders         Resource = "orders"
	ResourceInventory      Resource = "inventory"
	ResourceReports        Resource = "reports"
	ResourceUsers          Resource = "users"
	ResourceSuppliers      Resource = "suppliers"
	ResourcePurchaseOrders Resource = "purchaseOrders"
	ResourceAttendance     Resource = "attendance"
	ResourceLeaves         Resource = "leaves"
	ResourceTasks          Resource = "tasks"
	ResourceCommunications Resource = "communications"
	ResourceFeedbacks      Resource = "feedbacks"
	ResourceNotifications  Resource = "notifications"
)

// Action is one of the four CRUD verbs.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var (
	allRoles = []Role{
		RoleAdmin,
		RoleInventoryManager,
		RoleSalesExecutive,
		RoleHRManager,
		RoleServiceStaff,
	}
	allResources = []Resource{
		ResourceProducts,
		ResourceCustomers,
		ResourceEmployees,
		ResourceOrders,
		ResourceInventory,
		ResourceReports,
		ResourceUsers,
		ResourceSuppliers,
		ResourcePurchaseOrders,
		ResourceAttendance,
		ResourceLeaves,
		ResourceTasks,
		ResourceCommunications,
		ResourceFeedbacks,
		ResourceNotifications,
	}
	allActions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
)

// Roles lists every known role in declaration order.
func Roles() []Role {
	return append([]Role(nil), allRoles...)
}

// Resources lists every known resource in declaration order.
func Resources() []Resource {
	return append([]Resource(nil), allResources...)
}

// Actions lists every known action in declaration order.
func Actions() []Action {
	return append([]Action(nil), allActions...)
}

// ParseRole converts a raw role name into a Role.
func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(raw)
	for _, r := range allRoles {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown role %q", raw)
}

// ParseResource converts a raw resource name into a Resource.
func ParseResource(raw string) (Resource, error) {
	for _, r := range allResources {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown resource %q", raw)
}

// ParseAction converts a raw action name into an Action.
func ParseAction(raw string) (Action, error) {
	for _, a := range allActions {
		if string(a) == raw {
			return a, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown action %q", raw)
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Valid reports whether r belongs to the closed resource set.
func (r Resource) Valid() bool {
	_, err := ParseResource(string(r))
	return err == nil
}

// Valid reports whether a belongs to the closed action set.
func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Identity describes the authenticated actor attached to a request.
type Identity struct {
	UserID int64
	Role   Role
	Name   string
	Email  string
}

// IsSuperUser reports whether the identity holds the Admin role.
func (i *Identity) IsSuperUser() bool {
	return i != nil && i.Role == RoleAdmin
}
