package rbac

import (
	"fmt"
)

// actionSet is a bitmask over the four CRUD actions.
type actionSet uint8

const (
	bitRead actionSet = 1 << iota
	bitCreate
	bitUpdate
	bitDelete
)

func actionBit(a Action) actionSet {
	switch a {
	case ActionRead:
		return bitRead
	case ActionCreate:
		return bitCreate
	case ActionUpdate:
		return bitUpdate
	case ActionDelete:
		return bitDelete
	}
	return 0
}

func (s actionSet) has(a Action) bool {
	bit := actionBit(a)
	return bit != 0 && s&bit == bit
}

func (s actionSet) actions() []Action {
	out := make([]Action, 0, 4)
	for _, a := range allActions {
		if s.has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Grants is the literal form of a permission table.
type Grants map[Role]map[Resource][]Action

// Table is the immutable role → resource → actions mapping.
// A nil *Table denies everything.
type Table struct {
	entries map[Role]map[Resource]actionSet
}

// NewTable validates grants and freezes them into a Table.
func NewTable(grants Grants) (*Table, error) {
	entries := make(map[Role]map[Resource]actionSet, len(grants))
	for role, resources := range grants {
		if !role.Valid() {
			return nil, fmt.Errorf("rbac: table: unknown role %q", role)
		}
		row := make(map[Resource]actionSet, len(resources))
		for resource, actions := range resources {
			if !resource.Valid() {
				return nil, fmt.Errorf("rbac: table: role %q: unknown resource %q", role, resource)
			}
			var set actionSet
			for _, a := range actions {
				bit := actionBit(a)
				if bit == 0 {
					return nil, fmt.Errorf("rbac: table: role %q resource %q: unknown action %q", role, resource, a)
				}
				set |= bit
			}
			if set != 0 {
				row[resource] = set
			}
		}
		entries[role] = row
	}
	return &Table{entries: entries}, nil
}

// MustNewTable is NewTable that panics on invalid grants.
func MustNewTable(grants Grants) *Table {
	t, err := NewTable(grants)
	if err != nil {
		panic(err)
	}
	return t
}

// IsAllowed reports whether role may perform action on resource.
func (t *Table) IsAllowed(role Role, resource Resource, action Action) bool {
	if t == nil {
		return false
	}
	row, ok := t.entries[role]
	if !ok {
		return false
	}
	return row[resource].has(action)
}

// Grants returns a copy of the resource → actions map for role.
func (t *Table) Grants(role Role) map[Resource][]Action {
	out := make(map[Resource][]Action)
	if t == nil {
		return out
	}
	for _, resource := range allResources {
		if set, ok := t.entries[role][resource]; ok {
			out[resource] = set.actions()
		}
	}
	return out
}

// All returns a copy of the complete table.
func (t *Table) All() Grants {
	out := make(Grants, len(allRoles))
	if t == nil {
		return out
	}
	for _, role := range allRoles {
		if _, ok := t.entries[role]; ok {
			out[role] = t.Grants(role)
		}
	}
	return out
}

var crud = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// DefaultGrants returns the shop's standard permission table.
func DefaultGrants() Grants {
	admin := make(map[Resource][]Action, len(allResources))
	for _, resource := range allResources {
		admin[resource] = crud
	}
	return Grants{
		RoleAdmin: admin,
		RoleInventoryManager: {
			ResourceProducts:       crud,
			ResourceInventory:      crud,
			ResourceSuppliers:      crud,
			ResourcePurchaseOrders: crud,
			ResourceReports:        {ActionRead},
			ResourceNotifications:  {ActionRead},
		},
		RoleSalesExecutive: {
			ResourceCustomers:      {ActionRead, ActionCreate, ActionUpdate},
			ResourceOrders:         {ActionRead, ActionCreate, ActionUpdate},
			ResourceProducts:       {ActionRead},
			ResourceInventory:      {ActionRead},
			ResourceCommunications: {ActionRead, ActionCreate},
			ResourceFeedbacks:      {ActionRead, ActionCreate},
			ResourceReports:        {ActionRead},
			ResourceNotifications:  {ActionRead},
		},
		RoleHRManager: {
			ResourceEmployees:     crud,
			ResourceAttendance:    crud,
			ResourceLeaves:        crud,
			ResourceTasks:         crud,
			ResourceReports:       {ActionRead},
			ResourceNotifications: {ActionRead},
		},
		RoleServiceStaff: {
			ResourceCustomers:     {ActionRead},
			ResourceOrders:        {ActionRead, ActionUpdate},
			ResourceProducts:      {ActionRead},
			ResourceInventory:     {ActionRead},
			ResourceTasks:         {ActionRead, ActionUpdate},
			ResourceAttendance:    {ActionRead, ActionCreate},
			ResourceLeaves:        {ActionRead, ActionCreate},
			ResourceNotifications: {ActionRead},
		},
	}
}

// DefaultTable builds the standard table.
func DefaultTable() *Table {
	return MustNewTable(DefaultGrants())
}
