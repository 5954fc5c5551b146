package documents

import "github.com/autoshop-erp/autoshop/internal/rbac"

// Collection binds a URL path segment to the resource that guards it.
type Collection struct {
	Path     string
	Resource rbac.Resource
}

// NotificationsPath is the collection whose creations trigger a dispatch job.
const NotificationsPath = "notifications"

var collections = []Collection{
	{Path: "products", Resource: rbac.ResourceProducts},
	{Path: "customers", Resource: rbac.ResourceCustomers},
	{Path: "vehicles", Resource: rbac.ResourceCustomers},
	{Path: "employees", Resource: rbac.ResourceEmployees},
	{Path: "orders", Resource: rbac.ResourceOrders},
	{Path: "service-visits", Resource: rbac.ResourceOrders},
	{Path: "invoices", Resource: rbac.ResourceOrders},
	{Path: "inventory-transactions", Resource: rbac.ResourceInventory},
	{Path: "suppliers", Resource: rbac.ResourceSuppliers},
	{Path: "purchase-orders", Resource: rbac.ResourcePurchaseOrders},
	{Path: "attendance", Resource: rbac.ResourceAttendance},
	{Path: "leaves", Resource: rbac.ResourceLeaves},
	{Path: "tasks", Resource: rbac.ResourceTasks},
	{Path: "communications", Resource: rbac.ResourceCommunications},
	{Path: "feedbacks", Resource: rbac.ResourceFeedbacks},
	{Path: NotificationsPath, Resource: rbac.ResourceNotifications},
}

// Collections returns every routed collection in mount order.
func Collections() []Collection {
	out := make([]Collection, len(collections))
	copy(out, collections)
	return out
}
