package model

import "strings"

// Department names an operational queue.  Housekeeping and maintenance
// requests share one queue.
type Department string

const (
	DepartmentKitchen      Department = "kitchen"
	DepartmentRoomService  Department = "room-service"
	DepartmentSecurity     Department = "security"
	DepartmentHousekeeping Department = "housekeeping"
	DepartmentOther        Department = "other"
)

// ParseDepartment accepts a queue name from a route.  "maintenance" is an
// alias of the shared housekeeping queue.
func ParseDepartment(s string) (Department, bool) {
	switch Department(strings.ToLower(strings.TrimSpace(s))) {
	case DepartmentKitchen:
		return DepartmentKitchen, true
	case DepartmentRoomService:
		return DepartmentRoomService, true
	case DepartmentSecurity:
		return DepartmentSecurity, true
	case DepartmentHousekeeping, Department(OrderTypeMaintenance):
		return DepartmentHousekeeping, true
	case DepartmentOther:
		return DepartmentOther, true
	}
	return "", false
}

// DepartmentFor maps an order type onto its queue.
func DepartmentFor(t OrderType) Department {
	switch t {
	case OrderTypeKitchen:
		return DepartmentKitchen
	case OrderTypeRoomService:
		return DepartmentRoomService
	case OrderTypeSecurity:
		return DepartmentSecurity
	case OrderTypeHousekeeping, OrderTypeMaintenance:
		return DepartmentHousekeeping
	}
	return DepartmentOther
}

// Routing decides queue membership at read time.  OrderType is the only
// authoritative key; LegacyServiceText additionally surfaces any order whose
// serviceType mentions "security" in the security queue, as older
// dashboards did.
type Routing struct {
	LegacyServiceText bool
}

// Belongs reports whether o is shown in department d.
func (r Routing) Belongs(o *GuestOrder, d Department) bool {
	if DepartmentFor(o.OrderType) == d {
		return true
	}
	return r.LegacyServiceText && d == DepartmentSecurity &&
		strings.Contains(strings.ToLower(o.ServiceType), "security")
}
