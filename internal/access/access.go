// Package access decides which shell routes a role may open.
//
// Roles are a closed set mapped to capability bits; routes declare the
// capability they need. Grant is pure and is re-evaluated on every
// navigation. A denied route always resolves to RouteHome so that a
// forbidden screen looks exactly like one that does not exist.
package access

import "strings"

// Role is the closed set of roles the backend hands out.
type Role int

const (
	// RoleViewer covers every role that is neither admin nor tecnico,
	// including the backend's "user" role and anything unrecognised.
	RoleViewer Role = iota
	RoleTecnico
	RoleAdmin
)

// ParseRole maps a backend role string to a Role. Unknown values map to
// RoleViewer, the least privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "tecnico":
		return RoleTecnico
	default:
		return RoleViewer
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTecnico:
		return "tecnico"
	default:
		return "viewer"
	}
}

// Capability is a bit set of things a role may do.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWriteProblems
	CapManageUsers
)

var roleCaps = map[Role]Capability{
	RoleViewer:  CapRead,
	RoleTecnico: CapRead | CapWriteProblems,
	RoleAdmin:   CapRead | CapWriteProblems | CapManageUsers,
}

// Has reports whether every bit of want is present in c.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Capabilities returns the capability set for r.
func (r Role) Capabilities() Capability { return roleCaps[r] }

// Route identifies a screen of the client shell.
type Route int

const (
	RouteHome Route = iota
	RouteProblemDetail
	RouteCreateProblem
	RouteEditProblem
	RouteUsers
	RouteCategories
	RouteTags
)

var routeNeeds = map[Route]Capability{
	RouteHome:          CapRead,
	RouteProblemDetail: CapRead,
	RouteCreateProblem: CapWriteProblems,
	RouteEditProblem:   CapWriteProblems,
	RouteUsers:         CapManageUsers,
	RouteCategories:    CapRead,
	RouteTags:          CapRead,
}

var routeNames = map[Route]string{
	RouteHome:          "home",
	RouteProblemDetail: "problem",
	RouteCreateProblem: "create-problem",
	RouteEditProblem:   "edit-problem",
	RouteUsers:         "users",
	RouteCategories:    "categories",
	RouteTags:          "tags",
}

func (r Route) String() string {
	if n, ok := routeNames[r]; ok {
		return n
	}
	return "unknown"
}

// Routes lists every route in display order.
func Routes() []Route {
	return []Route{RouteHome, RouteCreateProblem, RouteCategories, RouteTags, RouteUsers}
}

// Grant reports whether role may open route. Unknown routes are denied.
func Grant(route Route, role Role) bool {
	need, ok := routeNeeds[route]
	if !ok {
		return false
	}
	return role.Capabilities().Has(need)
}

// Resolve returns route when role may open it and RouteHome otherwise.
func Resolve(route Route, role Role) Route {
	if Grant(route, role) {
		return route
	}
	return RouteHome
}
