package session

import "strings"

// Area is one of the two disjoint navigation subtrees.
type Area string

const (
	// AreaOrdinary is the root path and everything below it that is not admin.
	AreaOrdinary Area = "ordinary"
	// AreaAdmin is /admin and its descendants.
	AreaAdmin Area = "admin"
)

// AreaForPath returns the area a navigable path belongs to.
func AreaForPath(path string) Area {
	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		return AreaAdmin
	}
	return AreaOrdinary
}

// LoginPath is the login view of the area.
func (a Area) LoginPath() string {
	if a == AreaAdmin {
		return "/admin/login"
	}
	return "/login"
}

// HomePath is where a freshly authenticated user of the area lands.
func (a Area) HomePath() string {
	if a == AreaAdmin {
		return "/admin/dashboard"
	}
	return "/"
}

// ProbePath is the backend "who am I" endpoint used to probe the area.
func (a Area) ProbePath() string {
	if a == AreaAdmin {
		return "/admin/profile/view"
	}
	return "/profile/view"
}

// DefaultRole is the role assumed for identities authenticated through the
// area when the backend does not say otherwise.
func (a Area) DefaultRole() Role {
	if a == AreaAdmin {
		return RoleAdministrator
	}
	return RoleOrdinary
}

// Admits reports whether a session with the given role may view the area.
// The ordinary area admits every role; the admin area only administrators.
func (a Area) Admits(role Role) bool {
	if a == AreaAdmin {
		return role == RoleAdministrator
	}
	return true
}

// AreaOf returns the area a session belongs to.
func AreaOf(s *Session) Area {
	if s.IsAdmin() {
		return AreaAdmin
	}
	return AreaOrdinary
}
