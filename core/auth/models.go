package auth

import (
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/school"
)

type Role string

const (
	RoleAdmin     Role = school.RoleAdmin
	RoleProfessor Role = school.RoleProfessor
)

var errUnknownRole = errors.New("unknown role")

// ParseRole accepts only the roles the portal knows how to route.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleProfessor:
		return r, nil
	}
	return "", errors.Wrapf(errUnknownRole, "%q", s)
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleProfessor
}

// SessionUser is the verified identity behind a session.
type SessionUser struct {
	ID    int
	Name  string
	Email string
	Role  Role
}

func (u SessionUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// State is what the rest of the portal observes of a session.
// While Loading, User carries no meaning.
type State struct {
	Loading bool
	User    *SessionUser
}

func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// Navigation is a redirect the caller must perform. Replace asks for the target to
// replace the current history entry.
type Navigation struct {
	Path    string
	Replace bool
}

// routes
const (
	LoginPath          = "/"
	DashboardPath      = "/dashboard"
	AdminDashboardPath = "/dashE"
	adminAreaPrefix    = "/dashE"
)
