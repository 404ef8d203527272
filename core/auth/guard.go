package auth

import "strings"

type DecisionKind int

const (
	// Pending: the session is still being resolved; show the loading indicator only.
	Pending DecisionKind = iota
	// Denied: nobody is signed in; go to the login page.
	Denied
	// Mismatch: the user's role belongs to the other area; go to its dashboard.
	Mismatch
	// Authorized: render the page.
	Authorized
)

func (k DecisionKind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Denied:
		return "denied"
	case Mismatch:
		return "mismatch"
	case Authorized:
		return "authorized"
	}
	return "unknown"
}

type Decision struct {
	Kind     DecisionKind
	Redirect Navigation // set for Denied and Mismatch
}

// IsAdminArea reports whether path belongs to the administration area.
func IsAdminArea(path string) bool {
	return strings.HasPrefix(path, adminAreaPrefix)
}

// Guard decides what a session in state st gets when requesting a protected path.
// Admins live under the admin area and professors outside of it; a user with any other
// role is treated as signed out.
func Guard(st State, path string) Decision {
	if st.Loading {
		return Decision{Kind: Pending}
	}
	if st.User == nil || !st.User.Role.Valid() {
		return Decision{Kind: Denied, Redirect: Navigation{Path: LoginPath, Replace: true}}
	}

	admin := st.User.IsAdmin()
	switch {
	case IsAdminArea(path) && !admin:
		return Decision{Kind: Mismatch, Redirect: Navigation{Path: DashboardPath, Replace: true}}
	case !IsAdminArea(path) && admin:
		return Decision{Kind: Mismatch, Redirect: Navigation{Path: AdminDashboardPath, Replace: true}}
	}
	return Decision{Kind: Authorized}
}
