package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard(t *testing.T) {
	prof := &SessionUser{ID: 1, Name: "A", Email: "a@x.com", Role: RoleProfessor}
	adm := &SessionUser{ID: 2, Name: "B", Email: "b@x.com", Role: RoleAdmin}
	odd := &SessionUser{ID: 3, Name: "C", Email: "c@x.com", Role: "student"}

	toLogin := Navigation{Path: "/", Replace: true}
	toDashboard := Navigation{Path: "/dashboard", Replace: true}
	toAdmin := Navigation{Path: "/dashE", Replace: true}

	tests := []struct {
		name  string
		state State
		path  string
		want  Decision
	}{
		{name: "loading without user", state: State{Loading: true}, path: "/dashboard", want: Decision{Kind: Pending}},
		{name: "loading hides a stale user", state: State{Loading: true, User: adm}, path: "/dashE", want: Decision{Kind: Pending}},
		{name: "signed out", state: State{}, path: "/dashboard", want: Decision{Kind: Denied, Redirect: toLogin}},
		{name: "signed out admin area", state: State{}, path: "/dashE/users", want: Decision{Kind: Denied, Redirect: toLogin}},
		{name: "professor in admin area", state: State{User: prof}, path: "/dashE", want: Decision{Kind: Mismatch, Redirect: toDashboard}},
		{name: "professor deep in admin area", state: State{User: prof}, path: "/dashE/subjects-groups", want: Decision{Kind: Mismatch, Redirect: toDashboard}},
		{name: "admin in professor area", state: State{User: adm}, path: "/dashboard/grades", want: Decision{Kind: Mismatch, Redirect: toAdmin}},
		{name: "professor authorized", state: State{User: prof}, path: "/dashboard/attendance", want: Decision{Kind: Authorized}},
		{name: "admin authorized", state: State{User: adm}, path: "/dashE/users", want: Decision{Kind: Authorized}},
		{name: "unknown role fails closed", state: State{User: odd}, path: "/dashboard", want: Decision{Kind: Denied, Redirect: toLogin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Guard(tt.state, tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecisionKind_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "authorized", Authorized.String())
	assert.Equal(t, "unknown", DecisionKind(42).String())
}
