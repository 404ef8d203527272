package tests

import (
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/tests"
)

func adminPortal(t *testing.T) *portal {
	p := newPortal(t)
	p.signIn(admin)
	return p
}

// fakeUsers scripts a users collection on p's backend that mutations really change.
type fakeUsers struct {
	mu    sync.Mutex
	users []school.User
}

func (f *fakeUsers) list() []school.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]school.User(nil), f.users...)
}

func scriptUsers(p *portal, users ...school.User) *fakeUsers {
	f := &fakeUsers{users: users}
	p.api.Handle(http.MethodGet, "/users", func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, f.list())
	})
	return f
}

func TestAdminHome(t *testing.T) {
	p := adminPortal(t)
	p.api.JSON(http.MethodGet, "/admin/homepage", http.StatusOK, school.AdminStats{
		TotalUsers: 12, TotalSubjects: 4, TotalGroups: 3, UsersByRole: []int{2, 10},
	})

	rec := p.get("/dashE")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<th>Professors</th><td>10</td>")
	assert.Contains(t, body, "<th>Administrators</th><td>2</td>")
	assert.Contains(t, body, `href="/dashE/logs"`)
}

func TestUsers(t *testing.T) {
	t.Run("list and edit form", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin, professor)

		rec := p.get("/dashE/users?edit=7")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "ana@school.edu")
		assert.Contains(t, body, `action="/dashE/users/7"`)
		assert.Contains(t, body, `value="Ana Ruiz"`)
		assert.NotContains(t, body, `href="/dashE/users/1/delete"`, "admins cannot delete themselves")
	})

	t.Run("create", func(t *testing.T) {
		p := adminPortal(t)
		f := scriptUsers(p, admin)
		p.api.Handle(http.MethodPost, "/users/register", func(w http.ResponseWriter, _ *http.Request) {
			f.mu.Lock()
			f.users = append(f.users, school.User{ID: 9, Name: "Luis", Email: "luis@school.edu", Role: "professor"})
			f.mu.Unlock()
			testutil.WriteJSON(w, http.StatusCreated, map[string]string{"message": "created"})
		})

		rec := p.post("/dashE/users", url.Values{
			"name": {" Luis "}, "email": {"LUIS@school.edu"}, "role": {"professor"}, "password": {"secret1"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "User created")
		assert.Contains(t, body, "luis@school.edu")

		reqs := p.api.Requests(http.MethodPost, "/users/register")
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"name":"Luis","email":"luis@school.edu","role":"professor","password":"secret1"}`, string(reqs[0].Body))
		assert.Equal(t, 1, p.api.Calls(http.MethodGet, "/users"), "the list is fetched once, after the mutation")
	})

	t.Run("create invalid", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin)

		rec := p.post("/dashE/users", url.Values{
			"name": {"Luis"}, "email": {"luis"}, "role": {"janitor"}, "password": {"123"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "enter a valid email address")
		assert.Contains(t, body, "role must be either admin or professor")
		assert.Contains(t, body, `value="Luis"`, "the form keeps its input")
		assert.Zero(t, p.api.Calls(http.MethodPost, "/users/register"))
	})

	t.Run("create rejected by the backend", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin)
		p.api.JSON(http.MethodPost, "/users/register", http.StatusConflict, map[string]string{"message": "email already exists"})

		rec := p.post("/dashE/users", url.Values{
			"name": {"Luis"}, "email": {"luis@school.edu"}, "role": {"professor"}, "password": {"secret1"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Could not create user: email already exists")
		assert.Contains(t, body, `value="luis@school.edu"`)
	})

	t.Run("update", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin, professor)
		p.api.JSON(http.MethodPut, "/users/7", http.StatusOK, map[string]string{"message": "ok"})

		rec := p.post("/dashE/users/7", url.Values{"name": {"Ana R."}, "email": {"ana@school.edu"}, "role": {"admin"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "User updated")

		reqs := p.api.Requests(http.MethodPut, "/users/7")
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"name":"Ana R.","email":"ana@school.edu","role":"admin"}`, string(reqs[0].Body))
	})

	t.Run("delete asks for confirmation", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin, professor)

		rec := p.get("/dashE/users/7/delete")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Delete the user Ana Ruiz (ana@school.edu)?")
		assert.Contains(t, body, `action="/dashE/users/7/delete"`)
		assert.Zero(t, p.api.Calls(http.MethodDelete, "/users/7"))

		assert.Equal(t, http.StatusNotFound, p.get("/dashE/users/99/delete").Code)
	})

	t.Run("delete", func(t *testing.T) {
		p := adminPortal(t)
		f := scriptUsers(p, admin, professor)
		p.api.Handle(http.MethodDelete, "/users/7", func(w http.ResponseWriter, _ *http.Request) {
			f.mu.Lock()
			f.users = f.users[:1]
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		})

		rec := p.post("/dashE/users/7/delete", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "User deleted")
		assert.NotContains(t, body, "ana@school.edu")
	})

	t.Run("delete self", func(t *testing.T) {
		p := adminPortal(t)
		scriptUsers(p, admin)

		rec := p.post("/dashE/users/1/delete", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "You cannot delete your own account")
		assert.Zero(t, p.api.Calls(http.MethodDelete, "/users/1"))
	})
}

func TestLogs(t *testing.T) {
	p := adminPortal(t)
	p.api.JSON(http.MethodGet, "/users/logs/error.log", http.StatusOK, map[string]string{"content": "boom <script>"})

	rec := p.get("/dashE/logs?file=error.log")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom &lt;script&gt;")

	rec = p.get("/dashE/logs?file=..%2F..%2Fetc%2Fpasswd")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, p.api.Calls(http.MethodGet, "/users/logs/error.log"))
}

func TestSubjectsGroups(t *testing.T) {
	catalogs := func(p *portal) {
		p.api.JSON(http.MethodGet, "/groups", http.StatusOK, []school.Group{{ID: 3, Name: "3A"}})
		p.api.JSON(http.MethodGet, "/subjects", http.StatusOK, []school.Subject{{ID: 5, Name: "Math"}})
	}

	t.Run("list", func(t *testing.T) {
		p := adminPortal(t)
		catalogs(p)

		rec := p.get("/dashE/subjects-groups?edit=subjects&id=5")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "3A")
		assert.Contains(t, body, `action="/dashE/subjects-groups/subjects/5"`)
		assert.Contains(t, body, `value="Math"`)
	})

	t.Run("create", func(t *testing.T) {
		p := adminPortal(t)
		catalogs(p)
		p.api.JSON(http.MethodPost, "/groups", http.StatusCreated, school.Group{ID: 4, Name: "4B"})

		rec := p.post("/dashE/subjects-groups/groups", url.Values{"name": {" 4B "}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Group created")

		reqs := p.api.Requests(http.MethodPost, "/groups")
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"name":"4B"}`, string(reqs[0].Body))
	})

	t.Run("rename", func(t *testing.T) {
		p := adminPortal(t)
		catalogs(p)
		p.api.JSON(http.MethodPatch, "/subjects/5", http.StatusOK, school.Subject{ID: 5, Name: "Algebra"})

		rec := p.post("/dashE/subjects-groups/subjects/5", url.Values{"name": {"Algebra"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Subject updated")
		assert.Equal(t, 1, p.api.Calls(http.MethodPatch, "/subjects/5"))
	})

	t.Run("empty name", func(t *testing.T) {
		p := adminPortal(t)
		catalogs(p)

		rec := p.post("/dashE/subjects-groups/groups", url.Values{"name": {"  "}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "this field is required")
		assert.Zero(t, p.api.Calls(http.MethodPost, "/groups"))
	})

	t.Run("delete", func(t *testing.T) {
		p := adminPortal(t)
		catalogs(p)
		p.api.JSON(http.MethodDelete, "/groups/3", http.StatusOK, map[string]string{"message": "deleted"})

		rec := p.get("/dashE/subjects-groups/groups/3/delete")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Delete &#34;3A&#34;?")

		rec = p.post("/dashE/subjects-groups/groups/3/delete", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Group deleted")
		assert.Equal(t, 1, p.api.Calls(http.MethodDelete, "/groups/3"))
	})

	t.Run("unknown kind", func(t *testing.T) {
		p := adminPortal(t)

		rec := p.post("/dashE/subjects-groups/teachers", url.Values{"name": {"x"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
