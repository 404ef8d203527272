package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/services/backend"
	"github.com/trezcool/cace/storage/session/inmem"
	"github.com/trezcool/cace/tests"
)

// groupsBackend scripts an in-memory /groups collection on fake.
func groupsBackend(fake *testutil.FakeBackend) {
	var mu sync.Mutex
	groups := []school.Group{{ID: 1, Name: "1A"}}
	nextID := 2

	fake.Handle(http.MethodGet, "/groups", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		testutil.WriteJSON(w, http.StatusOK, groups)
	})
	fake.Handle(http.MethodPost, "/groups", func(w http.ResponseWriter, r *http.Request) {
		var form school.NameForm
		_ = json.NewDecoder(r.Body).Decode(&form)
		if form.Name == "" {
			testutil.WriteJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
			return
		}
		mu.Lock()
		defer mu.Unlock()
		groups = append(groups, school.Group{ID: nextID, Name: form.Name})
		nextID++
		testutil.WriteJSON(w, http.StatusCreated, groups[len(groups)-1])
	})
	fake.Handle(http.MethodPatch, "/groups/1", func(w http.ResponseWriter, r *http.Request) {
		var form school.NameForm
		_ = json.NewDecoder(r.Body).Decode(&form)
		mu.Lock()
		defer mu.Unlock()
		groups[0].Name = form.Name
		testutil.WriteJSON(w, http.StatusOK, groups[0])
	})
	fake.Handle(http.MethodDelete, "/groups/1", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		groups = groups[1:]
		w.WriteHeader(http.StatusNoContent)
	})
}

func setup(t *testing.T) (*testutil.FakeBackend, *Collection[school.Group]) {
	fake := testutil.NewFakeBackend(t)
	factory, err := backend.NewFactory(backend.Options{BaseURL: fake.URL})
	require.NoError(t, err)
	client := factory.Client(session.NewSlot(inmem.New(0), session.NewID()), nil)
	return fake, NewCollection[school.Group](client, "Group", Endpoints{List: "/groups"})
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	fake, groups := setup(t)
	groupsBackend(fake)

	items, err := groups.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []school.Group{{ID: 1, Name: "1A"}}, items)

	t.Run("create re-fetches", func(t *testing.T) {
		out, err := groups.Create(ctx, school.NameForm{Name: "1B"})
		require.NoError(t, err)
		assert.Equal(t, Success("Group created"), out.Notice)
		assert.Equal(t, []school.Group{{ID: 1, Name: "1A"}, {ID: 2, Name: "1B"}}, out.Items)
	})

	t.Run("failed create surfaces the backend message", func(t *testing.T) {
		before := fake.Calls(http.MethodGet, "/groups")

		out, err := groups.Create(ctx, school.NameForm{})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, backend.StatusCode(err))
		assert.True(t, out.Notice.IsError())
		assert.Equal(t, "Could not create group: name is required", out.Notice.Message)
		assert.Nil(t, out.Items)
		assert.Equal(t, before, fake.Calls(http.MethodGet, "/groups"), "no refresh after a failure")
	})

	t.Run("patch re-fetches", func(t *testing.T) {
		out, err := groups.Patch(ctx, 1, school.NameForm{Name: "1A-bis"})
		require.NoError(t, err)
		assert.Equal(t, "1A-bis", out.Items[0].Name)
	})

	t.Run("delete re-fetches", func(t *testing.T) {
		out, err := groups.Delete(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, Success("Group deleted"), out.Notice)
		assert.Equal(t, []school.Group{{ID: 2, Name: "1B"}}, out.Items)
	})

	t.Run("failure without message", func(t *testing.T) {
		out, err := groups.Delete(ctx, 99)
		require.Error(t, err)
		assert.Equal(t, "Could not delete group: not found", out.Notice.Message)

		fake.JSON(http.MethodPut, "/groups/2", http.StatusInternalServerError, nil)
		out, err = groups.Update(ctx, 2, school.NameForm{Name: "x"})
		require.Error(t, err)
		assert.Equal(t, "Could not update group (500 Internal Server Error)", out.Notice.Message)
	})
}

func TestCollection_endpoints(t *testing.T) {
	ctx := context.Background()
	fake, _ := setup(t)
	factory, err := backend.NewFactory(backend.Options{BaseURL: fake.URL})
	require.NoError(t, err)
	client := factory.Client(nil, nil)

	fake.JSON(http.MethodGet, "/assignments/user/4", http.StatusOK, []school.Assignment{{ID: 8, UserID: 4}})
	fake.JSON(http.MethodPost, "/assignments", http.StatusCreated, nil)
	fake.JSON(http.MethodDelete, "/assignments/8", http.StatusOK, nil)

	assignments := NewCollection[school.Assignment](client, "Assignment", Endpoints{
		List:   "/assignments/user/4",
		Create: "/assignments",
		Item:   "/assignments",
	})

	out, err := assignments.Create(ctx, school.NewAssignment{UserID: 4, GroupID: 1, SubjectID: 2})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)

	_, err = assignments.Delete(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(http.MethodGet, "/assignments/user/4"))
}

func TestFailureFrom(t *testing.T) {
	assert.Equal(t, Failure("Connection error"), FailureFrom(context.DeadlineExceeded, "Connection error"))
}
