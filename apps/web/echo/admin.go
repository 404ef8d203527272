package echoweb

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/school"
)

type (
	roleCount struct {
		Label string
		Count int
	}

	adminHomeView struct {
		Stats  school.AdminStats
		ByRole []roleCount
	}

	// userForm backs both the create and the edit form; ID is zero when creating.
	userForm struct {
		ID    int
		Name  string
		Email string
		Role  string
	}

	usersView struct {
		Users  []school.User
		Roles  []string
		Form   userForm
		Errors map[string]string
	}

	logsView struct {
		Files   []string
		File    string
		Content string
	}

	// confirmView is the confirmation step of a destructive action.
	confirmView struct {
		Message string
		Action  string
		Cancel  string
		Hidden  map[string]string
	}
)

func (s *Server) registerAdminRoutes(g *echo.Group) {
	g.GET("", s.adminHome)

	g.GET("/users", s.usersPage)
	g.POST("/users", s.userCreate)
	g.POST("/users/:id", s.userUpdate)
	g.GET("/users/:id/delete", s.userDeleteConfirm)
	g.POST("/users/:id/delete", s.userDelete)

	g.GET("/logs", s.logsPage)
}

func (s *Server) adminHome(ctx echo.Context) error {
	stats, err := s.client(ctx).AdminStats(ctx.Request().Context())
	var notices []resource.Notice
	if err != nil {
		n, err := noticeFor(err, "Could not load the statistics")
		if err != nil {
			return err
		}
		notices = append(notices, n)
	}

	view := adminHomeView{Stats: stats}
	for i, label := range []string{"Administrators", "Professors"} {
		rc := roleCount{Label: label}
		if i < len(stats.UsersByRole) {
			rc.Count = stats.UsersByRole[i]
		}
		view.ByRole = append(view.ByRole, rc)
	}
	return s.render(ctx, http.StatusOK, "admin_home", "Administration", view, notices...)
}

func (s *Server) users(ctx echo.Context) *resource.Collection[school.User] {
	return resource.NewCollection[school.User](s.client(ctx), "User", resource.Endpoints{
		List:   "/users",
		Create: "/users/register",
		Item:   "/users",
	})
}

// showUsers renders the users page with items, listing them first when items is nil.
func (s *Server) showUsers(ctx echo.Context, code int, items []school.User, view usersView, notices ...resource.Notice) error {
	if items == nil {
		var err error
		if items, err = s.users(ctx).List(ctx.Request().Context()); err != nil {
			n, err := noticeFor(err, "Could not load the users")
			if err != nil {
				return err
			}
			notices = append(notices, n)
		}
	}
	view.Users = items
	view.Roles = []string{school.RoleAdmin, school.RoleProfessor}
	if view.Form.Role == "" {
		view.Form.Role = school.RoleProfessor
	}
	return s.render(ctx, code, "users", "Users", view, notices...)
}

func (s *Server) usersPage(ctx echo.Context) error {
	items, err := s.users(ctx).List(ctx.Request().Context())
	if err != nil {
		n, err := noticeFor(err, "Could not load the users")
		if err != nil {
			return err
		}
		return s.showUsers(ctx, http.StatusOK, []school.User{}, usersView{}, n)
	}

	var view usersView
	if editID, _ := strconv.Atoi(ctx.QueryParam("edit")); editID > 0 {
		for _, u := range items {
			if u.ID == editID {
				view.Form = userForm{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
			}
		}
	}
	return s.showUsers(ctx, http.StatusOK, items, view)
}

func (s *Server) userCreate(ctx echo.Context) error {
	data := new(school.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	view := usersView{Form: userForm{Name: data.Name, Email: data.Email, Role: data.Role}}
	if err := data.Validate(s.validate); err != nil {
		return s.userFormInvalid(ctx, view, err)
	}

	out, err := s.users(ctx).Create(ctx.Request().Context(), data)
	return s.userOutcome(ctx, out, err, view)
}

func (s *Server) userUpdate(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	data := new(school.UpdateUser)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	view := usersView{Form: userForm{ID: id, Name: data.Name, Email: data.Email, Role: data.Role}}
	if err = data.Validate(s.validate); err != nil {
		return s.userFormInvalid(ctx, view, err)
	}

	out, err := s.users(ctx).Update(ctx.Request().Context(), id, data)
	return s.userOutcome(ctx, out, err, view)
}

func (s *Server) userDeleteConfirm(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	items, err := s.users(ctx).List(ctx.Request().Context())
	if err != nil {
		return err
	}
	for _, u := range items {
		if u.ID == id {
			return s.render(ctx, http.StatusOK, "confirm", "Delete user", confirmView{
				Message: fmt.Sprintf("Delete the user %s (%s)? This cannot be undone.", u.Name, u.Email),
				Action:  fmt.Sprintf("/dashE/users/%d/delete", id),
				Cancel:  "/dashE/users",
			})
		}
	}
	return errHttpNotFound
}

func (s *Server) userDelete(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	if usr.ID == id {
		return s.showUsers(ctx, http.StatusBadRequest, nil, usersView{}, resource.Failure("You cannot delete your own account"))
	}

	out, err := s.users(ctx).Delete(ctx.Request().Context(), id)
	return s.userOutcome(ctx, out, err, usersView{})
}

func (s *Server) userFormInvalid(ctx echo.Context, view usersView, err error) error {
	vErr, ok := core.ValidationErrorFrom(err, s.translator).(*core.ValidationError)
	if !ok {
		return err
	}
	view.Errors = vErr.FieldMap()
	return s.showUsers(ctx, http.StatusBadRequest, nil, view, resource.Failure("Please correct the highlighted fields"))
}

// userOutcome renders the re-fetched users after a mutation. The form keeps its input on failure.
func (s *Server) userOutcome(ctx echo.Context, out resource.Outcome[school.User], err error, view usersView) error {
	if err != nil {
		if _, err := noticeFor(err, ""); err != nil {
			return err
		}
		return s.showUsers(ctx, http.StatusOK, out.Items, view, out.Notice)
	}
	return s.showUsers(ctx, http.StatusOK, out.Items, usersView{}, out.Notice)
}

func (s *Server) logsPage(ctx echo.Context) error {
	view := logsView{Files: school.LogFiles, File: ctx.QueryParam("file")}
	if view.File == "" {
		return s.render(ctx, http.StatusOK, "logs", "Logs", view)
	}
	if !school.IsLogFile(view.File) {
		view.File = ""
		return s.render(ctx, http.StatusBadRequest, "logs", "Logs", view, resource.Failure("Unknown log file"))
	}

	content, err := s.client(ctx).Log(ctx.Request().Context(), view.File)
	if err != nil {
		n, err := noticeFor(err, "Could not load "+view.File)
		if err != nil {
			return err
		}
		return s.render(ctx, http.StatusOK, "logs", "Logs", view, n)
	}
	view.Content = content
	return s.render(ctx, http.StatusOK, "logs", "Logs", view)
}
