package echoweb

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/school"
)

// catalog kinds, as they appear in the URL
const (
	kindGroups   = "groups"
	kindSubjects = "subjects"
)

type (
	catalogView struct {
		Kind   string
		Label  string
		Items  []school.Named
		EditID int
		Form   school.NameForm
		Error  string
	}

	subjectsGroupsView struct {
		Groups   catalogView
		Subjects catalogView
	}
)

func (s *Server) registerSubjectGroupRoutes(g *echo.Group) {
	g.GET("", s.subjectsGroupsPage)
	g.POST("/:kind", s.catalogCreate)
	g.POST("/:kind/:id", s.catalogRename)
	g.GET("/:kind/:id/delete", s.catalogDeleteConfirm)
	g.POST("/:kind/:id/delete", s.catalogDelete)
}

// catalog returns the collection of kind, or nil for an unknown kind.
func (s *Server) catalog(ctx echo.Context, kind string) *resource.Collection[school.Named] {
	switch kind {
	case kindGroups:
		return resource.NewCollection[school.Named](s.client(ctx), "Group", resource.Endpoints{List: "/groups"})
	case kindSubjects:
		return resource.NewCollection[school.Named](s.client(ctx), "Subject", resource.Endpoints{List: "/subjects"})
	}
	return nil
}

func (s *Server) subjectsGroupsPage(ctx echo.Context) error {
	view := subjectsGroupsView{}
	switch kind := ctx.QueryParam("edit"); kind {
	case kindGroups:
		view.Groups.EditID, _ = strconv.Atoi(ctx.QueryParam("id"))
	case kindSubjects:
		view.Subjects.EditID, _ = strconv.Atoi(ctx.QueryParam("id"))
	}
	return s.showSubjectsGroups(ctx, http.StatusOK, view)
}

// showSubjectsGroups renders both catalogs, listing concurrently the ones whose Items are nil.
func (s *Server) showSubjectsGroups(ctx echo.Context, code int, view subjectsGroupsView, notices ...resource.Notice) error {
	view.Groups.Kind, view.Groups.Label = kindGroups, "Groups"
	view.Subjects.Kind, view.Subjects.Label = kindSubjects, "Subjects"

	cvs := []*catalogView{&view.Groups, &view.Subjects}
	errs := make([]error, len(cvs))
	var g errgroup.Group
	for i, cv := range cvs {
		if cv.Items != nil {
			continue
		}
		i, cv := i, cv
		g.Go(func() error {
			cv.Items, errs[i] = s.catalog(ctx, cv.Kind).List(ctx.Request().Context())
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		n, err := noticeFor(err, "Could not load the "+cvs[i].Kind)
		if err != nil {
			return err
		}
		notices = append(notices, n)
	}

	for _, cv := range cvs {
		if cv.EditID == 0 || cv.Form.Name != "" {
			continue
		}
		for _, it := range cv.Items {
			if it.ID == cv.EditID {
				cv.Form.Name = it.Name
			}
		}
	}
	return s.render(ctx, code, "subjects_groups", "Subjects and groups", view, notices...)
}

// bindCatalog resolves the :kind and :id params. id is zero when the route has none.
func (s *Server) bindCatalog(ctx echo.Context) (*resource.Collection[school.Named], string, int, error) {
	kind := ctx.Param("kind")
	coll := s.catalog(ctx, kind)
	if coll == nil {
		return nil, "", 0, errHttpNotFound
	}
	var id int
	if raw := ctx.Param("id"); raw != "" {
		var err error
		if id, err = strconv.Atoi(raw); err != nil || id < 1 {
			return nil, "", 0, errHttpNotFound
		}
	}
	return coll, kind, id, nil
}

func (s *Server) catalogCreate(ctx echo.Context) error {
	coll, kind, _, err := s.bindCatalog(ctx)
	if err != nil {
		return err
	}
	return s.catalogSave(ctx, kind, 0, func(form *school.NameForm) (resource.Outcome[school.Named], error) {
		return coll.Create(ctx.Request().Context(), form)
	})
}

func (s *Server) catalogRename(ctx echo.Context) error {
	coll, kind, id, err := s.bindCatalog(ctx)
	if err != nil {
		return err
	}
	return s.catalogSave(ctx, kind, id, func(form *school.NameForm) (resource.Outcome[school.Named], error) {
		return coll.Patch(ctx.Request().Context(), id, form)
	})
}

// catalogSave validates the name form and applies save, keeping the form on failure.
func (s *Server) catalogSave(
	ctx echo.Context, kind string, id int,
	save func(*school.NameForm) (resource.Outcome[school.Named], error),
) error {
	form := new(school.NameForm)
	if err := ctx.Bind(form); err != nil {
		return err
	}

	var view subjectsGroupsView
	cv := view.catalogOf(kind)
	cv.EditID = id
	cv.Form = *form

	if err := form.Validate(s.validate); err != nil {
		vErr, ok := core.ValidationErrorFrom(err, s.translator).(*core.ValidationError)
		if !ok {
			return err
		}
		cv.Error = vErr.FieldMap()["name"]
		return s.showSubjectsGroups(ctx, http.StatusBadRequest, view, resource.Failure("Please correct the name"))
	}

	out, err := save(form)
	if err != nil {
		if _, err := noticeFor(err, ""); err != nil {
			return err
		}
		return s.showSubjectsGroups(ctx, http.StatusOK, view, out.Notice)
	}
	cv.Items = out.Items
	cv.EditID = 0
	cv.Form = school.NameForm{}
	return s.showSubjectsGroups(ctx, http.StatusOK, view, out.Notice)
}

func (s *Server) catalogDeleteConfirm(ctx echo.Context) error {
	coll, kind, id, err := s.bindCatalog(ctx)
	if err != nil {
		return err
	}
	items, err := coll.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == id {
			return s.render(ctx, http.StatusOK, "confirm", "Delete", confirmView{
				Message: fmt.Sprintf("Delete %q? This cannot be undone.", it.Name),
				Action:  fmt.Sprintf("/dashE/subjects-groups/%s/%d/delete", kind, id),
				Cancel:  "/dashE/subjects-groups",
			})
		}
	}
	return errHttpNotFound
}

func (s *Server) catalogDelete(ctx echo.Context) error {
	coll, kind, id, err := s.bindCatalog(ctx)
	if err != nil {
		return err
	}
	out, err := coll.Delete(ctx.Request().Context(), id)
	if err != nil {
		if _, err := noticeFor(err, ""); err != nil {
			return err
		}
	}
	var view subjectsGroupsView
	view.catalogOf(kind).Items = out.Items
	return s.showSubjectsGroups(ctx, http.StatusOK, view, out.Notice)
}

func (v *subjectsGroupsView) catalogOf(kind string) *catalogView {
	if kind == kindSubjects {
		return &v.Subjects
	}
	return &v.Groups
}
