package echoweb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/roster"
	"github.com/trezcool/cace/core/school"
)

// maxRosterSize caps uploaded roster files.
const maxRosterSize = 5 << 20

type (
	rosterPreview struct {
		GroupID  int
		Filename string
		Sheet    roster.Sheet
		Payload  string // JSON rows, posted back on confirmation
	}

	studentsView struct {
		Professors  []school.User
		Groups      []school.Group
		Subjects    []school.Subject
		ProfessorID int
		Assignments []school.Assignment
		Preview     *rosterPreview
	}
)

// Table returns the preview rows as cells in header order.
func (p rosterPreview) Table() [][]string {
	rows := make([][]string, len(p.Sheet.Rows))
	for i, r := range p.Sheet.Rows {
		rows[i] = p.Sheet.Cells(r)
	}
	return rows
}

func (s *Server) registerStudentRoutes(g *echo.Group) {
	g.GET("", s.studentsPage)
	g.POST("/assignments", s.assignmentCreate)
	g.GET("/assignments/:id/delete", s.assignmentDeleteConfirm)
	g.POST("/assignments/:id/delete", s.assignmentDelete)
	g.POST("/upload/preview", s.rosterPreview)
	g.POST("/upload", s.rosterUpload)
}

func (s *Server) assignments(ctx echo.Context, professorID int) *resource.Collection[school.Assignment] {
	return resource.NewCollection[school.Assignment](s.client(ctx), "Assignment", resource.Endpoints{
		List:   fmt.Sprintf("/assignments/user/%d", professorID),
		Create: "/assignments",
		Item:   "/assignments",
	})
}

func (s *Server) studentsPage(ctx echo.Context) error {
	professorID, _ := strconv.Atoi(ctx.QueryParam("professor"))
	return s.showStudents(ctx, http.StatusOK, studentsView{ProfessorID: professorID})
}

// showStudents loads professors, groups, subjects and, when a professor is selected and view
// has none yet, their assignments. The requests run concurrently and fail independently.
func (s *Server) showStudents(ctx echo.Context, code int, view studentsView, notices ...resource.Notice) error {
	client := s.client(ctx)
	reqCtx := ctx.Request().Context()

	type fetch struct {
		what string
		run  func() error
		err  error
	}
	fetches := []*fetch{
		{what: "Could not load the professors", run: func() (err error) {
			view.Professors, err = client.UsersByRole(reqCtx, school.RoleProfessor)
			return err
		}},
		{what: "Could not load the groups", run: func() (err error) {
			view.Groups, err = resource.NewCollection[school.Group](client, "Group", resource.Endpoints{List: "/groups"}).List(reqCtx)
			return err
		}},
		{what: "Could not load the subjects", run: func() (err error) {
			view.Subjects, err = resource.NewCollection[school.Subject](client, "Subject", resource.Endpoints{List: "/subjects"}).List(reqCtx)
			return err
		}},
	}
	if view.ProfessorID > 0 && view.Assignments == nil {
		fetches = append(fetches, &fetch{what: "Could not load the assignments", run: func() (err error) {
			view.Assignments, err = s.assignments(ctx, view.ProfessorID).List(reqCtx)
			return err
		}})
	}

	var g errgroup.Group
	for _, f := range fetches {
		f := f
		g.Go(func() error {
			f.err = f.run()
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range fetches {
		if f.err == nil {
			continue
		}
		n, err := noticeFor(f.err, f.what)
		if err != nil {
			return err
		}
		notices = append(notices, n)
	}
	return s.render(ctx, code, "students", "Students", view, notices...)
}

func (s *Server) assignmentCreate(ctx echo.Context) error {
	data := new(school.NewAssignment)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	view := studentsView{ProfessorID: data.UserID}
	if err := data.Validate(s.validate); err != nil {
		msg := core.ValidationErrorFrom(err, s.translator).Error()
		return s.showStudents(ctx, http.StatusBadRequest, view, resource.Failure("Select a professor, a group and a subject: "+msg))
	}

	out, err := s.assignments(ctx, data.UserID).Create(ctx.Request().Context(), data)
	if err != nil {
		if _, err := noticeFor(err, ""); err != nil {
			return err
		}
	}
	view.Assignments = out.Items
	return s.showStudents(ctx, http.StatusOK, view, out.Notice)
}

func (s *Server) assignmentDeleteConfirm(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	professorID, _ := strconv.Atoi(ctx.QueryParam("professor"))
	if professorID < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "professor is required")
	}

	items, err := s.assignments(ctx, professorID).List(ctx.Request().Context())
	if err != nil {
		return err
	}
	for _, a := range items {
		if a.ID == id {
			return s.render(ctx, http.StatusOK, "confirm", "Delete assignment", confirmView{
				Message: fmt.Sprintf("Remove %s / %s from this professor?", a.GroupName, a.SubjectName),
				Action:  fmt.Sprintf("/dashE/students/assignments/%d/delete", id),
				Cancel:  fmt.Sprintf("/dashE/students?professor=%d", professorID),
				Hidden:  map[string]string{"professor": strconv.Itoa(professorID)},
			})
		}
	}
	return errHttpNotFound
}

func (s *Server) assignmentDelete(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	professorID, _ := strconv.Atoi(ctx.FormValue("professor"))
	if professorID < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "professor is required")
	}

	out, err := s.assignments(ctx, professorID).Delete(ctx.Request().Context(), id)
	if err != nil {
		if _, err := noticeFor(err, ""); err != nil {
			return err
		}
	}
	return s.showStudents(ctx, http.StatusOK, studentsView{ProfessorID: professorID, Assignments: out.Items}, out.Notice)
}

// rosterPreview parses the uploaded roster and shows it for confirmation; nothing is sent yet.
func (s *Server) rosterPreview(ctx echo.Context) error {
	groupID, _ := strconv.Atoi(ctx.FormValue("group_id"))
	if groupID < 1 {
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("Select the group of the students"))
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("Choose a roster file"))
	}
	if fh.Size > maxRosterSize {
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("The roster file is too large"))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded roster")
	}
	defer func() { _ = f.Close() }()

	sheet, err := roster.Parse(fh.Filename, f)
	if err != nil {
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("Could not read the roster: "+err.Error()))
	}
	payload, err := json.Marshal(sheet.Records())
	if err != nil {
		return errors.Wrap(err, "encoding roster preview")
	}

	view := studentsView{Preview: &rosterPreview{
		GroupID:  groupID,
		Filename: fh.Filename,
		Sheet:    sheet,
		Payload:  string(payload),
	}}
	return s.showStudents(ctx, http.StatusOK, view,
		resource.Success(fmt.Sprintf("%d students read from %s, review them before uploading", len(sheet.Rows), fh.Filename)))
}

func (s *Server) rosterUpload(ctx echo.Context) error {
	upload := school.RosterUpload{}
	upload.GroupID, _ = strconv.Atoi(ctx.FormValue("group_id"))
	if err := json.Unmarshal([]byte(ctx.FormValue("data")), &upload.Data); err != nil {
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("The roster preview is no longer valid, upload the file again"))
	}
	if err := upload.Validate(s.validate); err != nil {
		msg := core.ValidationErrorFrom(err, s.translator).Error()
		return s.showStudents(ctx, http.StatusBadRequest, studentsView{}, resource.Failure("Could not upload the roster: "+msg))
	}

	if err := s.client(ctx).UploadRoster(ctx.Request().Context(), upload); err != nil {
		n, err := noticeFor(err, "Could not upload the roster")
		if err != nil {
			return err
		}
		return s.showStudents(ctx, http.StatusOK, studentsView{}, n)
	}
	return s.showStudents(ctx, http.StatusOK, studentsView{},
		resource.Success(fmt.Sprintf("%d students uploaded", len(upload.Data))))
}
