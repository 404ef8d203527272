package echoweb

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/services/backend"
)

var nowFunc = time.Now // mockable

const statusFieldPrefix = "status_"

type (
	// selection is the group/subject(/partial) picked on a professor page.
	selection struct {
		GroupID   int `query:"group" form:"group"`
		SubjectID int `query:"subject" form:"subject"`
		Partial   int `query:"partial" form:"partial"`
	}

	gradesView struct {
		selection
		Groups   []school.Group
		Subjects []school.Subject
		Partials []int
		Fields   []string
		Grades   []school.Grade
	}

	attendanceView struct {
		selection
		Groups     []school.Group
		Subjects   []school.Subject
		Statuses   []string
		Roster     []school.AttendanceRecord
		SearchDate string
		Results    school.AttendanceByHour
	}
)

func (s *Server) registerProfessorRoutes(g *echo.Group) {
	g.GET("", s.professorHome)
	g.GET("/grades", s.gradesPage)
	g.POST("/grades/:id", s.gradeSave)
	g.GET("/attendance", s.attendancePage)
	g.POST("/attendance", s.attendanceSubmit)
}

// noticeFor turns a backend failure into a notice. 401s are returned as errors instead:
// they must reach the error handler.
func noticeFor(err error, what string) (resource.Notice, error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		return resource.Notice{}, err
	}
	return resource.FailureFrom(err, what), nil
}

func (s *Server) professorHome(ctx echo.Context) error {
	stats, err := s.client(ctx).ProfessorStats(ctx.Request().Context())
	if err != nil {
		n, err := noticeFor(err, "Could not load your statistics")
		if err != nil {
			return err
		}
		return s.render(ctx, http.StatusOK, "home", "Dashboard", stats, n)
	}
	if stats.AttendanceAverage == "" {
		stats.AttendanceAverage = "0%"
	}
	return s.render(ctx, http.StatusOK, "home", "Dashboard", stats)
}

// loadAssignments fetches the signed-in professor's assignments and narrows sel to them.
func (s *Server) loadAssignments(ctx echo.Context, sel *selection) ([]school.Assignment, []resource.Notice, error) {
	usr, err := contextUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.client(ctx).Assignments(ctx.Request().Context(), usr.ID)
	if err != nil {
		n, err := noticeFor(err, "Could not load your assignments")
		if err != nil {
			return nil, nil, err
		}
		*sel = selection{}
		return nil, []resource.Notice{n}, nil
	}
	if len(school.SubjectsOf(assignments, sel.GroupID)) == 0 {
		sel.GroupID = 0
	}
	if !school.HasPair(assignments, sel.GroupID, sel.SubjectID) {
		sel.SubjectID = 0
	}
	return assignments, nil, nil
}

func (s *Server) gradesPage(ctx echo.Context) error {
	var sel selection
	if err := ctx.Bind(&sel); err != nil {
		return err
	}
	return s.showGrades(ctx, http.StatusOK, sel)
}

func (s *Server) showGrades(ctx echo.Context, code int, sel selection, notices ...resource.Notice) error {
	assignments, ns, err := s.loadAssignments(ctx, &sel)
	if err != nil {
		return err
	}
	notices = append(notices, ns...)
	if sel.Partial < 1 || sel.Partial > len(school.Partials) {
		sel.Partial = 0
	}

	view := gradesView{
		selection: sel,
		Groups:    school.GroupsOf(assignments),
		Subjects:  school.SubjectsOf(assignments, sel.GroupID),
		Partials:  school.Partials,
		Fields:    school.GradeFields,
	}
	if sel.GroupID > 0 && sel.SubjectID > 0 && sel.Partial > 0 {
		view.Grades, err = s.client(ctx).Grades(ctx.Request().Context(), sel.GroupID, sel.SubjectID, sel.Partial)
		if err != nil {
			n, err := noticeFor(err, "Could not load the grades")
			if err != nil {
				return err
			}
			notices = append(notices, n)
		}
	}
	return s.render(ctx, code, "grades", "Grades", view, notices...)
}

// gradeSave sends the components that differ from the values the form was rendered with.
func (s *Server) gradeSave(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return errHttpNotFound
	}
	var sel selection
	if err = ctx.Bind(&sel); err != nil {
		return err
	}

	update := make(school.GradeUpdate)
	var flds []core.FieldError
	for _, field := range school.GradeFields {
		val := strings.TrimSpace(ctx.FormValue(field))
		if val == strings.TrimSpace(ctx.FormValue("orig_"+field)) {
			continue
		}
		score, err := school.ParseScore(val)
		if err != nil {
			flds = append(flds, core.FieldError{Field: field, Error: err.Error()})
			continue
		}
		update[field] = score
	}
	if len(flds) == 0 {
		err = update.Validate()
	} else {
		err = core.NewValidationError(nil, flds...)
	}
	if err != nil {
		return s.showGrades(ctx, http.StatusBadRequest, sel, resource.Failure("Could not save the grade: "+err.Error()))
	}

	if err = s.client(ctx).UpdateGrade(ctx.Request().Context(), id, update); err != nil {
		n, err := noticeFor(err, "Could not save the grade")
		if err != nil {
			return err
		}
		return s.showGrades(ctx, http.StatusOK, sel, n)
	}
	return s.showGrades(ctx, http.StatusOK, sel, resource.Success("Grade saved"))
}

func (s *Server) attendancePage(ctx echo.Context) error {
	var sel selection
	if err := ctx.Bind(&sel); err != nil {
		return err
	}
	return s.showAttendance(ctx, http.StatusOK, sel, ctx.QueryParam("date"))
}

// showAttendance renders the roll call of the selected pair and, when date is set, the
// attendances recorded that day. Both are fetched concurrently.
func (s *Server) showAttendance(ctx echo.Context, code int, sel selection, date string, notices ...resource.Notice) error {
	sel.Partial = 0
	assignments, ns, err := s.loadAssignments(ctx, &sel)
	if err != nil {
		return err
	}
	notices = append(notices, ns...)

	view := attendanceView{
		selection:  sel,
		Groups:     school.GroupsOf(assignments),
		Subjects:   school.SubjectsOf(assignments, sel.GroupID),
		Statuses:   school.AttendanceStatuses,
		SearchDate: date,
	}
	if date != "" {
		if _, err = time.Parse("2006-01-02", date); err != nil {
			view.SearchDate = ""
			notices = append(notices, resource.Failure(fmt.Sprintf("%q is not a date (YYYY-MM-DD)", date)))
		}
	}

	client := s.client(ctx)
	reqCtx := ctx.Request().Context()
	var rosterErr, searchErr error
	var g errgroup.Group
	if sel.GroupID > 0 && sel.SubjectID > 0 {
		g.Go(func() error {
			view.Roster, rosterErr = client.Roster(reqCtx, sel.GroupID, sel.SubjectID)
			return nil
		})
	}
	if view.SearchDate != "" {
		g.Go(func() error {
			view.Results, searchErr = client.AttendanceOn(reqCtx, view.SearchDate)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range []struct {
		err  error
		what string
	}{
		{rosterErr, "Could not load the student list"},
		{searchErr, "Could not search the attendances"},
	} {
		if f.err == nil {
			continue
		}
		n, err := noticeFor(f.err, f.what)
		if err != nil {
			return err
		}
		notices = append(notices, n)
	}
	return s.render(ctx, code, "attendance", "Attendance", view, notices...)
}

// attendanceSubmit records today's roll call. Statuses arrive as status_<student id> fields.
func (s *Server) attendanceSubmit(ctx echo.Context) error {
	var sel selection
	if err := ctx.Bind(&sel); err != nil {
		return err
	}
	if sel.GroupID == 0 || sel.SubjectID == 0 {
		return s.showAttendance(ctx, http.StatusBadRequest, sel, "",
			resource.Failure("Select a group and a subject before submitting the attendance"))
	}

	form, err := ctx.FormParams()
	if err != nil {
		return err
	}
	sub := school.AttendanceSubmission{
		GroupID:   sel.GroupID,
		SubjectID: sel.SubjectID,
		Date:      nowFunc().UTC().Format("2006-01-02"),
	}
	for key, vals := range form {
		if !strings.HasPrefix(key, statusFieldPrefix) || len(vals) == 0 {
			continue
		}
		studentID, err := strconv.Atoi(strings.TrimPrefix(key, statusFieldPrefix))
		if err != nil {
			continue
		}
		sub.Attendances = append(sub.Attendances, school.AttendanceMark{StudentID: studentID, Status: vals[0]})
	}
	sort.Slice(sub.Attendances, func(i, j int) bool {
		return sub.Attendances[i].StudentID < sub.Attendances[j].StudentID
	})

	if err = sub.Validate(s.validate); err != nil {
		msg := core.ValidationErrorFrom(err, s.translator).Error()
		return s.showAttendance(ctx, http.StatusBadRequest, sel, "", resource.Failure("Could not submit the attendance: "+msg))
	}

	if err = s.client(ctx).SubmitAttendance(ctx.Request().Context(), sub); err != nil {
		n, err := noticeFor(err, "Could not submit the attendance")
		if err != nil {
			return err
		}
		return s.showAttendance(ctx, http.StatusOK, sel, "", n)
	}
	return s.showAttendance(ctx, http.StatusOK, sel, "", resource.Success("Attendance submitted"))
}
