package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/school"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp school.LoginResponse
	err := c.Do(ctx, http.MethodPost, "users/login", school.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login response carries no token")
	}
	return resp.Token, nil
}

// Me resolves the current credential to its profile.
func (c *Client) Me(ctx context.Context) (school.User, error) {
	var usr school.User
	err := c.Do(ctx, http.MethodGet, "/users/me", nil, &usr)
	return usr, err
}

func (c *Client) UsersByRole(ctx context.Context, role string) ([]school.User, error) {
	var users []school.User
	err := c.Do(ctx, http.MethodGet, "/users/role/"+url.PathEscape(role), nil, &users)
	return users, err
}

func (c *Client) ProfessorStats(ctx context.Context) (school.ProfessorStats, error) {
	var stats school.ProfessorStats
	err := c.Do(ctx, http.MethodGet, "/users/homepage/stats", nil, &stats)
	return stats, err
}

func (c *Client) AdminStats(ctx context.Context) (school.AdminStats, error) {
	var stats school.AdminStats
	err := c.Do(ctx, http.MethodGet, "/admin/homepage", nil, &stats)
	return stats, err
}

// Assignments lists the group/subject pairs assigned to a professor.
func (c *Client) Assignments(ctx context.Context, userID int) ([]school.Assignment, error) {
	var assignments []school.Assignment
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/assignments/user/%d", userID), nil, &assignments)
	return assignments, err
}

// Grades lists the grades of a group/subject pair for one partial, ordered by matricula.
func (c *Client) Grades(ctx context.Context, groupID, subjectID, partial int) ([]school.Grade, error) {
	var grades []school.Grade
	path := fmt.Sprintf("/grade/group/%d/subject/%d/%d", groupID, subjectID, partial)
	if err := c.Do(ctx, http.MethodGet, path, nil, &grades); err != nil {
		return nil, err
	}
	school.SortByMatricula(grades)
	return grades, nil
}

// UpdateGrade sends only the edited components of a grade.
func (c *Client) UpdateGrade(ctx context.Context, id int, update school.GradeUpdate) error {
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/grade/%d", id), update, nil)
}

// Roster lists the students of a group/subject pair, every one marked present.
func (c *Client) Roster(ctx context.Context, groupID, subjectID int) ([]school.AttendanceRecord, error) {
	var roster []school.AttendanceRecord
	path := fmt.Sprintf("/attendances/group/%d/subject/%d", groupID, subjectID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &roster); err != nil {
		return nil, err
	}
	for i := range roster {
		roster[i].Status = school.StatusPresent
	}
	return roster, nil
}

func (c *Client) SubmitAttendance(ctx context.Context, sub school.AttendanceSubmission) error {
	return c.Do(ctx, http.MethodPost, "/attendances/submit", sub, nil)
}

// AttendanceOn searches the attendances recorded on date (YYYY-MM-DD).
func (c *Client) AttendanceOn(ctx context.Context, date string) (school.AttendanceByHour, error) {
	byHour := make(school.AttendanceByHour)
	err := c.Do(ctx, http.MethodGet, "/attendances/date/"+url.PathEscape(date), nil, &byHour)
	return byHour, err
}

// UploadRoster ingests students into a group.
func (c *Client) UploadRoster(ctx context.Context, upload school.RosterUpload) error {
	return c.Do(ctx, http.MethodPost, "/upload", upload, nil)
}

// Log returns the content of one of school.LogFiles.
func (c *Client) Log(ctx context.Context, filename string) (string, error) {
	if !school.IsLogFile(filename) {
		return "", errors.Errorf("unknown log file %q", filename)
	}
	var resp struct {
		Content string `json:"content"`
	}
	err := c.Do(ctx, http.MethodGet, "users/logs/"+filename, nil, &resp)
	return resp.Content, err
}
