// Package school holds the backend's domain records as the portal consumes them.
package school

import (
	"sort"
	"strings"
	"time"
)

// roles
const (
	RoleAdmin     = "admin"
	RoleProfessor = "professor"
)

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Named is an entity known by its name alone.
type Named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type (
	Group   = Named
	Subject = Named
)

// Assignment binds a professor to a group/subject pair.
type Assignment struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id"`
	GroupID     int    `json:"group_id"`
	GroupName   string `json:"group_name"`
	SubjectID   int    `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// GroupsOf returns the distinct groups of assignments, in first-seen order.
func GroupsOf(assignments []Assignment) []Group {
	seen := make(map[int]bool, len(assignments))
	groups := make([]Group, 0, len(assignments))
	for _, a := range assignments {
		if !seen[a.GroupID] {
			seen[a.GroupID] = true
			groups = append(groups, Group{ID: a.GroupID, Name: a.GroupName})
		}
	}
	return groups
}

// SubjectsOf returns the distinct subjects assigned within groupID.
func SubjectsOf(assignments []Assignment, groupID int) []Subject {
	seen := make(map[int]bool)
	subjects := make([]Subject, 0)
	for _, a := range assignments {
		if a.GroupID == groupID && !seen[a.SubjectID] {
			seen[a.SubjectID] = true
			subjects = append(subjects, Subject{ID: a.SubjectID, Name: a.SubjectName})
		}
	}
	return subjects
}

// HasPair reports whether a group/subject pair belongs to the assignments.
func HasPair(assignments []Assignment, groupID, subjectID int) bool {
	for _, a := range assignments {
		if a.GroupID == groupID && a.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// Partials are the grading periods of a term.
var Partials = []int{1, 2, 3}

// GradeFields are the editable components of a grade, in display order.
var GradeFields = []string{"activity_1", "activity_2", "attendance", "project", "exam"}

// Grade is a student's grade for one partial of a group/subject pair.
type Grade struct {
	ID         int    `json:"id"`
	StudentID  int    `json:"student_id"`
	Matricula  string `json:"matricula"`
	Name       string `json:"name"`
	Partial    int    `json:"partial"`
	Activity1  Score  `json:"activity_1"`
	Activity2  Score  `json:"activity_2"`
	Attendance Score  `json:"attendance"`
	Project    Score  `json:"project"`
	Exam       Score  `json:"exam"`
}

// Field returns the score stored under one of GradeFields.
func (g Grade) Field(name string) Score {
	switch name {
	case "activity_1":
		return g.Activity1
	case "activity_2":
		return g.Activity2
	case "attendance":
		return g.Attendance
	case "project":
		return g.Project
	case "exam":
		return g.Exam
	}
	return Score{}
}

// SortByMatricula orders grades by student enrollment number.
func SortByMatricula(grades []Grade) {
	sort.SliceStable(grades, func(i, j int) bool {
		return strings.Compare(grades[i].Matricula, grades[j].Matricula) < 0
	})
}

// attendance statuses
const (
	StatusPresent = "presente"
	StatusAbsent  = "ausente"
	StatusLate    = "retardo"
)

// AttendanceStatuses lists the statuses in display order.
var AttendanceStatuses = []string{StatusPresent, StatusAbsent, StatusLate}

// AttendanceRecord is either a roster entry of a group/subject pair or a recorded attendance.
type AttendanceRecord struct {
	ID          int       `json:"id"`
	StudentID   int       `json:"student_id"`
	Matricula   string    `json:"matricula"`
	Name        string    `json:"name"`
	StudentName string    `json:"student_name"`
	SubjectName string    `json:"subject_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// AttendanceByHour is the backend's date search result, keyed by the timestamp of each roll call.
type AttendanceByHour map[string][]AttendanceRecord

// Hours returns the keys in chronological order.
func (a AttendanceByHour) Hours() []string {
	hours := make([]string, 0, len(a))
	for h := range a {
		hours = append(hours, h)
	}
	sort.Strings(hours)
	return hours
}

// ProfessorStats is the professor home page summary.
type ProfessorStats struct {
	AttendanceData []struct {
		Group   string `json:"group"`
		Subject string `json:"subject"`
		Count   int    `json:"count"`
	} `json:"attendanceData"`
	GradesData []struct {
		Partial    string `json:"partial"`
		Count      int    `json:"count"`
		Percentage string `json:"percentage"`
	} `json:"gradesData"`
	TotalAttendance   int    `json:"totalAttendance"`
	TotalStudents     int    `json:"totalStudents"`
	AttendanceAverage string `json:"attendanceAverage"`
}

// AdminStats is the admin home page summary. UsersByRole holds [admins, professors].
type AdminStats struct {
	TotalUsers    int   `json:"totalUsers"`
	TotalSubjects int   `json:"totalSubjects"`
	TotalGroups   int   `json:"totalGroups"`
	UsersByRole   []int `json:"usersByRole"`
}

// LogFiles are the backend log files an admin may read.
var LogFiles = []string{"app.log", "combined.log", "error.log", "health.log", "http.log"}

// IsLogFile reports whether name is one of LogFiles.
func IsLogFile(name string) bool {
	for _, f := range LogFiles {
		if f == name {
			return true
		}
	}
	return false
}
