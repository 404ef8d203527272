package school

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cace/core"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func TestGrade_decode(t *testing.T) {
	data := []byte(`[
		{"id": 2, "matricula": "A002", "name": "Luis", "activity_1": "8.5", "activity_2": null, "exam": 10},
		{"id": 1, "matricula": "A001", "name": "Ana", "activity_1": 9, "project": ""}
	]`)

	var grades []Grade
	require.NoError(t, json.Unmarshal(data, &grades))
	SortByMatricula(grades)

	assert.Equal(t, "A001", grades[0].Matricula)
	assert.Equal(t, NewScore(9), grades[0].Activity1)
	assert.False(t, grades[0].Project.Valid)

	assert.Equal(t, NewScore(8.5), grades[1].Field("activity_1"))
	assert.False(t, grades[1].Field("activity_2").Valid)
	assert.Equal(t, "10", grades[1].Field("exam").String())
	assert.Equal(t, Score{}, grades[1].Field("nope"))
}

func TestGradeUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		update  GradeUpdate
		wantErr bool
	}{
		{name: "empty", update: GradeUpdate{}, wantErr: true},
		{name: "unknown field", update: GradeUpdate{"bonus": NewScore(1)}, wantErr: true},
		{name: "out of range", update: GradeUpdate{"exam": NewScore(101)}, wantErr: true},
		{name: "not a number", update: GradeUpdate{"exam": NewScore(math.NaN())}, wantErr: true},
		{name: "infinite", update: GradeUpdate{"exam": NewScore(math.Inf(1))}, wantErr: true},
		{name: "cleared score", update: GradeUpdate{"exam": {}}},
		{name: "ok", update: GradeUpdate{"activity_1": NewScore(0), "project": NewScore(100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	body, err := json.Marshal(GradeUpdate{"exam": {}, "project": NewScore(7.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"exam": null, "project": 7.5}`, string(body))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    Score
		wantErr bool
	}{
		{in: "", want: Score{}},
		{in: " 85.5 ", want: NewScore(85.5)},
		{in: "0", want: NewScore(0)},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "nan", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "-Infinity", wantErr: true},
		{in: "1e400", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScore(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var g Grade
	assert.Error(t, json.Unmarshal([]byte(`{"exam": "NaN"}`), &g))
}

func TestAssignments(t *testing.T) {
	assignments := []Assignment{
		{ID: 1, GroupID: 10, GroupName: "1A", SubjectID: 100, SubjectName: "Math"},
		{ID: 2, GroupID: 10, GroupName: "1A", SubjectID: 101, SubjectName: "History"},
		{ID: 3, GroupID: 11, GroupName: "1B", SubjectID: 100, SubjectName: "Math"},
	}

	assert.Equal(t, []Group{{ID: 10, Name: "1A"}, {ID: 11, Name: "1B"}}, GroupsOf(assignments))
	assert.Equal(t, []Subject{{ID: 100, Name: "Math"}, {ID: 101, Name: "History"}}, SubjectsOf(assignments, 10))
	assert.Empty(t, SubjectsOf(assignments, 12))
	assert.True(t, HasPair(assignments, 11, 100))
	assert.False(t, HasPair(assignments, 11, 101))
}

func TestAttendanceSubmission_Validate(t *testing.T) {
	validate := newValidator()

	sub := AttendanceSubmission{
		GroupID:   1,
		SubjectID: 2,
		Date:      "2024-03-04",
		Attendances: []AttendanceMark{
			{StudentID: 7, Status: "Presente"},
			{StudentID: 8, Status: "retardo"},
		},
	}
	require.NoError(t, sub.Validate(validate))
	assert.Equal(t, StatusPresent, sub.Attendances[0].Status)

	sub.Attendances[1].Status = "tarde"
	assert.Error(t, sub.Validate(validate))

	sub.Attendances[1].Status = StatusAbsent
	sub.Date = "04/03/2024"
	assert.Error(t, sub.Validate(validate))
}

func TestAttendanceByHour_Hours(t *testing.T) {
	byHour := AttendanceByHour{
		"2024-03-04T14:00:00.000Z": nil,
		"2024-03-04T08:00:00.000Z": nil,
	}
	assert.Equal(t, []string{"2024-03-04T08:00:00.000Z", "2024-03-04T14:00:00.000Z"}, byHour.Hours())
}

func TestNewUser_Validate(t *testing.T) {
	validate := newValidator()

	usr := NewUser{Name: "  Ana ", Email: " ANA@CACE.EDU.MX", Role: "Professor", Password: "secret1"}
	require.NoError(t, usr.Validate(validate))
	assert.Equal(t, "Ana", usr.Name)
	assert.Equal(t, "ana@cace.edu.mx", usr.Email)
	assert.Equal(t, RoleProfessor, usr.Role)

	upd := UpdateUser{Name: "Ana", Email: "ana@cace.edu.mx", Role: "student"}
	assert.Error(t, upd.Validate(validate))
}
