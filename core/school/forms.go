package school

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,school_email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true)
	return validate.Struct(r)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type NewUser struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,school_email"`
	Role     string `json:"role" form:"role" validate:"required,role"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

func (u *NewUser) Validate(validate *validator.Validate) error {
	u.Name = core.CleanString(u.Name)
	u.Email = core.CleanString(u.Email, true)
	u.Role = core.CleanString(u.Role, true)
	return validate.Struct(u)
}

// UpdateUser never carries a password; the backend keeps the current one.
type UpdateUser struct {
	Name  string `json:"name" form:"name" validate:"required"`
	Email string `json:"email" form:"email" validate:"required,school_email"`
	Role  string `json:"role" form:"role" validate:"required,role"`
}

func (u *UpdateUser) Validate(validate *validator.Validate) error {
	u.Name = core.CleanString(u.Name)
	u.Email = core.CleanString(u.Email, true)
	u.Role = core.CleanString(u.Role, true)
	return validate.Struct(u)
}

// NameForm creates or renames a group or a subject.
type NameForm struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
}

func (f *NameForm) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	return validate.Struct(f)
}

type NewAssignment struct {
	UserID    int `json:"user_id" form:"user_id" validate:"required,gt=0"`
	GroupID   int `json:"group_id" form:"group_id" validate:"required,gt=0"`
	SubjectID int `json:"subject_id" form:"subject_id" validate:"required,gt=0"`
}

func (a *NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}

// GradeUpdate holds only the edited components of a grade, keyed by GradeFields name.
type GradeUpdate map[string]Score

func (u GradeUpdate) Validate() error {
	if len(u) == 0 {
		return core.NewValidationError(errors.New("no changes to save"))
	}
	var flds []core.FieldError
	for name, score := range u {
		if !isGradeField(name) {
			flds = append(flds, core.FieldError{Field: name, Error: "unknown grade field"})
			continue
		}
		if score.Valid && !(score.Value >= 0 && score.Value <= 100) {
			flds = append(flds, core.FieldError{Field: name, Error: "must be between 0 and 100"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func isGradeField(name string) bool {
	for _, f := range GradeFields {
		if f == name {
			return true
		}
	}
	return false
}

type AttendanceMark struct {
	StudentID int    `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// AttendanceSubmission is one roll call of a group/subject pair.
type AttendanceSubmission struct {
	GroupID     int              `json:"group_id" validate:"required,gt=0"`
	SubjectID   int              `json:"subject_id" validate:"required,gt=0"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	Attendances []AttendanceMark `json:"attendances" validate:"required,min=1,dive"`
}

func (s *AttendanceSubmission) Validate(validate *validator.Validate) error {
	for i := range s.Attendances {
		s.Attendances[i].Status = core.CleanString(s.Attendances[i].Status, true)
	}
	return validate.Struct(s)
}

// RosterUpload is the bulk student ingestion payload.
type RosterUpload struct {
	Data    []map[string]string `json:"data" validate:"required,min=1"`
	GroupID int                 `json:"groupId" validate:"required,gt=0"`
}

func (r *RosterUpload) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
