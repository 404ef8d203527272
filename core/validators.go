package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	schoolEmailTag   = "school_email"
	schoolEmailText  = "enter a valid email address"
	schoolEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,4}$`)

	roleTag  = "role"
	roleText = "role must be either admin or professor"

	attendanceStatusTag  = "attendance_status"
	attendanceStatusText = "status must be one of presente, ausente or retardo"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	// accepted values for the enum-like tags
	roles              = []string{"admin", "professor"}
	attendanceStatuses = []string{"presente", "ausente", "retardo"}
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use form (then JSON) tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// register custom validators
	_ = validate.RegisterValidation(schoolEmailTag, schoolEmailValidation)
	RegisterCustomTranslation(validate, translator, schoolEmailTag, schoolEmailText)

	_ = validate.RegisterValidation(roleTag, oneOfValidation(roles))
	RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(attendanceStatusTag, oneOfValidation(attendanceStatuses))
	RegisterCustomTranslation(validate, translator, attendanceStatusTag, attendanceStatusText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// schoolEmailValidation matches the addresses the backend accepts at login.
func schoolEmailValidation(fl validator.FieldLevel) bool {
	return schoolEmailRegex.MatchString(fl.Field().String())
}

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if val == a {
				return true
			}
		}
		return false
	}
}
