package echoweb

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/school"
)

const (
	csrfField  = "_csrf"
	flashName  = "cace_flash"
	healthPath = "/health"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

var pageNames = []string{
	"login", "loading", "error", "confirm",
	"home", "grades", "attendance",
	"admin_home", "users", "students", "subjects_groups", "logs",
}

// pageData is what every page template receives.
type pageData struct {
	Title   string
	Path    string
	CSRF    string
	User    *auth.SessionUser
	Notices []resource.Notice
	Data    interface{}
}

// renderer holds one template set per page, each made of the layout and the page.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() *renderer {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		r.pages[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.gohtml", "templates/"+name+".gohtml"),
		)
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return errors.Errorf("no page named %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// render writes a full page. Pending flash notices are shown before the given ones.
func (s *Server) render(ctx echo.Context, code int, page, title string, data interface{}, notices ...resource.Notice) error {
	pd := pageData{
		Title:   title,
		Path:    ctx.Request().URL.Path,
		Notices: append(popFlash(ctx), notices...),
		Data:    data,
	}
	if token, ok := ctx.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		pd.CSRF = token
	}
	if usr, err := contextUser(ctx); err == nil {
		pd.User = &usr
	}
	return ctx.Render(code, page, pd)
}

// setFlash keeps n for the next rendered page of this browser.
func setFlash(ctx echo.Context, n resource.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	ctx.SetCookie(&http.Cookie{
		Name:     flashName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(ctx echo.Context) []resource.Notice {
	c, err := ctx.Cookie(flashName)
	if err != nil || c.Value == "" {
		return nil
	}
	ctx.SetCookie(&http.Cookie{Name: flashName, Path: "/", MaxAge: -1})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var n resource.Notice
	if err = json.Unmarshal(data, &n); err != nil || n.Message == "" {
		return nil
	}
	return []resource.Notice{n}
}

var templateFuncs = template.FuncMap{
	"score": func(g school.Grade, field string) string {
		return g.Field(field).String()
	},
	"fieldLabel": fieldLabel,
	"hour": func(key string) string {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, key); err == nil {
				return t.Format("15:04")
			}
		}
		return key
	},
	"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
		if len(pairs)%2 != 0 {
			return nil, errors.New("dict expects key/value pairs")
		}
		m := make(map[string]interface{}, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, errors.Errorf("dict key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

var fieldLabels = map[string]string{
	"activity_1": "Activity 1",
	"activity_2": "Activity 2",
	"attendance": "Attendance",
	"project":    "Project",
	"exam":       "Exam",
}

func fieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}
