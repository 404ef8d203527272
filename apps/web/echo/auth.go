package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/services/backend"
)

// login failures as shown to the user
const (
	msgEmailNotRegistered = "This email is not registered."
	msgWrongPassword      = "The password is incorrect."
	msgConnectionError    = "Connection error."
)

type loginView struct {
	Email  string
	Errors map[string]string
	Failed string
}

func (s *Server) registerAuthRoutes() {
	s.app.GET("/", s.loginPage)
	s.app.POST("/", s.loginSubmit)
	s.app.POST("/logout", s.logout)
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) loginPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "login", "Sign in", loginView{})
}

func (s *Server) loginSubmit(ctx echo.Context) error {
	data := new(school.LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	view := loginView{Email: data.Email}
	if err := data.Validate(s.validate); err != nil {
		vErr, ok := core.ValidationErrorFrom(err, s.translator).(*core.ValidationError)
		if !ok {
			return err
		}
		view.Errors = vErr.FieldMap()
		return s.render(ctx, http.StatusBadRequest, "login", "Sign in", view)
	}

	token, err := s.client(ctx).Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		code := http.StatusUnauthorized
		switch backend.StatusCode(err) {
		case http.StatusNotFound:
			view.Failed = msgEmailNotRegistered
		case http.StatusUnauthorized:
			view.Failed = msgWrongPassword
		default:
			code = http.StatusBadGateway
			view.Failed = msgConnectionError
			s.logger.Warn("login failed", errors.Wrap(err, "backend login"))
		}
		return s.render(ctx, code, "login", "Sign in", view)
	}

	ac, err := authContext(ctx)
	if err != nil {
		return err
	}
	return navigate(ctx, ac.Login(ctx.Request().Context(), token))
}

func (s *Server) logout(ctx echo.Context) error {
	ac, err := authContext(ctx)
	if err != nil {
		return err
	}
	nav := ac.Logout(ctx.Request().Context())
	setFlash(ctx, resource.Success("You have been signed out."))
	return navigate(ctx, nav)
}
