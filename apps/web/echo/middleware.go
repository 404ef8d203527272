package echoweb

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/services/backend"
)

// echo.Context keys
const (
	sidKey  = "sid"
	authKey = "auth"
	userKey = "user"
)

var errUserNotInCtx = errors.New("session user not found in echo.Context")

// sessionMiddleware binds the request to its browser session, issuing a new session cookie
// when the request carries none. The cookie has no expiry: it ends with the browser session.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if ctx.Path() == healthPath {
			return next(ctx)
		}

		var sid string
		if c, err := ctx.Cookie(s.conf.Session.CookieName); err == nil && session.ValidID(c.Value) {
			sid = c.Value
		} else {
			sid = session.NewID()
			ctx.SetCookie(&http.Cookie{
				Name:     s.conf.Session.CookieName,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.conf.Server.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx.Set(sidKey, sid)
		ctx.Set(authKey, s.manager.Get(ctx.Request().Context(), sid))
		return next(ctx)
	}
}

// guardMiddleware lets a request through only once its session is resolved to a user whose
// role matches the requested area. Resolution is awaited for at most auth.guardWait.
func (s *Server) guardMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ac, err := authContext(ctx)
		if err != nil {
			return err
		}

		waitCtx, cancel := context.WithTimeout(ctx.Request().Context(), s.conf.Auth.GuardWait)
		st, _ := ac.Wait(waitCtx)
		cancel()

		d := auth.Guard(st, ctx.Request().URL.Path)
		switch d.Kind {
		case auth.Pending:
			return s.render(ctx, http.StatusOK, "loading", "Loading", nil)
		case auth.Denied, auth.Mismatch:
			return navigate(ctx, d.Redirect)
		}
		ctx.Set(userKey, *st.User)
		return next(ctx)
	}
}

// adminMiddleware is the per-page admin check of the administration area.
func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := contextUser(ctx)
		if err != nil || !usr.IsAdmin() {
			return navigate(ctx, auth.Navigation{Path: auth.LoginPath, Replace: true})
		}
		return next(ctx)
	}
}

// client returns the backend client of the request's session. A 401 from the backend drops
// the session's auth context so that the next request starts over.
func (s *Server) client(ctx echo.Context) *backend.Client {
	sid := sessionID(ctx)
	return s.backends.Client(session.NewSlot(s.store, sid), func(context.Context) {
		s.manager.Forget(sid)
	})
}

func sessionID(ctx echo.Context) string {
	sid, _ := ctx.Get(sidKey).(string)
	return sid
}

func authContext(ctx echo.Context) (*auth.Context, error) {
	ac, ok := ctx.Get(authKey).(*auth.Context)
	if !ok {
		return nil, errors.New("auth context not found in echo.Context")
	}
	return ac, nil
}

func contextUser(ctx echo.Context) (auth.SessionUser, error) {
	usr, ok := ctx.Get(userKey).(auth.SessionUser)
	if !ok {
		return auth.SessionUser{}, errUserNotInCtx
	}
	return usr, nil
}

// navigate performs nav. Server redirects never add a history entry, so every
// navigation replaces.
func navigate(ctx echo.Context, nav auth.Navigation) error {
	return ctx.Redirect(http.StatusSeeOther, nav.Path)
}
