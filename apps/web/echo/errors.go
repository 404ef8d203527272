package echoweb

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/auth"
	"github.com/trezcool/cace/core/resource"
	"github.com/trezcool/cace/services/backend"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

type errorView struct {
	Code    int
	Message string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
//
// A backend 401 is the network-layer recovery path: the transport has already cleared the
// credential, so the session's auth context is dropped and the browser is sent to the login page.
// The application-layer path (a failed verification signing the session out) is separate.
// The server is asked to shut down gracefully whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(s *Server) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if errors.Is(err, backend.ErrUnauthorized) {
			if sid := sessionID(ctx); sid != "" {
				s.manager.Forget(sid)
			}
			if !ctx.Response().Committed {
				setFlash(ctx, resource.Failure("Your session has expired, please sign in again."))
				if err = navigate(ctx, auth.Navigation{Path: auth.LoginPath, Replace: true}); err != nil {
					ctx.Echo().Logger.Error(err)
				}
			}
			return
		}

		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.ValidationErrorFrom(origErr, s.translator).Error()
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *backend.APIError:
			code = http.StatusBadGateway
			message = resource.FailureFrom(origErr, "The school service could not complete the request").Message
			s.logger.Warn(message, logArgs(ctx, errors.Wrap(err, "backend"))...)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)
			s.logger.Error(message, logArgs(ctx, errors.Wrap(err, message))...)

			// shutting down...
			if core.IsShutdown(err) {
				s.SignalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = s.render(ctx, code, "error", http.StatusText(code), errorView{Code: code, Message: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// logArgs appends the signed-in user, if any, to the logger args.
func logArgs(ctx echo.Context, args ...interface{}) []interface{} {
	if usr, err := contextUser(ctx); err == nil {
		args = append(args, usr)
	}
	return args
}
