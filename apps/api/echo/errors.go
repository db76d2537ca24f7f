package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

const (
	msgValidation = "Error de validación"
	msgInternal   = "Error interno del servidor"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "usuario no autenticado")
	errInvalidToken       = echo.NewHTTPError(http.StatusUnauthorized, "token inválido o expirado")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "cuenta desactivada")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "el periodo de renovación expiró")
	errSelfChange         = echo.NewHTTPError(http.StatusForbidden, "no puedes cambiar tu propio rol o estado")
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var resp ErrorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			switch {
			case origErr == middleware.ErrJWTMissing:
				code = http.StatusUnauthorized
				resp.Message = "token de autenticación requerido"
			case origErr.Code == http.StatusUnauthorized && origErr.Internal != nil:
				code = http.StatusUnauthorized
				resp.Message = errInvalidToken.Message.(string)
			default:
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
				code = origErr.Code
				resp.Message = httpErrMessage(origErr)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Message = msgValidation
			for _, vErr := range origErr {
				resp.Errors = append(resp.Errors, vErr.Field()+": "+vErr.Translate(translator))
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Message = msgValidation
			seen := make(map[string]bool, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				seen[fErr.Field] = true
				resp.Errors = append(resp.Errors, fErr.Field+": "+fErr.Error)
			}
			if vErrs, ok := origErr.Err.(validator.ValidationErrors); ok {
				for _, vErr := range vErrs {
					if !seen[vErr.Field()] {
						resp.Errors = append(resp.Errors, vErr.Field()+": "+vErr.Translate(translator))
					}
				}
			}
			if len(resp.Errors) == 0 {
				resp.Errors = []string{origErr.Error()}
			}
		case *core.PermissionError:
			code = http.StatusForbidden
			resp.Message = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			resp.Message = msgInternal

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Email = claims.Email
			}
			logger.Error(msgInternal, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), usr)

			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) && signalShutdown != nil {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func httpErrMessage(herr *echo.HTTPError) string {
	if msg, ok := herr.Message.(string); ok {
		return msg
	}
	return http.StatusText(herr.Code)
}
