package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
	"github.com/developer0000009-hue/schoolportal/core/dashboard"
	"github.com/developer0000009-hue/schoolportal/core/expense"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errMissingToken  = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")

	unavailableText = "The portal is temporarily unavailable."
	resetPath       = "/v1/onboarding"
)

// sentinel errors answered with their own status & message
var knownErrors = []struct {
	err  error
	code int
}{
	{core.ErrNotFound, http.StatusNotFound},
	{profile.ErrNotFound, http.StatusNotFound},
	{branch.ErrNotFound, http.StatusNotFound},
	{fee.ErrNotFound, http.StatusNotFound},
	{expense.ErrNotFound, http.StatusNotFound},
	{sharecode.ErrNotFound, http.StatusNotFound},
	{dashboard.ErrNoDashboard, http.StatusNotFound},
	{profile.ErrNoActiveRole, http.StatusConflict},
	{profile.ErrFormMismatch, http.StatusConflict},
	{onboarding.ErrTransitionInProgress, http.StatusConflict},
	{onboarding.ErrStepMismatch, http.StatusConflict},
	{branch.ErrMainBranch, http.StatusBadRequest},
	{sharecode.ErrNotRevocable, http.StatusBadRequest},
	{core.ErrNoAuth, http.StatusUnauthorized},
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			p, _ := core.PrincipalFrom(ctx.Request().Context())
			logger.Error(msg, errors.Wrap(err, msg), p, map[string]interface{}{"path": ctx.Path()})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			if ctx.Echo().Debug && code == http.StatusInternalServerError {
				m = err.Error()
			}
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// errorResponse maps err to a status code and a response body.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	var (
		herr  *echo.HTTPError
		verrs validator.ValidationErrors
		verr  *core.ValidationError
		terr  *onboarding.TransitionError
		oerr  *fee.OrphanError
		rerr  *core.RemoteError
	)

	switch {
	case errors.As(err, &herr):
		if herr.Internal != nil {
			if inner, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = inner
			}
		}
		return herr.Code, herr.Message
	case errors.As(err, &verrs):
		return http.StatusBadRequest, core.TranslateErrors(verrs, translator)
	case errors.As(err, &verr):
		if len(verr.Fields) > 0 {
			fldErrs := make(map[string]string, len(verr.Fields))
			for _, fErr := range verr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity, echo.Map{"error": terr.State.Error, "state": terr.State}
	case errors.As(err, &oerr):
		return http.StatusBadGateway, echo.Map{"error": core.ErrorMessage(oerr.Err), "structure_id": oerr.StructureID}
	}

	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			return known.code, known.err.Error()
		}
	}

	if errors.As(err, &rerr) {
		return http.StatusBadGateway, core.ErrorMessage(rerr)
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
