package echoapi

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/profile"
)

// roleMiddleware only lets through callers whose active role is one of roles.
func roleMiddleware(profiles *profile.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return err
			}
			prof, err := profiles.Get(ctx.Request().Context(), p)
			if err != nil {
				if errors.Is(err, profile.ErrNotFound) {
					return errHttpForbidden
				}
				return errors.Wrap(err, "getting context profile")
			}
			if hasAnyRole(prof.Role.String, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func hasAnyRole(active string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == active {
			return true
		}
	}
	return false
}

// boundaryMiddleware recovers from panics: the caller gets a 503 with a link back to the
// onboarding state instead of a broken connection.
func boundaryMiddleware(logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				stack := make([]byte, 4<<10)
				stack = stack[:runtime.Stack(stack, false)]

				p, _ := core.PrincipalFrom(ctx.Request().Context())
				logger.Error("[PANIC RECOVER] "+perr.Error(), perr, p, map[string]interface{}{"stack": string(stack)})

				if !ctx.Response().Committed {
					err = ctx.JSON(http.StatusServiceUnavailable, echo.Map{"error": unavailableText, "reset": resetPath})
				}
			}()
			return next(ctx)
		}
	}
}
