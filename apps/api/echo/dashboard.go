package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core/dashboard"
	"github.com/developer0000009-hue/schoolportal/core/profile"
)

type dashboardApi struct {
	profiles *profile.Service
	svc      *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, profiles *profile.Service, svc *dashboard.Service) {
	api := dashboardApi{profiles: profiles, svc: svc}
	g.GET("/dashboard", api.retrieve)
}

// retrieve builds the dashboard of the active role. Users still onboarding have none.
func (api *dashboardApi) retrieve(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	prof, err := api.profiles.Get(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	if !prof.ProfileCompleted || !prof.Role.Valid {
		return dashboard.ErrNoDashboard
	}
	dash, err := api.svc.Build(ctx.Request().Context(), p, prof.Role.String)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}
