package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/role"
)

type onboardingApi struct {
	ctrl *onboarding.Controller
}

type profileFormResponse struct {
	Role string       `json:"role"`
	Form profile.Form `json:"form"`
}

func registerOnboardingAPI(g *echo.Group, ctrl *onboarding.Controller) {
	api := onboardingApi{ctrl: ctrl}

	og := g.Group("/onboarding")
	og.GET("", api.state)
	og.POST("/navigate", api.navigate)
	og.POST("/back", api.back)
	og.GET("/roles", api.roles)
	og.POST("/roles", api.selectRole)
	og.GET("/profile", api.profileForm)
	og.POST("/profile", api.submitProfile)
	og.GET("/plans", api.plans)
	og.POST("/plan", api.selectPlan)
	og.POST("/branches/complete", api.completeBranches)
}

// Handlers

func (api *onboardingApi) state(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	st, err := api.ctrl.State(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "getting onboarding state")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) navigate(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data NavigateRequest
	if err = bind(ctx, &data); err != nil {
		return err
	}
	st, err := api.ctrl.Navigate(ctx.Request().Context(), p, data.Step)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) back(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	st, err := api.ctrl.Back(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) roles(ctx echo.Context) error {
	catalog, err := api.ctrl.Roles(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting role catalog")
	}
	return ctx.JSON(http.StatusOK, catalog)
}

func (api *onboardingApi) selectRole(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data role.Selection
	if err = bind(ctx, &data); err != nil {
		return err
	}
	st, err := api.ctrl.SelectRole(ctx.Request().Context(), p, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) profileForm(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	form, err := api.ctrl.ProfileForm(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, profileFormResponse{Role: form.Kind().String(), Form: form})
}

func (api *onboardingApi) submitProfile(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	// the form variant depends on the active role: decoding is left to the controller
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading profile form")
	}
	if !json.Valid(body) {
		return core.NewValidationError(errors.New("malformed request body"))
	}
	st, err := api.ctrl.SubmitProfile(ctx.Request().Context(), p, body)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) plans(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, onboarding.Plans)
}

func (api *onboardingApi) selectPlan(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data onboarding.PlanSelection
	if err = bind(ctx, &data); err != nil {
		return err
	}
	st, err := api.ctrl.SelectPlan(ctx.Request().Context(), p, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *onboardingApi) completeBranches(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	st, err := api.ctrl.CompleteBranches(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}
