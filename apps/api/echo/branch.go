package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core/branch"
)

type branchApi struct {
	svc *branch.Service
}

func registerBranchAPI(g *echo.Group, admins echo.MiddlewareFunc, svc *branch.Service) {
	api := branchApi{svc: svc}

	bg := g.Group("/branches", admins)
	bg.GET("", api.list)
	bg.POST("", api.create)
	bg.POST("/resolve-address", api.resolveAddress)
	bg.PUT("/:id", api.update)
	bg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *branchApi) list(ctx echo.Context) error {
	branches, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing branches")
	}
	return ctx.JSON(http.StatusOK, branches)
}

func (api *branchApi) create(ctx echo.Context) error {
	var data branch.Input
	if err := bind(ctx, &data); err != nil {
		return err
	}
	created, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *branchApi) update(ctx echo.Context) error {
	var data branch.Input
	if err := bind(ctx, &data); err != nil {
		return err
	}
	updated, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *branchApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *branchApi) resolveAddress(ctx echo.Context) error {
	var data ResolveAddressRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.ResolveAddress(ctx.Request().Context(), data.Address))
}
