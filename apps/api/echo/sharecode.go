package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

type shareCodeApi struct {
	svc *sharecode.Service
}

func registerShareCodeAPI(g *echo.Group, admins echo.MiddlewareFunc, svc *sharecode.Service) {
	api := shareCodeApi{svc: svc}

	g.GET("/admissions/:id/share-codes", api.list, admins)
	g.POST("/admissions/:id/share-codes", api.generate, admins)
	g.POST("/share-codes/:id/revoke", api.revoke, admins)
}

// Handlers

func (api *shareCodeApi) list(ctx echo.Context) error {
	codes, err := api.svc.List(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing share codes")
	}
	return ctx.JSON(http.StatusOK, codes)
}

func (api *shareCodeApi) generate(ctx echo.Context) error {
	var data ShareCodeRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	code, err := api.svc.Generate(ctx.Request().Context(), ctx.Param("id"), data.Type)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, code)
}

func (api *shareCodeApi) revoke(ctx echo.Context) error {
	if err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
