package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/fee"
)

type feeApi struct {
	svc      *fee.Service
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, finance echo.MiddlewareFunc, svc *fee.Service, validate *validator.Validate) {
	api := feeApi{svc: svc, validate: validate}

	fg := g.Group("/fee-structures", finance)
	fg.GET("", api.list)
	fg.POST("", api.finalize)
	fg.POST("/wizard", api.wizard)
	fg.POST("/:id/publish", api.publish)
}

// Handlers

func (api *feeApi) list(ctx echo.Context) error {
	structures, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing fee structures")
	}
	return ctx.JSON(http.StatusOK, structures)
}

// wizard applies one action to a draft and answers with the draft and its total.
// The draft lives on the client between calls.
func (api *feeApi) wizard(ctx echo.Context) error {
	var data WizardRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	draft := data.Draft
	if draft == nil {
		draft = fee.NewDraft()
	}

	switch data.Action {
	case wizardAdvance:
		if err := draft.Advance(api.validate); err != nil {
			return err
		}
	case wizardBack:
		draft.Back()
	case wizardAddComponent:
		draft.AddComponent()
	case wizardRemoveComponent:
		draft.RemoveComponent(data.Index)
	case wizardReview, "":
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "unknown wizard action"})
	}

	summary, err := draft.Summary()
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "components", Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *feeApi) finalize(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data FinalizeRequest
	if err = bind(ctx, &data); err != nil {
		return err
	}
	created, err := api.svc.Finalize(ctx.Request().Context(), p, data.Draft, data.Publish)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *feeApi) publish(ctx echo.Context) error {
	if err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
