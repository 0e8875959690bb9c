package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/expense"
)

const (
	invoiceField   = "invoice"
	maxInvoiceSize = 10 << 20
)

var invoiceTooLargeText = "the invoice must not exceed 10 MB"

type expenseApi struct {
	svc *expense.Service
}

func registerExpenseAPI(g *echo.Group, finance echo.MiddlewareFunc, svc *expense.Service) {
	api := expenseApi{svc: svc}

	eg := g.Group("/expenses", finance)
	eg.GET("", api.list)
	eg.POST("", api.create)
	eg.PATCH("/:id/status", api.updateStatus)
}

// Handlers

func (api *expenseApi) list(ctx echo.Context) error {
	expenses, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

// create takes a multipart form: title, category, amount & an optional invoice file.
func (api *expenseApi) create(ctx echo.Context) error {
	var data expense.NewExpense
	data.Title = ctx.FormValue("title")
	data.Category = ctx.FormValue("category")
	if amount := strings.TrimSpace(ctx.FormValue("amount")); amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "amount", Error: "enter a valid amount"})
		}
		data.Amount = d
	}

	var invoice *expense.Invoice
	fh, err := ctx.FormFile(invoiceField)
	switch {
	case err == nil:
		if fh.Size > maxInvoiceSize {
			return core.NewValidationError(nil, core.FieldError{Field: invoiceField, Error: invoiceTooLargeText})
		}
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening invoice")
		}
		defer f.Close()
		invoice = &expense.Invoice{Filename: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return errors.Wrap(err, "reading invoice")
	}

	created, err := api.svc.Create(ctx.Request().Context(), data, invoice)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *expenseApi) updateStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
