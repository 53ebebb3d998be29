package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/invoice"
)

type invoiceApi struct {
	svc      invoice.ServiceInterface
	validate *validator.Validate
}

func registerInvoiceAPI(g *echo.Group, svc invoice.ServiceInterface, validate *validator.Validate) {
	api := invoiceApi{svc: svc, validate: validate}

	ig := g.Group("/invoices")
	ig.POST("/preview", api.preview)
	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update)
	ig.POST("/:id/pay", api.pay)
	ig.POST("/:id/void", api.void)
	ig.DELETE("/:id", api.destroy)
}

// preview recomputes totals for the submitted selection state without
// persisting anything. The wizard calls it on every change.
func (api *invoiceApi) preview(ctx echo.Context) error {
	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	totals, err := api.svc.Preview(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "previewing invoice")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *invoiceApi) create(ctx echo.Context) error {
	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []invoice.Invoice{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invs, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invs == nil {
		invs = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	inv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) update(ctx echo.Context) error {
	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		switch errors.Cause(err) {
		case invoice.ErrNotFound:
			return errHttpNotFound
		case invoice.ErrNotEditable:
			return errHttpNotEditable
		}
		return errors.Wrap(err, "updating invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) pay(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.MarkPaid)
}

func (api *invoiceApi) void(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.Void)
}

func (api *invoiceApi) setStatus(ctx echo.Context, op func(c context.Context, id string) (invoice.Invoice, error)) error {
	inv, err := op(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case invoice.ErrNotFound:
			return errHttpNotFound
		case invoice.ErrNotEditable:
			return errHttpNotEditable
		}
		return errors.Wrap(err, "setting invoice status")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		switch errors.Cause(err) {
		case invoice.ErrNotFound:
			return errHttpNotFound
		case invoice.ErrNotEditable:
			return errHttpNotEditable
		}
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.NoContent(http.StatusNoContent)
}
