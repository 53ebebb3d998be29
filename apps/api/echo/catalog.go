package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/catalog"
)

type catalogApi struct {
	svc      catalog.ServiceInterface
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, svc catalog.ServiceInterface, validate *validator.Validate) {
	api := catalogApi{svc: svc, validate: validate}

	sg := g.Group("/subjects")
	sg.POST("", api.createSubject)
	sg.GET("", api.querySubjects)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject)
	sg.DELETE("/:id", api.destroySubject)

	ag := g.Group("/addons")
	ag.POST("", api.createAddOn)
	ag.GET("", api.queryAddOns)
	ag.GET("/:id", api.retrieveAddOn)
	ag.PUT("/:id", api.updateAddOn)
	ag.DELETE("/:id", api.destroyAddOn)
}

// Subject handlers

func (api *catalogApi) createSubject(ctx echo.Context) error {
	var data catalog.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// querySubjects lists subjects. Without an explicit is_active filter it
// returns only active subjects scoped to an optional class_level, which is
// what the enrollment and invoice wizards consume.
func (api *catalogApi) querySubjects(ctx echo.Context) error {
	filter := new(catalog.SubjectQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Subject{})
	}
	filter.Clean()

	var subs []catalog.Subject
	var err error
	if filter.IsActive == nil && filter.Search == "" {
		subs, err = api.svc.QueryActiveSubjects(ctx.Request().Context(), filter.ClassLevel)
	} else {
		subs, err = api.svc.FilterSubjects(ctx.Request().Context(), *filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subs == nil {
		subs = []catalog.Subject{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *catalogApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubjectByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) updateSubject(ctx echo.Context) error {
	orig, err := api.svc.GetSubjectByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting subject")
	}

	var data catalog.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(api.validate, orig, api.svc); err != nil {
		return err
	}

	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) destroySubject(ctx echo.Context) error {
	if _, err := api.svc.GetSubjectByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == catalog.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting subject")
	}
	if err := api.svc.DeleteSubjects(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// AddOn handlers

func (api *catalogApi) createAddOn(ctx echo.Context) error {
	var data catalog.NewAddOn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAddOn")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	ao, err := api.svc.CreateAddOn(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating add-on")
	}
	return ctx.JSON(http.StatusCreated, ao)
}

func (api *catalogApi) queryAddOns(ctx echo.Context) error {
	aos, err := api.svc.QueryActiveAddOns(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying add-ons")
	}
	if aos == nil {
		aos = []catalog.AddOn{}
	}
	return ctx.JSON(http.StatusOK, aos)
}

func (api *catalogApi) retrieveAddOn(ctx echo.Context) error {
	ao, err := api.svc.GetAddOnByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrAddOnNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting add-on")
	}
	return ctx.JSON(http.StatusOK, ao)
}

func (api *catalogApi) updateAddOn(ctx echo.Context) error {
	orig, err := api.svc.GetAddOnByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrAddOnNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting add-on")
	}

	var data catalog.UpdateAddOn
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAddOn")
	}
	if err = data.Validate(api.validate, orig, api.svc); err != nil {
		return err
	}

	ao, err := api.svc.UpdateAddOn(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating add-on")
	}
	return ctx.JSON(http.StatusOK, ao)
}

func (api *catalogApi) destroyAddOn(ctx echo.Context) error {
	if _, err := api.svc.GetAddOnByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == catalog.ErrAddOnNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting add-on")
	}
	if err := api.svc.DeleteAddOns(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting add-on")
	}
	return ctx.NoContent(http.StatusNoContent)
}
