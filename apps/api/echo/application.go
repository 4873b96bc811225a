package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/application"
)

type applicationApi struct {
	svc      application.Service
	validate *validator.Validate
}

func registerApplicationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc application.Service,
	validate *validator.Validate,
) {
	api := applicationApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/applications")

	// un-authed endpoints
	ag.POST("/student", api.submitStudent)
	ag.POST("/tutor", api.submitTutor)

	// review endpoints
	adm := ag.Group("", jwt, adminMiddleware())
	adm.GET("", api.query)
	adm.GET("/:id", api.retrieve)
	adm.POST("/:id/approve", api.approve)
	adm.POST("/:id/reject", api.reject)
}

// Handlers

func (api *applicationApi) submitStudent(ctx echo.Context) error {
	var data application.NewStudentApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudentApplication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.SubmitStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting student application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) submitTutor(ctx echo.Context) error {
	var data application.NewTutorApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTutorApplication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.SubmitTutor(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting tutor application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) query(ctx echo.Context) error {
	filter := new(application.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	apps, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding application by ID")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) approve(ctx echo.Context) error {
	app, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) reject(ctx echo.Context) error {
	var data application.RejectApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectApplication")
	}

	app, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, app)
}
