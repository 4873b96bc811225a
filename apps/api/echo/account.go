package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/application"
	"github.com/trezcool/shule/core/user"
)

type accountApi struct {
	svc      application.Service
	validate *validator.Validate
}

// registerAccountAPI wires the invite redemption endpoints. They are un-authed;
// possession of a live invite token is the credential.
func registerAccountAPI(g *echo.Group, svc application.Service, validate *validator.Validate) {
	api := accountApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/accounts")
	ag.POST("/student", api.redeemStudent)
	ag.POST("/tutor", api.redeemTutor)
	ag.POST("/parent", api.redeemParent)
}

type (
	RedeemInviteRequest struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	}

	AccountCreatedResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}
)

func (rr RedeemInviteRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(rr); err != nil {
		return err
	}
	// the full password policy lives on SetUserPassword
	sp := user.SetUserPassword{Password: rr.Password, PasswordConfirm: rr.PasswordConfirm}
	return sp.Validate(validate)
}

type redeemFunc func(ctx echo.Context, rawToken, password string) (user.User, error)

func (api *accountApi) redeem(ctx echo.Context, fn redeemFunc, what string) error {
	var data RedeemInviteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RedeemInviteRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := fn(ctx, data.Token, data.Password)
	if err != nil {
		return errors.Wrapf(err, "redeeming %s invite", what)
	}

	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AccountCreatedResponse{User: usr, Token: token})
}

func (api *accountApi) redeemStudent(ctx echo.Context) error {
	return api.redeem(ctx, func(ctx echo.Context, rawToken, password string) (user.User, error) {
		return api.svc.RedeemStudent(ctx.Request().Context(), rawToken, password)
	}, "student")
}

func (api *accountApi) redeemTutor(ctx echo.Context) error {
	return api.redeem(ctx, func(ctx echo.Context, rawToken, password string) (user.User, error) {
		return api.svc.RedeemTutor(ctx.Request().Context(), rawToken, password)
	}, "tutor")
}

func (api *accountApi) redeemParent(ctx echo.Context) error {
	return api.redeem(ctx, func(ctx echo.Context, rawToken, password string) (user.User, error) {
		return api.svc.RedeemParent(ctx.Request().Context(), rawToken, password)
	}, "parent")
}
