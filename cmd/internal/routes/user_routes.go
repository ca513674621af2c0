package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/service"
	"medappointments/cmd/internal/utils/apierror"
)

type UserService interface {
	GetUsers(ctx context.Context, caller *identity.Caller) ([]*service.UserResponse, apierror.ErrorResponse)
	GetUser(ctx context.Context, rawId string, caller *identity.Caller) (*service.UserResponse, apierror.ErrorResponse)
	CreateUser(ctx context.Context, req *service.CreateUserRequest) apierror.ErrorResponse
	CreateMedicalProfessional(ctx context.Context, req *service.CreateMedicalProfessionalRequest, caller *identity.Caller) apierror.ErrorResponse
	Login(ctx context.Context, req *service.UserLoginRequest) (*service.UserLoginResponse, apierror.ErrorResponse)
	ConfirmSignup(ctx context.Context, req *service.ConfirmSignupRequest) apierror.ErrorResponse
	EditProfile(ctx context.Context, req *service.EditProfileRequest, caller *identity.Caller) (*service.UserResponse, apierror.ErrorResponse)
}

type DefaultUserRoute struct {
	UserService UserService
}

func NewUserDefault(userService UserService) *DefaultUserRoute {
	return &DefaultUserRoute{UserService: userService}
}

func (u *DefaultUserRoute) GetUsers(c echo.Context) error {
	users, apierr := u.UserService.GetUsers(c.Request().Context(), caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"users": users}
	return c.JSON(http.StatusOK, &resp)
}

func (u *DefaultUserRoute) GetUser(c echo.Context) error {
	rawId := strings.TrimSpace(c.Param("id"))
	if rawId == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	user, apierr := u.UserService.GetUser(c.Request().Context(), rawId, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, user)
}

func (u *DefaultUserRoute) CreateUser(c echo.Context) error {
	var req service.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	err := u.UserService.CreateUser(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(err.Code(), err)
	}
	return c.NoContent(http.StatusCreated)
}

func (u *DefaultUserRoute) CreateMedicalProfessional(c echo.Context) error {
	var req service.CreateMedicalProfessionalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	err := u.UserService.CreateMedicalProfessional(c.Request().Context(), &req, caller(c))
	if err != nil {
		return c.JSON(err.Code(), err)
	}
	return c.NoContent(http.StatusCreated)
}

func (u *DefaultUserRoute) CreateLogin(c echo.Context) error {
	var req service.UserLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := u.UserService.Login(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (u *DefaultUserRoute) VerifySignup(c echo.Context) error {
	var req service.ConfirmSignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	apierr := u.UserService.ConfirmSignup(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (u *DefaultUserRoute) EditProfile(c echo.Context) error {
	var req service.EditProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	user, apierr := u.UserService.EditProfile(c.Request().Context(), &req, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, user)
}
