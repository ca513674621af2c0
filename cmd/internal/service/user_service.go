package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/smithy-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"

	"medappointments/cmd/internal/authz"
	"medappointments/cmd/internal/domain/entity"
	cognitoclient "medappointments/cmd/internal/integration/aws/cognito"
	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/utils"
	"medappointments/cmd/internal/utils/apierror"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int) (*entity.User, error)
	FindBySub(ctx context.Context, sub string) (*entity.User, error)
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *entity.User) error
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=2,max=80"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=64,nospaces,hasspecial,hasdigit,hasupper,haslower"`
}

type CreateMedicalProfessionalRequest struct {
	Username  string `json:"username" validate:"required,min=2,max=80"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=64,nospaces,hasspecial,hasdigit,hasupper,haslower"`
	Specialty string `json:"specialty" validate:"required,max=80"`
}

type EditProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}

type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

type ConfirmSignupRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=1,max=6"`
}

type UserResponse struct {
	ID        int     `json:"id"`
	Sub       string  `json:"sub"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Specialty *string `json:"specialty,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type UserLoginResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int32  `json:"expires_in"`
}

type DefaultUserService struct {
	UserRepo UserRepository
	Validate *validator.Validate
	Cognito  cognitoclient.CognitoInterface
}

func NewUserService(userRepo UserRepository, validate *validator.Validate, cogClient cognitoclient.CognitoInterface) *DefaultUserService {
	return &DefaultUserService{UserRepo: userRepo, Validate: validate, Cognito: cogClient}
}

func (u *DefaultUserService) GetUsers(ctx context.Context, caller *identity.Caller) ([]*UserResponse, apierror.ErrorResponse) {
	if !caller.IsAdmin() {
		return nil, apierror.ForbiddenError
	}

	users, err := u.UserRepo.FindAll(ctx)
	if err != nil {
		log.Errorf("failed to fetch all users: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*UserResponse, len(users))
	for i, user := range users {
		resp[i] = toUserResponse(user)
	}
	return resp, nil
}

// GetUser resolves "@me" to the caller's own profile.
func (u *DefaultUserService) GetUser(ctx context.Context, rawId string, caller *identity.Caller) (*UserResponse, apierror.ErrorResponse) {
	user, apierr := u.fetchUser(ctx, rawId, caller)
	if apierr != nil {
		return nil, apierr
	}

	if user == nil {
		return nil, apierror.NewNotFound("User")
	}

	resp := toUserResponse(user)
	return resp, nil
}

// CreateUser creates a new patient on Cognito (as well as in our database),
// and sends a verification code to the user's email address.
func (u *DefaultUserService) CreateUser(ctx context.Context, req *CreateUserRequest) apierror.ErrorResponse {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	user := &entity.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	return u.register(ctx, user, req.Password, entity.RolePatient)
}

// CreateMedicalProfessional is the admin-only path for onboarding doctors.
func (u *DefaultUserService) CreateMedicalProfessional(ctx context.Context, req *CreateMedicalProfessionalRequest, caller *identity.Caller) apierror.ErrorResponse {
	if !authz.CanRegisterMedicalProfessional(caller) {
		return apierror.NewForbidden("Only admins can register medical professionals")
	}

	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	user := &entity.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Specialty: utils.StrPtr(req.Specialty),
	}
	return u.register(ctx, user, req.Password, entity.RoleMedicalProfessional)
}

func (u *DefaultUserService) Login(ctx context.Context, req *UserLoginRequest) (*UserLoginResponse, apierror.ErrorResponse) {
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	user, err := u.UserRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		log.Errorf("failed to fetch user from database: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.IDPUserNotFoundError
	}

	credentials := &cognitoclient.UserLogin{
		Email:    req.Email,
		Password: req.Password,
	}

	auth, apierr := handleUserSignin(ctx, u.Cognito, credentials)
	if apierr != nil {
		return nil, apierr
	}
	return &UserLoginResponse{
		AccessToken:  auth.AccessToken,
		IDToken:      auth.IDToken,
		RefreshToken: auth.RefreshToken,
		ExpiresIn:    auth.ExpiresIn,
	}, nil
}

func (u *DefaultUserService) ConfirmSignup(ctx context.Context, req *ConfirmSignupRequest) apierror.ErrorResponse {
	if err := u.Validate.Struct(req); err != nil {
		return apierror.FromValidationError(err)
	}

	user, err := u.UserRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		log.Errorf("failed to fetch user from database: %v", err)
		return apierror.InternalServerError
	}

	if user == nil {
		return apierror.IDPUserNotFoundError
	}

	if user.EmailVerified {
		return apierror.UserAlreadyConfirmedError
	}

	confirms := &cognitoclient.UserConfirmation{
		Email: req.Email,
		Code:  req.Code,
	}

	apierr := handleSignupConfirmation(ctx, u.Cognito, confirms)
	if apierr != nil {
		return apierr
	}

	user.EmailVerified = true
	err = u.UserRepo.Save(ctx, user)
	if err != nil {
		log.Errorf("failed to update user (%d) verified status: %v", user.ID, err)
	}
	return nil
}

// EditProfile changes the caller's display names only.
func (u *DefaultUserService) EditProfile(ctx context.Context, req *EditProfileRequest, caller *identity.Caller) (*UserResponse, apierror.ErrorResponse) {
	if caller == nil || caller.ID == "" {
		return nil, apierror.InvalidAuthTokenError
	}

	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	user, apierr := u.fetchBySub(ctx, caller.ID)
	if apierr != nil {
		return nil, apierr
	}

	if user == nil {
		return nil, apierror.NewNotFound("User")
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if err := u.UserRepo.Save(ctx, user); err != nil {
		log.Errorf("failed to update profile of user (%d): %v", user.ID, err)
		return nil, apierror.InternalServerError
	}
	return toUserResponse(user), nil
}

// register signs the account up on Cognito, puts it in the role's group and stores
// the local row. Cognito is rolled back when a later step fails.
func (u *DefaultUserService) register(ctx context.Context, user *entity.User, password string, role entity.Role) apierror.ErrorResponse {
	found, err := u.UserRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		log.Errorf("failed to check if user already exists: %v", err)
		return apierror.InternalServerError
	}

	if found {
		return apierror.UserAlreadyExistsError
	}

	cogUser := &cognitoclient.User{Email: user.Email, Password: password}
	uuid, apierr, revert := handleUserSignup(ctx, u.Cognito, cogUser)
	if apierr != nil {
		return apierr
	}

	if err := u.Cognito.AdminAddUserToGroup(ctx, user.Email, string(role)); err != nil {
		revert()
		log.Errorf("failed to add user (%s) to group %s: %v", user.Email, role, err)
		return apierror.InternalServerError
	}

	user.SubUUID = uuid
	user.EmailVerified = false
	err = u.UserRepo.Save(ctx, user)
	if err != nil {
		revert()
		log.Errorf("failed to create user: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

func (u *DefaultUserService) fetchUser(ctx context.Context, rawId string, caller *identity.Caller) (*entity.User, apierror.ErrorResponse) {
	if rawId == "@me" {
		if caller == nil || caller.ID == "" {
			return nil, apierror.InvalidAuthTokenError
		}
		return u.fetchBySub(ctx, caller.ID)
	}
	return u.fetchByID(ctx, rawId)
}

func (u *DefaultUserService) fetchBySub(ctx context.Context, sub string) (*entity.User, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindBySub(ctx, sub)
	if err != nil {
		log.Errorf("failed to find user (%s) by sub: %v", sub, err)
		return nil, apierror.InternalServerError
	}
	return user, nil
}

func (u *DefaultUserService) fetchByID(ctx context.Context, rawId string) (*entity.User, apierror.ErrorResponse) {
	userId, err := strconv.Atoi(rawId)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("id", "int32")
	}
	user, err := u.UserRepo.FindByID(ctx, userId)
	if err != nil {
		log.Errorf("failed to find user (%s) by id: %v", rawId, err)
		return nil, apierror.InternalServerError
	}
	return user, nil
}

func handleUserSignup(ctx context.Context, cogClient cognitoclient.CognitoInterface, req *cognitoclient.User) (string, apierror.ErrorResponse, func()) {
	revert := func() {
		_ = cogClient.AdminDeleteUser(context.WithoutCancel(ctx), req.Email)
	}

	uuid, err := cogClient.SignUp(ctx, req)
	if err == nil {
		return uuid, nil, revert
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidPasswordException":
			return "", apierror.IDPInvalidPasswordError, revert
		case "UsernameExistsException":
			return "", apierror.IDPExistingEmailError, revert
		default:
			log.Errorf("signup failed for user (%s): %s - %s", req.Email, apiErr.ErrorCode(), apiErr.ErrorMessage())
			return "", apierror.InternalServerError, revert
		}
	}

	log.Errorf("failed to signup user (%s): %v", req.Email, err)
	return "", apierror.InternalServerError, revert
}

func handleUserSignin(ctx context.Context, cogClient cognitoclient.CognitoInterface, req *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, apierror.ErrorResponse) {
	auth, err := cogClient.SignIn(ctx, req)
	if err == nil {
		return auth, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UserNotFoundException":
			return nil, apierror.IDPUserNotFoundError
		case "UserNotConfirmedException":
			return nil, apierror.IDPUserNotConfirmedError
		case "NotAuthorizedException":
			return nil, apierror.IDPCredentialsMismatchError
		default:
			log.Errorf("signin failed for user (%s): %s - %s", req.Email, apiErr.ErrorCode(), apiErr.ErrorMessage())
			return nil, apierror.InternalServerError
		}
	}

	log.Errorf("failed to signin user (%s): %v", req.Email, err)
	return nil, apierror.InternalServerError
}

func handleSignupConfirmation(ctx context.Context, cogClient cognitoclient.CognitoInterface, req *cognitoclient.UserConfirmation) apierror.ErrorResponse {
	err := cogClient.ConfirmAccount(ctx, req)
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "CodeMismatchException":
			return apierror.IDPConfirmCodeMismatchError
		case "ExpiredCodeException":
			return apierror.IDPConfirmCodeExpiredError
		case "UserNotFoundException":
			return apierror.IDPUserNotFoundError
		default:
			log.Errorf("confirmation failed for user (%s): %s - %s", req.Email, apiErr.ErrorCode(), apiErr.ErrorMessage())
			return apierror.InternalServerError
		}
	}

	log.Errorf("failed to confirm user (%s): %v", req.Email, err)
	return apierror.InternalServerError
}

func toUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Sub:       user.SubUUID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Specialty: user.Specialty,
		CreatedAt: utils.FormatEpoch(user.CreatedAt),
		UpdatedAt: utils.FormatEpoch(user.UpdatedAt),
	}
}
