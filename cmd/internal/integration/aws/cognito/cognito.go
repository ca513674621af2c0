package cognitoclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type User struct {
	Email    string
	Password string
}

type UserLogin struct {
	Email    string
	Password string
}

type UserConfirmation struct {
	Email string
	Code  string
}

type AuthCreate struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
}

type CognitoInterface interface {
	SignUp(ctx context.Context, user *User) (string, error)
	SignIn(ctx context.Context, login *UserLogin) (*AuthCreate, error)
	ConfirmAccount(ctx context.Context, confirm *UserConfirmation) error
	AdminAddUserToGroup(ctx context.Context, email, group string) error
	AdminDeleteUser(ctx context.Context, email string) error
}

// identityProviderAPI is the subset of the Cognito SDK client used here.
type identityProviderAPI interface {
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	AdminAddUserToGroup(ctx context.Context, in *cognitoidentityprovider.AdminAddUserToGroupInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error)
	AdminDeleteUser(ctx context.Context, in *cognitoidentityprovider.AdminDeleteUserInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

type Config struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
}

type cognitoClient struct {
	api          identityProviderAPI
	userPoolID   string
	clientID     string
	clientSecret string
}

var ErrMissingConfig = errors.New("cognito: region, user pool id and client id are required")

// InitCognitoClient builds a client from the default AWS credential chain.
func InitCognitoClient(ctx context.Context, cfg Config) (CognitoInterface, error) {
	if cfg.Region == "" || cfg.UserPoolID == "" || cfg.ClientID == "" {
		return nil, ErrMissingConfig
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newClient(cognitoidentityprovider.NewFromConfig(awsCfg), cfg), nil
}

func newClient(api identityProviderAPI, cfg Config) *cognitoClient {
	return &cognitoClient{
		api:          api,
		userPoolID:   cfg.UserPoolID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// SignUp registers the user and returns its sub.
func (c *cognitoClient) SignUp(ctx context.Context, user *User) (string, error) {
	out, err := c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(user.Email),
		Password:   aws.String(user.Password),
		SecretHash: c.secretHash(user.Email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(user.Email)},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UserSub), nil
}

func (c *cognitoClient) SignIn(ctx context.Context, login *UserLogin) (*AuthCreate, error) {
	params := map[string]string{
		"USERNAME": login.Email,
		"PASSWORD": login.Password,
	}
	if hash := c.secretHash(login.Email); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, err
	}

	res := out.AuthenticationResult
	if res == nil {
		// A challenge (e.g. NEW_PASSWORD_REQUIRED) is not supported by this API.
		return nil, fmt.Errorf("cognito: unsupported auth challenge %q", out.ChallengeName)
	}
	return &AuthCreate{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

func (c *cognitoClient) ConfirmAccount(ctx context.Context, confirm *UserConfirmation) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(confirm.Email),
		ConfirmationCode: aws.String(confirm.Code),
		SecretHash:       c.secretHash(confirm.Email),
	})
	return err
}

// AdminAddUserToGroup places the user in a Cognito group. Groups are the roles carried
// in the "cognito:groups" claim.
func (c *cognitoClient) AdminAddUserToGroup(ctx context.Context, email, group string) error {
	_, err := c.api.AdminAddUserToGroup(ctx, &cognitoidentityprovider.AdminAddUserToGroupInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
		GroupName:  aws.String(group),
	})
	return err
}

func (c *cognitoClient) AdminDeleteUser(ctx context.Context, email string) error {
	_, err := c.api.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
	})
	return err
}

// secretHash is nil for app clients without a secret.
func (c *cognitoClient) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(username + c.clientID))
	hash := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return &hash
}
