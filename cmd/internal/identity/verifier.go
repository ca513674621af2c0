package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medappointments/cmd/internal/domain/entity"
)

// Claims covers both Cognito ID tokens (cognito:groups) and generic OIDC tokens (roles).
type Claims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email,omitempty"`
	Groups []string `json:"cognito:groups,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

type Config struct {
	// SigningKey enables HS256 verification. Meant for development and tests.
	SigningKey []byte
	Issuer     string
	Audience   string
	// JWKSURL defaults to <Issuer>/.well-known/jwks.json, which is where Cognito
	// publishes its user pool keys.
	JWKSURL string
}

type Verifier struct {
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

var ErrNoKeySource = errors.New("identity: either a signing key or an issuer/JWKS url is required")

func NewVerifier(cfg Config) (*Verifier, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	if len(cfg.SigningKey) > 0 {
		key := cfg.SigningKey
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		return &Verifier{
			keyFunc: func(*jwt.Token) (any, error) { return key, nil },
			opts:    opts,
		}, nil
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" {
		jwksURL = strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json"
	}
	if jwksURL == "" {
		return nil, ErrNoKeySource
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	return &Verifier{keyFunc: jwksKeyFunc(jwksURL), opts: opts}, nil
}

// Verify validates the token and maps its subject and groups to a Caller. Unknown
// group names are ignored.
func (v *Verifier) Verify(raw string) (*Caller, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	caller := &Caller{ID: claims.Subject, Email: claims.Email}
	for _, name := range append(claims.Groups, claims.Roles...) {
		if role, ok := entity.ParseRole(name); ok && !caller.HasRole(role) {
			caller.Roles = append(caller.Roles, role)
		}
	}
	return caller, nil
}

// IssueDevToken signs an HS256 token shaped like a Cognito ID token.
func IssueDevToken(key []byte, cfg Config, subject string, roles []entity.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	for _, r := range roles {
		claims.Groups = append(claims.Groups, string(r))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
