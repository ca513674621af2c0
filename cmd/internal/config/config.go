package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseDriver      string   `mapstructure:"DATABASE_DRIVER"`
	DatabasePath        string   `mapstructure:"DATABASE_PATH"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	AuthSigningKey      string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string   `mapstructure:"AUTH_AUDIENCE"`
	CognitoRegion       string   `mapstructure:"COGNITO_REGION"`
	CognitoUserPoolID   string   `mapstructure:"COGNITO_USER_POOL_ID"`
	CognitoClientID     string   `mapstructure:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string   `mapstructure:"COGNITO_CLIENT_SECRET"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	MetricsEnabled      bool     `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
	"COGNITO_REGION", "COGNITO_USER_POOL_ID", "COGNITO_CLIENT_ID", "COGNITO_CLIENT_SECRET",
	"CORS_ORIGINS", "METRICS_ENABLED",
}

// Load reads .env (when present) into the process environment and then resolves every
// key from the environment on top of the defaults.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env is fine; the environment alone may be enough.
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "6060")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "./database.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("METRICS_ENABLED", true)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the store and token verification are configured consistently.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DatabaseDriver)
	}

	if c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return errors.New("one of AUTH_SIGNING_KEY, AUTH_ISSUER or AUTH_JWKS_URL must be set")
	}
	if c.AuthSigningKey != "" && !c.IsDev() {
		return errors.New("AUTH_SIGNING_KEY is only allowed when ENV=development")
	}
	return nil
}

// CognitoIssuer is the token issuer of the configured user pool, or "" when the pool
// is not configured.
func (c *Config) CognitoIssuer() string {
	if c.CognitoRegion == "" || c.CognitoUserPoolID == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.CognitoRegion, c.CognitoUserPoolID)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
