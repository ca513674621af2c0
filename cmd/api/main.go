package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medappointments/cmd/internal/config"
	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/identity"
	cognitoclient "medappointments/cmd/internal/integration/aws/cognito"
	"medappointments/cmd/internal/metrics"
	"medappointments/cmd/internal/middleware"
	"medappointments/cmd/internal/routes"
	"medappointments/cmd/internal/service"
	"medappointments/cmd/internal/utils/validators"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medappointments",
		Short: "Medical appointments API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			repos, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			repos.close()
			fmt.Printf("Schema is up to date (%s).\n", cfg.DatabaseDriver)
			return nil
		},
	}
}

// tokenCmd prints a signed token for local use with AUTH_SIGNING_KEY.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a development token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return errors.New("AUTH_SIGNING_KEY is not set")
			}

			names, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			var roles []entity.Role
			for _, name := range names {
				role, ok := entity.ParseRole(name)
				if !ok {
					return fmt.Errorf("unknown role %q", name)
				}
				roles = append(roles, role)
			}

			token, err := identity.IssueDevToken([]byte(cfg.AuthSigningKey), verifierConfig(cfg), args[0], roles, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringSlice("role", []string{string(entity.RolePatient)}, "Roles to grant (Admin, MedicalProfessional, Patient)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func verifierConfig(cfg *config.Config) identity.Config {
	issuer := cfg.AuthIssuer
	if issuer == "" {
		issuer = cfg.CognitoIssuer()
	}
	return identity.Config{
		SigningKey: []byte(cfg.AuthSigningKey),
		Issuer:     issuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
	}
}

func runServer(cfg *config.Config) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	ctx := context.Background()
	validate := validators.New()

	repos, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer repos.close()
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("connected to database")

	verifier, err := identity.NewVerifier(verifierConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	var appMetrics *metrics.Metrics
	if cfg.MetricsEnabled {
		appMetrics = metrics.New()
	}

	// Getting services
	apptService := service.NewAppointmentService(repos.appointments, validate, appMetrics)
	historyService := service.NewMedicalHistoryService(repos.histories, validate)

	// Getting routes
	apptRoutes := routes.NewAppointmentDefault(apptService)
	historyRoutes := routes.NewMedicalHistoryDefault(historyService)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))

	auth := identity.Middleware(verifier)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if appMetrics != nil {
		e.GET("/metrics", echo.WrapHandler(appMetrics.Handler()))
	}

	// Appointments
	e.GET("/api/appointments/available", apptRoutes.GetAvailable)
	e.GET("/api/appointments/mine", apptRoutes.GetMine, auth)
	e.GET("/api/appointments", apptRoutes.GetAppointments, auth)
	e.POST("/api/appointments", apptRoutes.CreateAppointment, auth)
	e.GET("/api/appointments/:id", apptRoutes.GetAppointment, auth)
	e.POST("/api/appointments/:id/book", apptRoutes.BookAppointment, auth)
	e.POST("/api/appointments/:id/cancel", apptRoutes.CancelAppointment, auth)
	e.POST("/api/appointments/:id/complete", apptRoutes.CompleteAppointment, auth)
	e.DELETE("/api/appointments/:id", apptRoutes.DeleteAppointment, auth)

	// Pseudo-entity "Calendar" listing the open slots of a month
	e.GET("/api/calendar", apptRoutes.GetCalendar)

	// Medical histories
	e.POST("/api/medical-histories", historyRoutes.CreateEntry, auth)
	e.GET("/api/medical-histories", historyRoutes.GetMine, auth)
	e.GET("/api/medical-histories/all", historyRoutes.GetAll, auth)
	e.GET("/api/medical-histories/patient/:patientId", historyRoutes.GetByPatient, auth)
	e.GET("/api/medical-histories/:id", historyRoutes.GetEntry, auth)
	e.PUT("/api/medical-histories/:id", historyRoutes.UpdateEntry, auth)
	e.DELETE("/api/medical-histories/:id", historyRoutes.DeleteEntry, auth)

	// Users need the identity provider for signup and login.
	if cfg.CognitoUserPoolID != "" {
		cogClient, err := cognitoclient.InitCognitoClient(ctx, cognitoclient.Config{
			Region:       cfg.CognitoRegion,
			UserPoolID:   cfg.CognitoUserPoolID,
			ClientID:     cfg.CognitoClientID,
			ClientSecret: cfg.CognitoClientSecret,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize cognito client")
		}

		userRoutes := routes.NewUserDefault(service.NewUserService(repos.users, validate, cogClient))
		e.GET("/api/users", userRoutes.GetUsers, auth)
		e.GET("/api/users/:id", userRoutes.GetUser, auth)
		e.PUT("/api/users/@me", userRoutes.EditProfile, auth)
		e.POST("/api/users", userRoutes.CreateUser)
		e.POST("/api/users/medical-professionals", userRoutes.CreateMedicalProfessional, auth)
		e.POST("/api/users/login", userRoutes.CreateLogin)
		e.POST("/api/users/verify", userRoutes.VerifySignup)
	} else {
		logger.Warn().Msg("COGNITO_USER_POOL_ID not set, user routes are disabled")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
