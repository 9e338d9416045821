package main

import (
	"context"
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

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/casenote"
	"github.com/clinicdesk/clinicdesk/internal/domain/dashboard"
	"github.com/clinicdesk/clinicdesk/internal/domain/exercise"
	"github.com/clinicdesk/clinicdesk/internal/domain/identity"
	"github.com/clinicdesk/clinicdesk/internal/domain/observation"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/realtime"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic patient management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metricsReg := metrics.NewRegistry()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metricsReg.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// Repositories and services
	identitySvc := identity.NewService(identity.NewRepo(pool))

	patientRepo := patient.NewRepo(pool)
	deleter := patient.NewDeleter(patientRepo, logger)
	patientSvc := patient.NewService(patientRepo, deleter)

	visitSvc := visit.NewService(visit.NewRepo(pool), logger)
	obsSvc := observation.NewService(observation.NewRepo(pool), logger)
	rxSvc := prescription.NewService(prescription.NewRepo(pool))
	planSvc := exercise.NewService(exercise.NewRepo(pool), logger)

	noteSvc := casenote.NewService(casenote.NewRepo(pool), patientSvc, visitSvc, obsSvc, planSvc)
	visitSvc.SetCaseNoteProjector(noteSvc)
	obsSvc.SetCaseNoteProjector(noteSvc)
	planSvc.SetCaseNoteProjector(noteSvc)

	dashboardSvc := dashboard.NewService(patientSvc, visitSvc, rxSvc)

	// Cascade deletion: each clinical collection contributes its
	// referencing record ids and an idempotent delete.
	deleter.AddCollector(patient.Collector{
		Collection: "visits",
		ListIDs:    visitSvc.VisitIDsByPatient,
		Delete:     visitSvc.DeleteVisitRaw,
	})
	deleter.AddCollector(patient.Collector{
		Collection: "doctor_observations",
		ListIDs:    obsSvc.ObservationIDsByPatient,
		Delete:     obsSvc.DeleteObservation,
	})
	deleter.AddCollector(patient.Collector{
		Collection: "prescriptions",
		ListIDs:    rxSvc.PrescriptionIDsByPatient,
		Delete:     rxSvc.DeletePrescriptionRaw,
	})
	deleter.AddCollector(patient.Collector{
		Collection: "exercise_plans",
		ListIDs:    planSvc.PlanIDsByPatient,
		Delete:     planSvc.DeletePlanRaw,
	})
	deleter.AddCollector(patient.Collector{
		Collection: "case_notes",
		ListIDs:    noteSvc.CaseNoteIDsByPatient,
		Delete:     noteSvc.DeleteCaseNote,
	})

	// Realtime snapshot feeds. Each mutation marks its collection dirty;
	// the broker coalesces rapid changes into a single snapshot load.
	hub := realtime.NewHub(logger)
	broker := realtime.NewBroker(hub, logger)

	broker.RegisterFeed("patients", func(ctx context.Context) (interface{}, error) {
		patients, _, err := patientSvc.ListPatients(ctx, pagination.MaxLimit, 0)
		return patients, err
	})
	broker.RegisterFeed("visits", func(ctx context.Context) (interface{}, error) {
		visits, _, err := visitSvc.ListVisits(ctx, pagination.MaxLimit, 0)
		return visits, err
	})
	broker.RegisterFeed("doctorObservations", func(ctx context.Context) (interface{}, error) {
		obs, _, err := obsSvc.ListObservations(ctx, pagination.MaxLimit, 0)
		return obs, err
	})
	broker.RegisterFeed("prescriptions", func(ctx context.Context) (interface{}, error) {
		rx, _, err := rxSvc.ListPrescriptions(ctx, pagination.MaxLimit, 0)
		return rx, err
	})
	broker.RegisterFeed("exercisePlans", func(ctx context.Context) (interface{}, error) {
		plans, _, err := planSvc.ListPlans(ctx, pagination.MaxLimit, 0)
		return plans, err
	})
	broker.RegisterFeed("caseNotes", func(ctx context.Context) (interface{}, error) {
		notes, _, err := noteSvc.ListCaseNotes(ctx, pagination.MaxLimit, 0)
		return notes, err
	})

	patientSvc.SetChangeNotifier(func() { broker.MarkDirty("patients") })
	visitSvc.SetChangeNotifier(func() { broker.MarkDirty("visits") })
	obsSvc.SetChangeNotifier(func() { broker.MarkDirty("doctorObservations") })
	rxSvc.SetChangeNotifier(func() { broker.MarkDirty("prescriptions") })
	planSvc.SetChangeNotifier(func() { broker.MarkDirty("exercisePlans") })
	noteSvc.SetChangeNotifier(func() { broker.MarkDirty("caseNotes") })

	brokerCtx, stopBroker := context.WithCancel(ctx)
	defer stopBroker()
	go broker.Run(brokerCtx)

	wsHandler := realtime.NewHandler(hub, metricsReg.WSClientConnected, metricsReg.WSClientDisconnected)

	// Pool gauges for the metrics endpoint.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-brokerCtx.Done():
				return
			case <-ticker.C:
				stats := db.GetPoolStats(pool)
				metricsReg.SetDBPoolStats(int64(stats.AcquiredConns), int64(stats.IdleConns))
			}
		}
	}()

	// Routes
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1)
	observation.NewHandler(obsSvc).RegisterRoutes(apiV1)
	prescription.NewHandler(rxSvc).RegisterRoutes(apiV1)
	exercise.NewHandler(planSvc).RegisterRoutes(apiV1)
	casenote.NewHandler(noteSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", metricsReg.Handler())
	e.GET("/ws", wsHandler.HandleConnect)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
