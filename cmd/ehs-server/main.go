package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehs/ehs/internal/config"
	"github.com/ehs/ehs/internal/domain/analytics"
	"github.com/ehs/ehs/internal/domain/audit"
	"github.com/ehs/ehs/internal/domain/billing"
	"github.com/ehs/ehs/internal/domain/identity"
	"github.com/ehs/ehs/internal/domain/patient"
	"github.com/ehs/ehs/internal/domain/scheduling"
	"github.com/ehs/ehs/internal/platform/auth"
	"github.com/ehs/ehs/internal/platform/db"
	"github.com/ehs/ehs/internal/platform/jobs"
	"github.com/ehs/ehs/internal/platform/middleware"
	"github.com/ehs/ehs/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ehs-server",
		Short: "Hospital management API server",
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

// notifierAdapter resolves the names and contact details a notification
// needs, then hands the message to the dispatcher. Resolution failures only
// degrade the message; delivery is still attempted.
type notifierAdapter struct {
	dispatcher *notification.Dispatcher
	users      *identity.Service
	patients   *patient.Service
	logger     zerolog.Logger
}

func (n *notifierAdapter) Notify(kind notification.Kind, appt *scheduling.Appointment) {
	ctx := context.Background()
	msg := notification.Appointment{
		ID:       appt.ID.String(),
		Date:     appt.Date.Format("2006-01-02"),
		TimeSlot: appt.TimeSlot,
	}
	if userID, err := n.patients.UserIDForPatient(ctx, appt.PatientID); err == nil {
		if u, err := n.users.Get(ctx, userID); err == nil {
			msg.PatientName = u.FullName()
			msg.PatientEmail = u.Email
			msg.PatientPhone = u.PhoneNumber
		}
	} else {
		n.logger.Warn().Err(err).
			Str("appointment_id", msg.ID).
			Msg("could not resolve patient for notification")
	}
	if doc, err := n.users.Get(ctx, appt.DoctorID); err == nil {
		msg.DoctorName = doc.FullName()
	}
	n.dispatcher.Notify(kind, msg)
}

// appointmentCompleter lets billing close out appointments without importing
// the scheduling package.
type appointmentCompleter struct {
	svc *scheduling.Service
}

func (a appointmentCompleter) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := a.svc.Complete(ctx, id)
	return err
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	// JSON to stdout in production; the console writer everywhere else.
	if !cfg.IsProduction() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Audit first: every domain service records through it.
	recorder := audit.NewRecorder(audit.NewRepoPG(pool), logger)

	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewGroupRepoPG(pool), recorder)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), identitySvc, recorder)

	var emailSender notification.EmailSender = notification.LogSender{Logger: logger}
	if cfg.SMTPAddr != "" {
		emailSender = notification.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
		logger.Info().Str("relay", cfg.SMTPAddr).Str("from", cfg.SMTPFrom).Msg("email delivery via smtp")
	}
	dispatcher := notification.NewDispatcher(
		emailSender,
		notification.LogSender{Logger: logger},
		logger, cfg.NotifyQueueSize)
	notifier := &notifierAdapter{
		dispatcher: dispatcher,
		users:      identitySvc,
		patients:   patientSvc,
		logger:     logger,
	}

	schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool), identitySvc, patientSvc, notifier, recorder)
	billingSvc := billing.NewService(
		billing.NewInvoiceRepoPG(pool), billing.NewPaymentRepoPG(pool),
		identitySvc, recorder, appointmentCompleter{svc: schedulingSvc}, logger)
	analyticsSvc := analytics.NewService(analytics.NewRepoPG(pool))

	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		h := db.Check(c.Request().Context(), pool)
		code := http.StatusOK
		if h.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	})

	public := e.Group("/api/v1")
	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with development auth, all requests are admin")
		api.Use(auth.DevMiddleware())
	} else {
		api.Use(auth.Middleware([]byte(cfg.JWTSecret)))
	}

	identity.NewHandler(identitySvc, issuer).RegisterRoutes(public, api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	analytics.NewHandler(analyticsSvc).RegisterRoutes(api)
	audit.NewHandler(recorder).RegisterRoutes(api)

	// Background workers share a context cancelled on shutdown.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go dispatcher.Start(workerCtx)

	runner := jobs.NewRunner(cfg.JobInterval(), logger)
	runner.Register("send_reminders", jobs.Daily(cfg.ReminderHour, func(ctx context.Context) error {
		sent, err := schedulingSvc.SendReminders(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("sent", sent).Msg("appointment reminders queued")
		return nil
	}))
	runner.Register("purge_cancelled", func(ctx context.Context) error {
		purged, err := schedulingSvc.PurgeCancelled(ctx, time.Duration(cfg.PurgeAfterDays)*24*time.Hour)
		if err != nil {
			return err
		}
		if purged > 0 {
			logger.Info().Int64("purged", purged).Msg("old cancelled appointments removed")
		}
		return nil
	})
	go runner.Start(workerCtx)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	dispatcher.Drain(shutdownCtx)
	return nil
}
