package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/inkwell/internal/auth/http"
	"github.com/aussiebroadwan/inkwell/internal/auth/identity"
	"github.com/aussiebroadwan/inkwell/internal/auth/notify"
	"github.com/aussiebroadwan/inkwell/internal/auth/revocation"
	"github.com/aussiebroadwan/inkwell/internal/auth/service"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/inkwell/pkg/cryptox"
	"github.com/aussiebroadwan/inkwell/pkg/jwtx"
	"github.com/aussiebroadwan/inkwell/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application owns every long lived component of the auth service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          *sqldb.Store
	revocations revocation.Set
	redis       io.Closer // nil unless revocations live in Redis
	secrets     Secrets

	authService         *service.AuthService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService
	dispatcher          *notify.Dispatcher

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "inkwell-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	secrets, err := LoadSecrets(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	app.secrets = secrets

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initRevocations(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.closeStorage()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.dispatcher.Start()
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopWorkers(context.Background())
			app.closeStorage()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in flight requests, flushes queued mail and closes storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopWorkers(ctx)

	if err := app.closeStorage(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) stopWorkers(ctx context.Context) {
	app.housekeepingService.Stop()
	if err := app.dispatcher.Stop(ctx); err != nil {
		app.logger.Warn("mail queue not drained", "error", err)
	}
}

func (app *Application) closeStorage() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  *sqldb.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initRevocations(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.revocations = revocation.NewStoreSet(app.db.RevokedTokens())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	set, err := revocation.NewRedisSet(ctx, app.cfg.RedisURL)
	if err != nil {
		return err
	}
	app.revocations = set
	app.redis = set
	app.logger.Info("token revocations stored in redis")
	return nil
}

func (app *Application) mailSender() notify.Sender {
	from := notify.Address{Name: app.cfg.MailFromName, Email: app.cfg.MailFromEmail}
	switch app.cfg.MailProvider {
	case "sendgrid":
		return notify.NewSendGridSender(app.cfg.SendGridAPIKey, from)
	case "smtp":
		return notify.NewSMTPSender(app.cfg.SMTPHost, app.cfg.SMTPPort, app.cfg.SMTPUser, app.cfg.SMTPPassword, from)
	default:
		return notify.NewLogSender(app.logger)
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	tokens, err := jwtx.NewTokens(app.secrets.Ring, jwtx.TokenConfig{
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}

	hasher, err := cryptox.NewPasswordHasher(app.cfg.BcryptCost, app.secrets.Pepper)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	app.dispatcher = notify.NewDispatcher(
		notify.NewRenderer(app.cfg.MailFromName, app.cfg.FrontendURL),
		app.mailSender(),
		app.logger,
		app.cfg.MailQueueSize,
	)

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Sealer: app.secrets.Sealer,
		Issuer: "Inkwell",
	}
	app.authService = &service.AuthService{
		Store:       app.db,
		Tokens:      tokens,
		Hasher:      hasher,
		Revocations: app.revocations,
		Notifier:    app.dispatcher,
		MFA:         app.mfaService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.secrets.Ring,
		BuildVersion,
		app.db,
		app.revocations,
		app.cfg.RateLimits,
		!app.cfg.IsDev(),
		app.logger,
	)

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.Google = identity.NewGoogle(app.cfg.GoogleClientID, app.cfg.GoogleClientSecret, app.cfg.GoogleRedirectURL)
	router.Telegram = identity.NewTelegram(app.cfg.TelegramBotToken)
	router.SecureCookies = !app.cfg.IsDev()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
