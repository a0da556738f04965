// Package server initializes and runs the caredesk application server.
// It opens the database, runs migrations, wires the CRM reconciliation
// engine to the service layer, and serves the REST endpoint with
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/config"
	"github.com/eyedocs/caredesk/internal/server/httpapi"
	"github.com/eyedocs/caredesk/internal/server/repositories/repomanager"
	"github.com/eyedocs/caredesk/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db         *sql.DB
	sessions   *crm.SessionManager
	dispatcher *crm.Dispatcher

	api      *httpapi.API
	settings *services.CRMSettingsService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	sessions := crm.NewSessionManager(crm.SessionConfig{
		ClientID:     c.CRMClientID,
		ClientSecret: c.CRMClientSecret,
		Env: crm.EnvCredentials{
			Username:      c.CRMUsername,
			Password:      c.CRMPassword,
			SecurityToken: c.CRMSecurityToken,
			LoginURL:      c.CRMLoginURL,
		},
	}, logger)

	client := crm.NewClient(sessions, nil, logger)
	simulator := crm.NewSimulator(c.SimulationDelay, logger)
	executor := crm.NewExecutor(sessions, client, simulator, logger)
	dispatcher := crm.NewDispatcher(c.SyncTimeout, logger)
	reconciler := services.NewCRMReconciler(dispatcher, executor)

	settings := services.NewCRMSettingsService(sessions, executor, c.CRMSettingsFile, logger)

	api := httpapi.New(httpapi.Deps{
		Logger:       logger,
		Users:        services.NewUserService(db, rm, c),
		Patients:     services.NewPatientService(db, rm, reconciler, logger),
		Referrals:    services.NewReferralService(db, rm, reconciler, logger),
		Appointments: services.NewAppointmentService(db, rm),
		Analytics:    services.NewAnalyticsService(db, rm),
		Attachments:  services.NewAttachmentService(c),
		Settings:     settings,
		Connection:   sessions,
	})

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		sessions:   sessions,
		dispatcher: dispatcher,
		api:        api,
		settings:   settings,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	server := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// Operator-saved credentials activate before the first request; a
	// missing settings file just leaves the environment tier in charge.
	if err := app.settings.Load(ctx); err != nil {
		app.logger.Warn(ctx, "crm settings load failed", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	// Drain the sync queues before letting the process go; outcomes for
	// work already enqueued still reach the database.
	app.dispatcher.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
