// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"roaster-service/internal/config"
	"roaster-service/internal/driver/aillio"
	"roaster-service/internal/handler"
	"roaster-service/internal/routes"
	"roaster-service/internal/service"
	"roaster-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	roasterService   *service.RoasterService
	telemetryHandler *handler.TelemetryHandler
}

func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "roaster-service")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	app.initializeRoaster()
	app.initializeServer()

	return app, nil
}

// initializeRoaster wires the USB transport, driver and service. The
// device is not opened here; clients connect it through the API.
func (app *Application) initializeRoaster() {
	transport := aillio.NewUSBTransport(app.logger)
	driver := aillio.New(transport, app.logger, aillio.Options{
		PollInterval: app.config.Roaster.PollInterval,
		SettleDelay:  app.config.Roaster.SettleDelay,
	})

	app.roasterService = service.NewRoasterService(driver, app.config, app.logger)
	app.telemetryHandler = handler.NewTelemetryHandler(app.logger)
	app.roasterService.SetReadingSink(app.telemetryHandler.BroadcastReading)

	app.logger.Info("Roaster driver initialized",
		zap.Duration("poll_interval", app.config.Roaster.PollInterval),
		zap.Duration("settle_delay", app.config.Roaster.SettleDelay),
	)
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.roasterService,
		app.telemetryHandler,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)
}

// Start runs the server and blocks until a shutdown signal arrives.
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()
	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "roaster-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Stop polling and release the USB interface before exit.
	app.roasterService.Disconnect()

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
