package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fincycle/internal/cli"
	"fincycle/internal/config"
	apphttp "fincycle/internal/http"
	applog "fincycle/internal/log"
	"fincycle/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)

	forecaster := services.NewForecaster(be.Store, be.Store, be.Rates)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		ServiceKey:         cfg.ServiceKey,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, apphttp.Services{
		Store:        be.Store,
		Workspaces:   services.NewWorkspaceService(be.Store, cfg.BaseCurrency),
		Cycles:       services.NewCycleService(be.Store, forecaster),
		Materializer: services.NewMaterializer(be.Store, be.Rates, services.KickstartPolicy(cfg.KickstartPolicy)),
		Status:       services.NewStatusService(be.Store),
		Expenses:     services.NewExpenseService(be.Store),
		Ledger:       services.NewLedgerService(be.Store, be.Publisher),
		Exchange:     services.NewExchangeService(be.Store, be.Rates),
		Publisher:    be.Publisher,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", "error", err)
		}
		if err := be.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Backend cleanup error", "error", err)
		}
	})

	logger.InfoContext(ctx, "Starting fincycle server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"base_currency", cfg.BaseCurrency,
		"kickstart_policy", cfg.KickstartPolicy,
		"deletion_policy", cfg.DeletionPolicy,
		"amqp_enabled", be.AMQP != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
