package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"pnlEngine/config"
	"pnlEngine/internal/adapters/binanceclient"
	"pnlEngine/internal/adapters/httpapi"
	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/adapters/sqlite"
	"pnlEngine/internal/app"
	"pnlEngine/internal/ports"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": string(cfg.LogFormat)})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Mark Price Source (optional)
	var marks ports.MarkPriceSource
	if cfg.MarkSource == config.MarkSourceBinance {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		if err := client.Ping(ctx); err != nil {
			// Reports fall back to last trade prices while the exchange is unreachable.
			appLogger.Warn(ctx, "Binance API not reachable at startup", map[string]interface{}{"error": err.Error()})
		}
		marks = client
	}

	// 5. Initialize Application Service
	reportService, err := app.NewReportService(cfg, appLogger, repo, repo, repo, marks)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize report service: %v", err)
	}

	// 6. Serve HTTP until a shutdown signal arrives
	// Reports carry money as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewHandler(reportService, appLogger),
	}

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.HTTPAddr, "markSource": cfg.MarkSource})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, err, "HTTP server error")
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Server shutdown error")
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
