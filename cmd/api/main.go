package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/config"
	"github.com/Dan9191/repayment-predictor/internal/handler"
	"github.com/Dan9191/repayment-predictor/internal/ledger"
	"github.com/Dan9191/repayment-predictor/internal/loader"
	"github.com/Dan9191/repayment-predictor/internal/repository"
	"github.com/Dan9191/repayment-predictor/internal/service"
	"github.com/Dan9191/repayment-predictor/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize ledger source
	var source ledger.Source
	switch cfg.LedgerSource {
	case config.LedgerSourcePostgres:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		source = repository.NewRepository(db)
	default:
		source = ledger.NewCSVSource(cfg.PaymentHistoryPath, cfg.InvestorBorrowerPath)
	}

	// Initialize layers
	svc := service.NewService(cfg.Thresholds, logger)
	var notifier loader.Notifier
	if cfg.AlertsEnabled() {
		notifier = email.NewSender(cfg, logger)
	}
	ld := loader.NewLoader(source, cfg.ModelPath, cfg.ScalerPath, svc, notifier, logger)

	// The service stays up and reports not ready until a load succeeds
	ctx, cancel := context.WithTimeout(context.Background(), loader.ReloadTimeout)
	if err := ld.Reload(ctx); err != nil {
		logger.Warnf("Starting without prediction data: %v", err)
	}
	cancel()

	if err := ld.Start(cfg.ReloadSchedule); err != nil {
		logger.Fatalf("Failed to schedule reloads: %v", err)
	}
	defer ld.Stop()

	h := handler.NewHandler(svc, ld, logger)
	r := handler.NewRouter(h, cfg)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
