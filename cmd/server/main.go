package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/reprocost/internal/config"
	"github.com/Simplici0/reprocost/internal/db"
	"github.com/Simplici0/reprocost/internal/desktop"
	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/logger"
	"github.com/Simplici0/reprocost/internal/metrics"
	"github.com/Simplici0/reprocost/internal/migrations"
	"github.com/Simplici0/reprocost/internal/pricelist"
	"github.com/Simplici0/reprocost/internal/records"
	"github.com/Simplici0/reprocost/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(reportConfigError(os.Stderr, err))
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		baseLogger.Fatal("failed to run database migrations", zap.Error(err))
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		baseLogger.Fatal("failed to seed database", zap.Error(err))
	}
	baseLogger.Info("seed completed", zap.Int("inserts", stats.Inserts))

	store, err := openStore(cfg, database)
	if err != nil {
		baseLogger.Fatal("failed to open record store", zap.Error(err))
	}
	baseLogger.Info("record store ready", zap.String("backend", cfg.StoreBackend))

	reg := metrics.NewRegistry()
	views, err := newViews()
	if err != nil {
		baseLogger.Fatal("failed to parse templates", zap.Error(err))
	}

	srv := &server{
		auth:         newAuthService(database, cfg.SessionSecret),
		store:        store,
		sessions:     estimate.NewSessions(nil),
		metrics:      metrics.NewEstimator(reg),
		views:        views,
		log:          logger.Named(baseLogger, "http"),
		docOptions:   document.Options{CompanyName: cfg.CompanyName},
		company:      cfg.CompanyName,
		sheetURL:     cfg.PriceListURL,
		fetchTimeout: cfg.PriceListTimeout,
	}
	if cfg.SheetsEnabled() {
		sheets, err := pricelist.NewSheetsSource(context.Background(), cfg.SheetsCredentialsPath, cfg.SheetsSpreadsheetID, cfg.SheetsRange)
		if err != nil {
			baseLogger.Warn("sheets api source disabled", zap.Error(err))
		} else {
			srv.sheets = sheets
			baseLogger.Info("sheets api source enabled")
		}
	}
	if cfg.DesktopExport {
		srv.exportDocument = exportToDesktop(logger.Named(baseLogger, "desktop"))
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.routes(metrics.Handler(reg)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg config.Config, database *sql.DB) (records.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return records.NewSQLStore(database), nil
	case config.BackendCSV:
		store, err := records.OpenCSV(cfg.RecordsPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// exportToDesktop saves a copy of each rendered document into the desktop
// folder and opens it. Failures are logged and never block the download.
func exportToDesktop(log *zap.Logger) func(name string, data []byte) {
	return func(name string, data []byte) {
		dir, err := desktop.Default()
		if err != nil {
			log.Warn("desktop folder unavailable", zap.Error(err))
			return
		}
		path, err := desktop.Save(dir, name, data)
		if err != nil {
			log.Warn("desktop save failed", zap.Error(err))
			return
		}
		log.Info("document saved to desktop", zap.String("path", path))
		if err := desktop.Reveal(dir); err != nil {
			log.Warn("desktop reveal failed", zap.Error(err))
		}
	}
}

// reportConfigError prints a config failure before any logger exists and
// returns the process exit code.
func reportConfigError(w io.Writer, err error) int {
	fmt.Fprintf(w, "reprocost: invalid configuration: %v\n", err)
	return 1
}
