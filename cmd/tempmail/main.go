package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/rxlab/tempmail/internal/config"
	"github.com/rxlab/tempmail/internal/database"
	"github.com/rxlab/tempmail/internal/otpgen"
	"github.com/rxlab/tempmail/internal/parser"
	"github.com/rxlab/tempmail/internal/smtpserver"
	"github.com/rxlab/tempmail/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting tempmail service")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations and seed settings
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ownerHash, err := web.HashOwnerPin(cfg.OwnerPIN)
	if err != nil {
		logger.Error("failed to hash owner pin", "error", err)
		os.Exit(1)
	}
	err = db.SeedDefaultSettings(ctx, map[string]string{
		database.SettingSiteTitle:           cfg.SiteTitle,
		database.SettingOwnerPin:            ownerHash,
		database.SettingSubscriptionExpires: cfg.SubscriptionExpires,
	})
	if err != nil {
		logger.Error("failed to seed settings", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DatabasePath)

	// Create components
	policy := smtpserver.NewRecipientPolicy(cfg.AllowedDomains)
	classifier := parser.NewRegexClassifier()

	smtpSrv := smtpserver.NewServer(smtpserver.Config{
		Addr:            cfg.SMTPAddr,
		Domain:          cfg.SMTPDomain,
		MaxMessageBytes: cfg.MaxMessageBytes,
		ReadTimeout:     cfg.SMTPReadTimeout,
		WriteTimeout:    cfg.SMTPWriteTimeout,
	}, policy, classifier, db, logger)

	sessions := web.NewSessionManager()
	auth := web.NewOwnerAuth(cfg.SessionSecret)
	generator := otpgen.New(cfg.OTPDigits)
	handler := web.NewHandler(db, sessions, auth, generator, logger)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	// Start listeners
	go func() {
		if err := smtpSrv.ListenAndServe(); err != nil && !errors.Is(err, smtpserver.ErrServerClosed) {
			logger.Error("smtp server failed", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("service is running, press Ctrl+C to stop",
		"smtp_addr", cfg.SMTPAddr,
		"domains", cfg.AllowedDomains,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := smtpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("smtp shutdown failed", "error", err)
	}

	logger.Info("service stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
