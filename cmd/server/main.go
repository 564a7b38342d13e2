package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"accounting/backend/internal/cache"
	"accounting/backend/internal/config"
	"accounting/backend/internal/httpapi"
	"accounting/backend/internal/logging"
	"accounting/backend/internal/metrics"
	"accounting/backend/internal/notify"
	"accounting/backend/internal/otp"
	"accounting/backend/internal/service"
	"accounting/backend/internal/store"
	"accounting/backend/internal/store/memory"
	pgstore "accounting/backend/internal/store/postgres"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	var codeStore otp.Store = repo
	if cfg.RedisAddr != "" {
		redisCodes := cache.NewRedisCodeStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCodes.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, keeping one-time codes in the repository", zap.Error(err))
			_ = redisCodes.Close()
		} else {
			codeStore = redisCodes
			closers = append(closers, redisCodes.Close)
			logger.Info("one-time codes: redis")
		}
	}

	var dispatcher notify.Dispatcher
	if cfg.SMTPEnabled() {
		dispatcher = notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		logger.Info("code dispatch: smtp", zap.String("host", cfg.SMTPHost))
	} else {
		dispatcher = notify.NewLog(logger)
		logger.Warn("code dispatch: log only, set SMTP_HOST to send mail")
	}

	settlementMetrics := metrics.New(nil)
	otpDuration := time.Duration(cfg.OTPDurationHours) * time.Hour
	codes := otp.NewManager(codeStore, dispatcher, otp.WithBrand(cfg.CompanyName))
	svc := service.New(repo, codes,
		service.WithLogger(logger),
		service.WithMetrics(settlementMetrics),
		service.WithOTPDuration(otpDuration),
	)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, logger, nil)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("accounting backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SMTPEnabled() && cfg.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM must be set when SMTP_HOST is configured")
	}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword == "" {
		return fmt.Errorf("SMTP_PASSWORD must be set when SMTP_USERNAME is configured")
	}
	return nil
}
