package main

import (
	"AssiScan/internal/config"
	"AssiScan/internal/extract"
	"AssiScan/internal/handlers"
	"AssiScan/internal/metrics"
	"AssiScan/internal/middleware"
	"AssiScan/internal/notify"
	"AssiScan/internal/repo"
	"AssiScan/internal/service"
	"AssiScan/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём регистратор zap: json для продакшена, console для разработки
	var logger *zap.Logger
	var err error
	if cfg.LogFormat == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	if _, err := maxprocs.Set(maxprocs.Logger(sugar.Infof)); err != nil {
		sugar.Warnw("failed to set GOMAXPROCS", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) error {
	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	files, err := storage.New(ctx, cfg.UploadDir, cfg.GCSCredentialsFile)
	if err != nil {
		return fmt.Errorf("initialize file storage: %w", err)
	}
	if c, ok := files.(io.Closer); ok {
		defer c.Close()
	}

	adminService, err := newAdminService(cfg, sugar)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.New(registry)

	aiClient := extract.NewClient(extract.Config{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Models:  cfg.AIModels,
		Timeout: cfg.AITimeout,
	}, sugar)
	gateway := extract.NewGateway(aiClient, files, sugar)

	transport := notify.NewSMTPTransport(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailSender,
		Password: cfg.EmailPassword,
		Timeout:  cfg.MailTimeout,
	})
	dispatcher := notify.NewDispatcher(cfg.EmailSender, transport, files, cfg.MailTimeout, sugar)

	recordRepo := repo.NewRecordRepository(gormDB)
	recordService := service.NewRecordService(gateway, recordRepo, files, dispatcher, pipelineMetrics, sugar)

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{DisableCompression: true})
	h := handlers.NewHandler(recordService, adminService, metricsHandler, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"UploadDir", cfg.UploadDir,
		"AIModels", cfg.AIModels,
		"SMTP", fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	)
	if cfg.AIAPIKey == "" {
		sugar.Warnw("AI_API_KEY is not set, extraction requests will fail")
	}
	if cfg.EmailSender == "" {
		sugar.Warnw("EMAIL_SENDER is not set, notifications will fail")
	}

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sugar.Infow("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newAdminService берёт bcrypt-хеш из ADMIN_PASSWORD_HASH или хеширует ADMIN_PASSWORD.
func newAdminService(cfg *config.Config, sugar *zap.SugaredLogger) (*service.AdminService, error) {
	if cfg.AdminPasswordHash != "" {
		return service.NewAdminService(cfg.AdminUsername, cfg.AdminPasswordHash), nil
	}
	if cfg.AdminPassword == "" {
		sugar.Warnw("admin password is not configured, admin login disabled")
		return service.NewAdminService(cfg.AdminUsername, ""), nil
	}
	return service.NewAdminServiceFromPassword(cfg.AdminUsername, cfg.AdminPassword)
}
