package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swapshelf/internal/app"
	"swapshelf/internal/config"
	"swapshelf/internal/ratelimit"
	"swapshelf/internal/server"
	"swapshelf/internal/session"
	"swapshelf/internal/util"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	var revoker session.Revoker
	if cfg.RedisAddr != "" {
		revoker = session.NewRedisRevoker(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		revoker = session.NewMemoryRevoker()
	}
	sessions, err := session.NewManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, revoker)
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		limit := cfg.LoginRateLimitPerMinute
		if limit <= 0 {
			limit = 10
		}
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "swapshelf:ratelimit:login", limit, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login limiter: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		PageSize:       cfg.PageSize,
		AMQPURL:        cfg.AMQPURL,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		GoogleBooksURL: cfg.GoogleBooksURL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close()

	httpServer := server.New(server.Config{
		App:               appCore,
		Sessions:          sessions,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
		LoginLimiter:      loginLimiter,
		TrustedProxies:    trusted,
		MaxImageBytes:     cfg.MaxImageBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
