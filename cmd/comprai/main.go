package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/comprai/comprai/internal/ai"
	"github.com/comprai/comprai/internal/database"
	"github.com/comprai/comprai/internal/email"
	"github.com/comprai/comprai/internal/logging"
	"github.com/comprai/comprai/internal/push"
	"github.com/comprai/comprai/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("COMPRAI_LOG_LEVEL"), os.Getenv("COMPRAI_LOG_FORMAT"))

	port := envOr("COMPRAI_PORT", "8080")
	dbPath := envOr("COMPRAI_DB_PATH", "comprai.db")
	baseURL := envOr("COMPRAI_BASE_URL", "http://localhost:"+port)

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("COMPRAI_POSTMARK_TOKEN"),
		envOr("COMPRAI_FROM_EMAIL", "noreply@comprai.app"),
		baseURL,
	)

	cfg := server.Config{
		SecureCookies: os.Getenv("COMPRAI_SECURE_COOKIES") == "true",
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("COMPRAI_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("COMPRAI_VAPID_PRIVATE_KEY"),
		},
		AI: ai.Config{
			APIKey: os.Getenv("COMPRAI_AI_API_KEY"),
			APIURL: os.Getenv("COMPRAI_AI_API_URL"),
			Model:  os.Getenv("COMPRAI_AI_MODEL"),
		},
	}

	srv := server.New(db, emailClient, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background refresh of recently used overview caches.
	go srv.OverviewCache().Run(ctx)

	// Periodic cleanup of expired sessions and stale rate-limit buckets.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
