package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/common/logger"
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/common/otel"
	"cordfriend.app/server/core/config"
	"cordfriend.app/server/core/db"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/http/handler"
	"cordfriend.app/server/internal/http/middleware"
	httprouter "cordfriend.app/server/internal/http/router"
	"cordfriend.app/server/internal/oauth"
	"cordfriend.app/server/internal/ratelimit"
	"cordfriend.app/server/internal/secret"
	"cordfriend.app/server/internal/service"
	"cordfriend.app/server/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "cordfriend server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Close(closeCtx); err != nil {
			slog.ErrorContext(closeCtx, "database close error", "error", err)
		}
	}()
	slog.InfoContext(ctx, "database connected", "database", cfg.DB.Database, "transactions", cfg.DB.Transactions)

	if err := store.EnsureIndexes(ctx, database.Database()); err != nil {
		slog.ErrorContext(ctx, "failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	images, err := newImageStore(ctx, cfg, database)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize image store", "error", err, "backend", cfg.Blob.Backend)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "image store ready", "backend", cfg.Blob.Backend)

	codec, err := secret.NewCodec(cfg.Auth.CryptoSecretKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize secret codec", "error", err)
		os.Exit(1)
	}

	issuer := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	providers := newProviders(ctx, cfg)
	m := metrics.New()

	stores := store.NewStores(database.Database(), images)

	var txRunner service.TxRunner
	if cfg.DB.Transactions {
		txRunner = service.NewTxRunner(database, stores)
	} else {
		txRunner = service.NewSequentialRunner(stores)
	}

	services := service.NewServices(stores, txRunner, codec, issuer, providers, m)

	limiter := ratelimit.Noop()
	if cfg.RateLimit.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		limiter = ratelimit.NewRedisLimiter(redisClient, "cordfriend:auth", cfg.RateLimit.Attempts, cfg.RateLimit.Window)
		slog.InfoContext(ctx, "auth rate limit enabled", "attempts", cfg.RateLimit.Attempts, "window", cfg.RateLimit.Window)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, database, m, limiter, issuer.TTL())
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newImageStore(ctx context.Context, cfg config.Config, database *db.DB) (store.ImageStore, error) {
	if cfg.Blob.Backend == config.BlobBackendS3 {
		return store.NewS3ImageStore(ctx, cfg.Blob.S3)
	}
	return store.NewGridFSImageStore(database.Database(), cfg.Blob.GridFSBucket), nil
}

// newProviders registers the sign-in providers that are configured. A
// provider that fails discovery is skipped so password sign-in keeps working.
func newProviders(ctx context.Context, cfg config.Config) *oauth.Registry {
	var providers []oauth.Provider

	if cfg.Google.Enabled() {
		google, err := oauth.NewGoogleProvider(ctx, cfg.Google)
		if err != nil {
			slog.ErrorContext(ctx, "google sign-in disabled", "error", err)
		} else {
			providers = append(providers, google)
		}
	}
	if cfg.WorkOS.Enabled() {
		providers = append(providers, oauth.NewWorkOSProvider(cfg.WorkOS))
	}

	registry := oauth.NewRegistry(providers...)
	slog.InfoContext(ctx, "sign-in providers", "providers", registry.Names())
	return registry
}

func setupRouter(
	cfg config.Config,
	services *service.Services,
	database *db.DB,
	m *metrics.Metrics,
	limiter ratelimit.Limiter,
	sessionTTL time.Duration,
) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		ClientURL: cfg.ClientURL,
		Cookies: handler.CookieConfig{
			IsProduction: cfg.IsProduction(),
			MaxAge:       sessionTTL,
		},
		DB:          database,
		Metrics:     m,
		AuthLimiter: limiter,
	})

	return router
}

const banner = `
  ____              _  __      _                _ 
 / ___|___  _ __ __| |/ _|_ __(_) ___ _ __   __| |
| |   / _ \| '__/ _' | |_| '__| |/ _ \ '_ \ / _' |
| |__| (_) | | | (_| |  _| |  | |  __/ | | | (_| |
 \____\___/|_|  \__,_|_| |_|  |_|\___|_| |_|\__,_|
`
