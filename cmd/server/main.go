package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Paystation/paystation-gravity-forms/internal/adapters/paystation"
	"github.com/Paystation/paystation-gravity-forms/internal/adapters/postgres"
	"github.com/Paystation/paystation-gravity-forms/internal/adapters/secrets"
	"github.com/Paystation/paystation-gravity-forms/internal/adapters/webhook"
	"github.com/Paystation/paystation-gravity-forms/internal/config"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	paymentHandler "github.com/Paystation/paystation-gravity-forms/internal/handlers/payment"
	"github.com/Paystation/paystation-gravity-forms/internal/services/confirmation"
	pkghttp "github.com/Paystation/paystation-gravity-forms/pkg/http"
	"github.com/Paystation/paystation-gravity-forms/pkg/middleware"
	"github.com/Paystation/paystation-gravity-forms/pkg/observability"
	"github.com/Paystation/paystation-gravity-forms/pkg/shutdown"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)
	defer logger.Sync()

	logger.Info("starting paystation confirmation service",
		zap.String("gateway_endpoint", cfg.Gateway.EndpointURL),
		zap.Bool("test_mode", cfg.Gateway.TestMode),
	)

	ctx := context.Background()

	dbPool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("database connection established",
		zap.String("database", cfg.Database.Database),
	)

	secretManager, err := initSecretManager(ctx, &cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("failed to initialize secret manager", zap.Error(err))
	}

	postbackSecret, err := secretManager.GetSecret(ctx, cfg.Gateway.PostbackSecretName)
	if err != nil {
		logger.Fatal("failed to load postback shared secret", zap.Error(err))
	}

	signingSecret := ""
	if cfg.Dispatch.SigningSecretName != "" {
		signingSecret, err = secretManager.GetSecret(ctx, cfg.Dispatch.SigningSecretName)
		if err != nil {
			logger.Fatal("failed to load dispatch signing secret", zap.Error(err))
		}
	}

	postbackParser, err := paystation.NewPostbackParser(postbackSecret, logger)
	if err != nil {
		logger.Fatal("failed to initialize postback parser", zap.Error(err))
	}

	gateway := paystation.NewInitiationAdapter(&paystation.InitiationConfig{
		EndpointURL: cfg.Gateway.EndpointURL,
		Timeout:     cfg.Gateway.Timeout,
	}, logger)

	dispatchClient := pkghttp.NewClient(pkghttp.DispatchClientConfig(), 10*time.Second)
	dispatcher := webhook.NewDispatcher(cfg.Dispatch.EndpointURL, signingSecret, dispatchClient, logger)

	submissions := postgres.NewSubmissionRepository(dbPool)
	feeds := confirmation.NewCachingFeedResolver(postgres.NewFeedRepository(dbPool))
	forms := postgres.NewFormProductRepository(dbPool)
	audits := postgres.NewPostbackAuditRepository(dbPool)

	service := confirmation.NewService(
		submissions,
		feeds,
		forms,
		gateway,
		dispatcher,
		audits,
		postbackParser,
		confirmation.GatewayAccount{
			AccountID: cfg.Gateway.AccountID,
			GatewayID: cfg.Gateway.GatewayID,
			Currency:  cfg.Gateway.Currency,
			TestMode:  cfg.Gateway.TestMode,
		},
		logger,
	)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)

	mux := http.NewServeMux()
	mux.Handle("/paystation/submit",
		paymentHandler.NewSubmitHandler(service, logger))
	mux.Handle("/paystation/confirmation",
		paymentHandler.NewConfirmationHandler(service, logger))
	mux.Handle("/paystation/return",
		rateLimiter.Handler(paymentHandler.NewReturnHandler(service, cfg.Server.ConfirmationURL, logger)))
	mux.Handle("/paystation/postback",
		rateLimiter.Handler(paymentHandler.NewPostbackHandler(service, logger)))

	healthChecker := observability.NewHealthChecker(dbPool)
	mux.HandleFunc("/healthz", healthChecker.HealthHandler())

	securityHeaders := middleware.NewSecurityHeaders(cfg.Logger.Development)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      securityHeaders.Middleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", healthChecker.HealthHandler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	manager := shutdown.NewManager(10*time.Second, logger)
	manager.Register("rate_limiter", func(ctx context.Context) error {
		rateLimiter.Shutdown()
		return nil
	})
	manager.Register("metrics_server", metricsServer.Shutdown)
	manager.Register("http_server", server.Shutdown)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	manager.Wait()

	logger.Info("stopped")
}

func initLogger(cfg *config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	if cfg.Development {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, _ := zapCfg.Build()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

func initSecretManager(ctx context.Context, cfg *config.SecretsConfig, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		return secrets.NewAWSSecretManager(ctx, awsCfg, logger)
	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.Token = cfg.VaultToken
		vaultCfg.MountPath = cfg.VaultMountPath
		return secrets.NewVaultSecretManager(vaultCfg, logger)
	default:
		return secrets.NewEnvSecretManager(cfg.EnvPrefix, logger), nil
	}
}
