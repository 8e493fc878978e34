// Command apiserver serves synchronous extraction, stored records and job
// submission over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	"github.com/turtacn/SDB-Intelligence/internal/config"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/SDB-Intelligence/internal/interfaces/http"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("api server failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	logger.Info("starting SDB-Intelligence API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	collector, metrics, err := bootstrap.NewMetrics(cfg.Metrics, "api", logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, bootstrap.All, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	if cfg.Database.AutoMigrate {
		if err := infra.Migrate(cfg.Database); err != nil {
			return err
		}
	}

	refs, err := infra.NewReferenceService(cfg.Reference, metrics, logger)
	if err != nil {
		return err
	}
	if err := refs.Load(ctx); err != nil {
		// Extraction works without a reference; records are merged once a
		// snapshot arrives.
		logger.Warn("reference snapshot unavailable", logging.Err(err))
	}
	if err := refs.StartScheduler(cfg.Reference.RefreshCron); err != nil {
		return err
	}
	defer refs.Stop()

	eng, err := bootstrap.NewEngine(cfg.Extraction, logger)
	if err != nil {
		return err
	}
	svc := infra.NewExtractionService(cfg, eng, refs, metrics, logger)

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			if logging.SetLevel(logger, next.Log.Level) {
				logger.Info("log level changed", logging.String("level", next.Log.Level))
			}
		}, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
	}

	router := httpserver.NewRouter(routerConfig(cfg, infra, svc, collector, metrics, logger))
	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := bootstrap.ShutdownContext(cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("API server stopped")
	return nil
}

func routerConfig(cfg *config.Config, infra *bootstrap.Infrastructure, svc handlers.ExtractionService,
	collector prometheus.MetricsCollector, metrics *prometheus.AppMetrics, logger logging.Logger) httpserver.RouterConfig {
	rc := httpserver.RouterConfig{
		ExtractionHandler: handlers.NewExtractionHandler(svc, logger),
		JobHandler:        handlers.NewJobHandler(infra.Producer, svc.Profiles, logger),
		HealthHandler:     handlers.NewHealthHandler(version, infra.HealthChecks()...).WithMetrics(metrics),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			Username:    cfg.Server.BasicAuthUser,
			Password:    cfg.Server.BasicAuthPassword,
			TokenSecret: cfg.Server.TokenSecret,
		}, logger),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger, metrics, middleware.DefaultLoggingConfig()),
		MaxBodySize:       cfg.Server.MaxBodySize,
		Logger:            logger,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		rc.CORSMiddleware = middleware.NewCORSMiddleware(cors)
	}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		if cfg.Server.RateBurst > 0 {
			rl.BurstSize = cfg.Server.RateBurst
		}
		rc.RateLimitMiddleware = middleware.NewRateLimitMiddleware(rl)
	}
	if cfg.Metrics.Enabled {
		rc.MetricsCollector = collector
	}
	return rc
}

//Personal.AI order the ending
