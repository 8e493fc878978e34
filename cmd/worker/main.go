// Command worker consumes extraction jobs from Kafka, runs them through the
// engine and delivers the results.  It also keeps the reference snapshot
// current and follows refreshes announced by other processes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/turtacn/SDB-Intelligence/internal/application/extraction"
	"github.com/turtacn/SDB-Intelligence/internal/application/reference"
	"github.com/turtacn/SDB-Intelligence/internal/bootstrap"
	"github.com/turtacn/SDB-Intelligence/internal/config"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/SDB-Intelligence/internal/interfaces/http"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	workers := flag.Int("workers", 0, "number of concurrent consumers (overrides worker.concurrency)")
	ensureTopics := flag.Bool("ensure-topics", false, "create the Kafka topics before consuming")
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
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *configPath, *ensureTopics, logger); err != nil {
		logger.Error("worker failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, ensureTopics bool, logger logging.Logger) error {
	logger.Info("starting SDB-Intelligence worker",
		logging.String("version", version),
		logging.Int("workers", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.RequestTopic))

	collector, metrics, err := bootstrap.NewMetrics(cfg.Metrics, "worker", logger)
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

	if ensureTopics {
		if err := createTopics(ctx, cfg.Kafka.Brokers, logger); err != nil {
			return err
		}
	}
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

	consumers, err := startConsumers(ctx, cfg, svc, refs, logger)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("kafka consumer close failed", logging.Err(err))
			}
		}
	}()
	if err != nil {
		return err
	}

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			if logging.SetLevel(logger, next.Log.Level) {
				logger.Info("log level changed", logging.String("level", next.Log.Level))
			}
		}, func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
	}

	health := healthServer(cfg, infra, collector, metrics, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- health.Start() }()

	logger.Info("worker started", logging.Int("consumers", len(consumers)))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down worker")
	shutdownCtx, cancel := bootstrap.ShutdownContext(cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := health.Stop(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}
	return nil
}

// startConsumers starts the job consumers of the shared group and one
// reference consumer in a group of its own, so that every worker sees every
// refresh announcement.  Consumers started before a failure are returned so
// the caller can close them.
func startConsumers(ctx context.Context, cfg *config.Config, svc *extraction.Service,
	refs *reference.Service, logger logging.Logger) ([]*kafka.Consumer, error) {
	var consumers []*kafka.Consumer

	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(bootstrap.ConsumerConfig(cfg.Kafka, cfg.Worker, cfg.Kafka.RequestTopic),
			logger.With(logging.Int("consumer", i)))
		if err != nil {
			return consumers, err
		}
		consumers = append(consumers, c)
		c.Subscribe(cfg.Kafka.RequestTopic, svc.HandleJobMessage)
		if err := c.Start(ctx); err != nil {
			return consumers, err
		}
	}

	rc := bootstrap.ConsumerConfig(cfg.Kafka, cfg.Worker, kafka.TopicReferenceRefreshed)
	rc.GroupID = cfg.Kafka.GroupID + ".reference." + uuid.NewString()[:8]
	rc.AutoOffsetReset = "latest"
	rc.RetryConfig.DeadLetterTopic = ""
	c, err := kafka.NewConsumer(rc, logger.Named("reference"))
	if err != nil {
		return consumers, err
	}
	consumers = append(consumers, c)
	c.Subscribe(kafka.TopicReferenceRefreshed, refs.HandleRefreshed)
	return consumers, c.Start(ctx)
}

func createTopics(ctx context.Context, brokers []string, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureDefaultTopics(ctx)
}

// healthServer exposes the health checks and the metrics endpoint on the worker's
// health port.
func healthServer(cfg *config.Config, infra *bootstrap.Infrastructure, collector prometheus.MetricsCollector,
	metrics *prometheus.AppMetrics, logger logging.Logger) *httpserver.Server {
	rc := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, infra.HealthChecks()...).WithMetrics(metrics),
		Logger:        logger,
	}
	if cfg.Metrics.Enabled {
		rc.MetricsCollector = collector
	}
	serverCfg := cfg.Server
	serverCfg.Port = cfg.Worker.HealthPort
	return httpserver.NewServer(serverCfg, httpserver.NewRouter(rc), logger)
}

//Personal.AI order the ending
