// Package bootstrap turns a loaded Config into connected infrastructure and
// the application services built on top of it.  The API server, the worker
// and the CLI share it so that every process wires storage, cache and bus
// the same way.
package bootstrap

import (
	"context"
	"time"

	"github.com/turtacn/SDB-Intelligence/internal/application/extraction"
	"github.com/turtacn/SDB-Intelligence/internal/application/reference"
	"github.com/turtacn/SDB-Intelligence/internal/config"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/reference/uba"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/engine"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/fieldspec"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/profiles"
	"github.com/turtacn/SDB-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// Component selects which backends Open connects.
type Component uint8

const (
	Database Component = 1 << iota
	Cache
	Storage
	Messaging

	All = Database | Cache | Storage | Messaging
)

// Has reports whether c includes other.
func (c Component) Has(other Component) bool { return c&other == other }

// Infrastructure holds the connected backends.  Fields for components that
// were not requested stay nil.
type Infrastructure struct {
	DB        *postgres.Connection
	Redis     *redis.Client
	MinIO     *minio.Client
	Documents *minio.DocumentStore
	Producer  *kafka.Producer

	logger logging.Logger
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	})
}

// NewMetrics creates a collector and the application metric set.  The
// subsystem separates the binaries ("api", "worker").
func NewMetrics(cfg config.MetricsConfig, subsystem string, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.AppMetrics, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewAppMetrics(collector), nil
}

// NumberFormat converts the extraction section into the engine's number
// format.  An empty decimal separator keeps the German comma.
func NumberFormat(cfg config.ExtractionConfig) fieldspec.NumberFormat {
	nf := fieldspec.DefaultNumberFormat
	if r := []rune(cfg.DecimalSeparator); len(r) > 0 {
		nf.Decimal = r[0]
	}
	if cfg.StripChars != "" {
		nf.Strip = cfg.StripChars
	}
	return nf
}

// NewEngine compiles the built-in manufacturer profiles.
func NewEngine(cfg config.ExtractionConfig, logger logging.Logger) (*engine.Engine, error) {
	reg, err := profiles.DefaultRegistry(NumberFormat(cfg))
	if err != nil {
		return nil, err
	}
	return engine.New(reg, engine.WithLogger(logger)), nil
}

// RedisConfig maps the redis section onto the client configuration.
func RedisConfig(cfg config.RedisConfig) *redis.Config {
	return &redis.Config{
		Mode:         "standalone",
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// MinIOConfig maps the minio section onto the client configuration.
func MinIOConfig(cfg config.MinIOConfig) *minio.Config {
	return &minio.Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UseSSL:          cfg.UseSSL,
		Region:          cfg.Region,
		Buckets: minio.BucketConfig{
			Documents: cfg.DocumentBucket,
			Results:   cfg.ResultBucket,
			Reference: cfg.ReferenceBucket,
		},
	}
}

// ProducerConfig maps the kafka section onto the producer configuration.
func ProducerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:    cfg.Brokers,
		Acks:       "all",
		MaxRetries: cfg.ProducerRetries,
		BatchSize:  cfg.BatchSize,
	}
}

// ConsumerConfig builds the job consumer.  Failed jobs are retried with the
// worker backoff and dead-lettered when the DLQ is enabled.
func ConsumerConfig(cfg config.KafkaConfig, w config.WorkerConfig, topics ...string) kafka.ConsumerConfig {
	cc := kafka.ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:   w.MaxRetries,
			RetryBackoff: w.RetryBackoff,
		},
	}
	if cfg.EnableDLQ {
		cc.RetryConfig.DeadLetterTopic = kafka.TopicExtractionDeadLetter
	}
	return cc
}

// Open connects the requested components.  Anything already opened is
// closed again when a later component fails.
func Open(ctx context.Context, cfg *config.Config, want Component, logger logging.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: logger}

	if want.Has(Database) {
		conn, err := postgres.NewConnection(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		infra.DB = conn
	}

	if want.Has(Cache) {
		rc, err := redis.NewClient(RedisConfig(cfg.Redis), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Redis = rc
	}

	if want.Has(Storage) {
		mc, err := minio.NewClient(MinIOConfig(cfg.MinIO), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.MinIO = mc
		infra.Documents = minio.NewDocumentStore(minio.NewRepository(mc, logger), mc.Buckets(), cfg.Reference.ObjectKey)
	}

	if want.Has(Messaging) {
		p, err := kafka.NewProducer(ProducerConfig(cfg.Kafka), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Producer = p
	}

	logger.Info("infrastructure initialized",
		logging.Bool("database", infra.DB != nil),
		logging.Bool("cache", infra.Redis != nil),
		logging.Bool("storage", infra.MinIO != nil),
		logging.Bool("messaging", infra.Producer != nil))
	return infra, nil
}

// Close releases every opened component in reverse order.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		_ = i.MinIO.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			i.logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}

// Migrate applies pending schema migrations.
func (i *Infrastructure) Migrate(cfg config.DatabaseConfig) error {
	if i.DB == nil {
		return errors.New(errors.ErrCodeInternal, "database is not connected")
	}
	return postgres.NewMigrator(i.DB, cfg.MigrationPath, i.logger).Up()
}

// HealthChecks returns one readiness check per connected component.
func (i *Infrastructure) HealthChecks() []handlers.HealthChecker {
	var checks []handlers.HealthChecker
	if i.DB != nil {
		checks = append(checks, handlers.NewHealthCheck("postgres", i.DB.HealthCheck))
	}
	if i.Redis != nil {
		checks = append(checks, handlers.NewHealthCheck("redis", i.Redis.Ping))
	}
	if i.MinIO != nil {
		checks = append(checks, handlers.NewHealthCheck("minio", func(ctx context.Context) error {
			_, err := i.MinIO.HealthCheck(ctx)
			return err
		}))
	}
	return checks
}

// ReferenceOptions returns the reference service options for the connected
// components.
func (i *Infrastructure) ReferenceOptions(cfg config.ReferenceConfig, metrics *prometheus.AppMetrics, logger logging.Logger) []reference.Option {
	opts := []reference.Option{
		reference.WithLogger(logger),
		reference.WithMaxAge(cfg.MaxAge),
	}
	if i.Redis != nil {
		opts = append(opts, reference.WithLocks(redis.NewLockFactory(i.Redis, logger)))
	}
	if i.Producer != nil {
		opts = append(opts, reference.WithPublisher(i.Producer))
	}
	if metrics != nil {
		opts = append(opts, reference.WithMetrics(metrics))
	}
	return opts
}

// NewReferenceService keeps the snapshot in object storage and rebuilds it
// from the UBA export.  Storage must be connected.
func (i *Infrastructure) NewReferenceService(cfg config.ReferenceConfig, metrics *prometheus.AppMetrics, logger logging.Logger) (*reference.Service, error) {
	if i.Documents == nil {
		return nil, errors.New(errors.ErrCodeInternal, "object storage is not connected")
	}
	source := uba.NewSource(cfg.SourceURL, nil, logger, uba.WithMaxEntryBytes(cfg.MaxEntryBytes))
	return reference.NewService(i.Documents.SnapshotStore(), source, i.ReferenceOptions(cfg, metrics, logger)...), nil
}

// NewExtractionService builds the extraction service over whatever is
// connected.  refs may be nil.
func (i *Infrastructure) NewExtractionService(cfg *config.Config, ex extraction.Extractor, refs extraction.ReferenceProvider, metrics *prometheus.AppMetrics, logger logging.Logger) *extraction.Service {
	opts := []extraction.Option{
		extraction.WithLogger(logger),
		extraction.WithHTTPTimeouts(cfg.Worker.FetchTimeout, cfg.Worker.CallbackTimeout),
		extraction.WithCallbackRetry(cfg.Worker.MaxRetries, cfg.Worker.RetryBackoff),
	}
	if i.DB != nil {
		opts = append(opts, extraction.WithRecords(repositories.NewPostgresRecordRepo(i.DB, logger)))
	}
	if i.Redis != nil {
		cache := redis.NewRedisCache(i.Redis, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		opts = append(opts, extraction.WithCache(cache, cfg.Extraction.CacheTTL))
	}
	if i.Documents != nil {
		opts = append(opts,
			extraction.WithDocuments(i.Documents),
			extraction.WithResultLinks(cfg.MinIO.ResultLinkExpiry))
	}
	if i.Producer != nil {
		opts = append(opts, extraction.WithPublisher(i.Producer))
	}
	if metrics != nil {
		opts = append(opts, extraction.WithMetrics(metrics))
	}
	return extraction.NewService(ex, refs, opts...)
}

// ShutdownContext bounds cleanup after a stop signal.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

//Personal.AI order the ending
