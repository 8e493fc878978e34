package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost          = "localhost"
	DefaultDBPort          = 5432
	DefaultDBName          = "sdb"
	DefaultDBMaxConns      = 10
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisKeyPrefix  = "sdb:"
	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "sdb-worker"
	DefaultRequestTopic    = "sdb.extraction.requested"
	DefaultResultTopic     = "sdb.extraction.completed"
	DefaultMinIOEndpoint   = "localhost:9000"
	DefaultDocumentBucket  = "sdb-documents"
	DefaultResultBucket    = "sdb-results"
	DefaultReferenceBucket = "sdb-reference"

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081

	DefaultReferenceURL       = "http://webrigoletto.uba.de/rigoletto/public/searchRequest.do?event=zipDownload"
	DefaultReferenceObjectKey = "uba.json"
	DefaultReferenceMaxAge    = 30 * 24 * time.Hour
	DefaultReferenceCron      = "@daily"

	DefaultReferenceMaxEntryBytes int64 = 256 << 20

	DefaultDecimalSeparator = ","
	DefaultStripChars       = "~ca. <>E"
	DefaultCacheTTL         = 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "sdb"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set (non-zero values) are left unchanged so
// that explicit configuration always wins.  It must run before Validate so
// that optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 16 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(2 * cfg.Server.RateLimit)
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultCacheTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultResultTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.DocumentBucket == "" {
		cfg.MinIO.DocumentBucket = DefaultDocumentBucket
	}
	if cfg.MinIO.ResultBucket == "" {
		cfg.MinIO.ResultBucket = DefaultResultBucket
	}
	if cfg.MinIO.ReferenceBucket == "" {
		cfg.MinIO.ReferenceBucket = DefaultReferenceBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.QueueDepth == 0 {
		cfg.Worker.QueueDepth = cfg.Worker.Concurrency * 4
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Worker.FetchTimeout == 0 {
		cfg.Worker.FetchTimeout = 30 * time.Second
	}
	if cfg.Worker.CallbackTimeout == 0 {
		cfg.Worker.CallbackTimeout = 15 * time.Second
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Reference ─────────────────────────────────────────────────────────────
	if cfg.Reference.SourceURL == "" {
		cfg.Reference.SourceURL = DefaultReferenceURL
	}
	if cfg.Reference.ObjectKey == "" {
		cfg.Reference.ObjectKey = DefaultReferenceObjectKey
	}
	if cfg.Reference.MaxAge == 0 {
		cfg.Reference.MaxAge = DefaultReferenceMaxAge
	}
	if cfg.Reference.RefreshCron == "" {
		cfg.Reference.RefreshCron = DefaultReferenceCron
	}
	if cfg.Reference.MaxEntryBytes == 0 {
		cfg.Reference.MaxEntryBytes = DefaultReferenceMaxEntryBytes
	}

	// ── Extraction ────────────────────────────────────────────────────────────
	if cfg.Extraction.DecimalSeparator == "" {
		cfg.Extraction.DecimalSeparator = DefaultDecimalSeparator
	}
	if cfg.Extraction.StripChars == "" {
		cfg.Extraction.StripChars = DefaultStripChars
	}
	if cfg.Extraction.CacheTTL == 0 {
		cfg.Extraction.CacheTTL = DefaultCacheTTL
	}
	if cfg.Extraction.BatchParallelism == 0 {
		cfg.Extraction.BatchParallelism = 4
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

//Personal.AI order the ending
