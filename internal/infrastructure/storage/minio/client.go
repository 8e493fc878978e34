package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// ObjectAPI is the subset of the MinIO SDK the repository relies on.
// GetObject returns a plain ReadCloser so tests can fake object bodies.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

// BucketConfig names the buckets the service writes to.
type BucketConfig struct {
	Documents string `mapstructure:"documents"`
	Results   string `mapstructure:"results"`
	Reference string `mapstructure:"reference"`
}

type Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	Buckets         BucketConfig  `mapstructure:"buckets"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	// ResultRetentionDays expires delivered result documents; 0 keeps them.
	ResultRetentionDays int `mapstructure:"result_retention_days"`
}

type Client struct {
	api    ObjectAPI
	config *Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

var ErrClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

func NewClient(cfg *Config, log logging.Logger) (*Client, error) {
	applyDefaults(cfg)

	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := NewClientWithAPI(sdkAPI{sdk}, cfg, log)
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	c.SetupLifecycleRules(ctx)

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI builds a client over an existing ObjectAPI without any
// network round trip.
func NewClientWithAPI(api ObjectAPI, cfg *Config, log logging.Logger) *Client {
	applyDefaults(cfg)
	return &Client{api: api, config: cfg, logger: log}
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.Buckets.Documents == "" {
		cfg.Buckets.Documents = "sdb-documents"
	}
	if cfg.Buckets.Results == "" {
		cfg.Buckets.Results = "sdb-results"
	}
	if cfg.Buckets.Reference == "" {
		cfg.Buckets.Reference = "sdb-reference"
	}
}

func (c *Client) buckets() []string {
	return []string{c.config.Buckets.Documents, c.config.Buckets.Results, c.config.Buckets.Reference}
}

func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range c.buckets() {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check bucket existence")
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, fmt.Sprintf("failed to create bucket %s", bucket))
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// SetupLifecycleRules installs the result expiry rule. Failures are logged,
// not returned; a missing rule only means results are kept longer.
func (c *Client) SetupLifecycleRules(ctx context.Context) {
	if c.config.ResultRetentionDays <= 0 {
		return
	}
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{{
		ID:     "results-expiry",
		Status: "Enabled",
		Expiration: lifecycle.Expiration{
			Days: lifecycle.ExpirationDays(c.config.ResultRetentionDays),
		},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.config.Buckets.Results, cfg); err != nil {
		c.logger.Warn("Failed to set lifecycle for results bucket", logging.Err(err))
	}
}

func (c *Client) API() ObjectAPI {
	return c.api
}

func (c *Client) Buckets() BucketConfig {
	return c.config.Buckets
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

type HealthStatus struct {
	Healthy        bool
	Latency        time.Duration
	BucketStatuses map[string]bool
	Error          string
}

func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if c.isClosed() {
		return &HealthStatus{Error: ErrClientClosed.Error()}, ErrClientClosed
	}
	start := time.Now()
	status := &HealthStatus{Healthy: true, BucketStatuses: make(map[string]bool)}
	for _, b := range c.buckets() {
		exists, err := c.api.BucketExists(ctx, b)
		if err != nil {
			status.Healthy = false
			status.Error = err.Error()
			status.Latency = time.Since(start)
			return status, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
		}
		status.BucketStatuses[b] = exists
		if !exists {
			status.Healthy = false
			status.Error = fmt.Sprintf("bucket %s missing", b)
		}
	}
	status.Latency = time.Since(start)
	return status, nil
}

func (c *Client) GeneratePresignedGetURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = c.config.PresignExpiry
	}
	u, err := c.api.PresignedGetObject(ctx, bucketName, objectName, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign object")
	}
	return u.String(), nil
}

//Personal.AI order the ending
