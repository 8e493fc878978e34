// Package extraction is the application service behind the HTTP API, the
// job worker and the batch CLI.  It runs the engine against the active
// reference snapshot, caches results, persists records and delivers job
// outcomes.
package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	domainRecord "github.com/turtacn/SDB-Intelligence/internal/domain/record"
	domainRef "github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/engine"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Extractor runs the extraction pipeline.  *engine.Engine implements it.
type Extractor interface {
	Extract(profileID, text string, lookup domainRef.Lookup) (*engine.Result, error)
	Profiles() []string
	TableVersion() string
}

// ReferenceProvider hands out the active reference snapshot.
type ReferenceProvider interface {
	Lookup() domainRef.Lookup
	Version() string
}

// DocumentStore reads stored documents and keeps delivered results.
type DocumentStore interface {
	Text(ctx context.Context, key string) (string, error)
	PutResult(ctx context.Context, jobID string, payload []byte, at time.Time) (string, error)
	ResultURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const cacheName = "extraction"

// Service coordinates extraction.
type Service struct {
	extractor Extractor
	refs      ReferenceProvider
	records   domainRecord.Repository
	docs      DocumentStore
	cache     redis.Cache
	publisher kafka.Publisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	fetchClient    *http.Client
	callbackClient *http.Client
	callbackTries  int
	callbackWait   time.Duration
	maxDocBytes    int64
	cacheTTL       time.Duration
	linkExpiry     time.Duration
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithRecords(r domainRecord.Repository) Option { return func(s *Service) { s.records = r } }

func WithDocuments(d DocumentStore) Option { return func(s *Service) { s.docs = d } }

// WithResultLinks attaches a presigned link to every stored result, valid
// for expiry.  Zero disables links.
func WithResultLinks(expiry time.Duration) Option {
	return func(s *Service) { s.linkExpiry = expiry }
}

// WithCache caches extraction results for ttl.
func WithCache(c redis.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithPublisher publishes job outcomes to the result topic.
func WithPublisher(p kafka.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

// WithHTTPTimeouts bounds document downloads and result callbacks.
func WithHTTPTimeouts(fetch, callback time.Duration) Option {
	return func(s *Service) {
		if fetch > 0 {
			s.fetchClient = &http.Client{Timeout: fetch}
		}
		if callback > 0 {
			s.callbackClient = &http.Client{Timeout: callback}
		}
	}
}

// WithHTTPClient replaces both HTTP clients.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.fetchClient = c
		s.callbackClient = c
	}
}

// WithCallbackRetry sets how often a failed callback is attempted and the
// initial wait between attempts.
func WithCallbackRetry(tries int, wait time.Duration) Option {
	return func(s *Service) {
		if tries > 0 {
			s.callbackTries = tries
		}
		s.callbackWait = wait
	}
}

// NewService creates a Service.  refs may be nil to extract without a
// reference merge.
func NewService(extractor Extractor, refs ReferenceProvider, opts ...Option) *Service {
	s := &Service{
		extractor:      extractor,
		refs:           refs,
		logger:         logging.NewNopLogger(),
		fetchClient:    &http.Client{Timeout: 30 * time.Second},
		callbackClient: &http.Client{Timeout: 10 * time.Second},
		callbackTries:  3,
		callbackWait:   500 * time.Millisecond,
		maxDocBytes:    32 << 20,
		cacheTTL:       24 * time.Hour,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profiles lists the supported profile identifiers.
func (s *Service) Profiles() []string {
	return s.extractor.Profiles()
}

func (s *Service) lookup() domainRef.Lookup {
	if s.refs == nil {
		return nil
	}
	return s.refs.Lookup()
}

func (s *Service) referenceVersion() string {
	if s.refs == nil {
		return ""
	}
	return s.refs.Version()
}

// Extract runs the engine on text.  Results are cached per profile, text,
// pictogram table and reference version.
func (s *Service) Extract(ctx context.Context, profile, text string) (*engine.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeEmptyDocument, "document text is empty")
	}

	start := s.now()
	var (
		res *engine.Result
		err error
	)
	if s.cache != nil {
		res, err = s.cachedExtract(ctx, profile, text)
	} else {
		res, err = s.extractor.Extract(profile, text, s.lookup())
	}

	if s.metrics != nil {
		var fallbacks []string
		if res != nil {
			fallbacks = res.Fallbacks
		}
		prometheus.RecordExtraction(s.metrics, profile, s.now().Sub(start), fallbacks, err)
	}
	if err != nil {
		return nil, err
	}
	s.checkCAS(res)
	return res, nil
}

func (s *Service) cachedExtract(ctx context.Context, profile, text string) (*engine.Result, error) {
	var (
		res   engine.Result
		fresh *engine.Result
	)
	err := s.cache.GetOrSet(ctx, s.cacheKey(profile, text), &res, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		r, err := s.extractor.Extract(profile, text, s.lookup())
		fresh = r
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		prometheus.RecordCacheAccess(s.metrics, cacheName, fresh == nil)
	}
	// Cached records come back with JSON typed values; prefer the engine's
	// own result when this call produced it.
	if fresh != nil {
		return fresh, nil
	}
	return &res, nil
}

func (s *Service) cacheKey(profile, text string) string {
	h := sha256.New()
	for _, part := range []string{profile, s.extractor.TableVersion(), s.referenceVersion(), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "extract:" + hex.EncodeToString(h.Sum(nil))
}

// checkCAS logs records whose CAS number fails the check digit.  The record
// is kept as extracted.
func (s *Service) checkCAS(res *engine.Result) {
	if s.metrics != nil {
		prometheus.RecordCASCheck(s.metrics, res.Profile, res.CASValid, res.Referenced)
	}
	if cas := res.Record.String(sdb.FieldCAS); !res.CASValid && cas != "" {
		s.logger.Warn("extracted CAS number fails check digit",
			logging.Profile(res.Profile),
			logging.String("cas", cas))
	}
}

// StoreRequest describes where an extraction came from.
type StoreRequest struct {
	JobID    string
	Producer string
	Source   string
}

// Store persists res.
func (s *Service) Store(ctx context.Context, res *engine.Result, req StoreRequest) (*sdb.StoredRecord, error) {
	if s.records == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "record storage is not configured")
	}
	rec := res.Record
	if req.Producer != "" && rec.String(sdb.FieldProducer) == "" {
		rec = rec.Clone()
		rec[sdb.FieldProducer] = req.Producer
	}
	stored := &sdb.StoredRecord{
		JobID:            req.JobID,
		Profile:          res.Profile,
		CAS:              rec.String(sdb.FieldCAS),
		Name:             rec.String(sdb.FieldName),
		Producer:         req.Producer,
		Source:           req.Source,
		TableVersion:     res.TableVersion,
		ReferenceVersion: s.referenceVersion(),
		Record:           rec,
	}

	start := s.now()
	err := s.records.Save(ctx, stored)
	if s.metrics != nil {
		prometheus.RecordDBQuery(s.metrics, "record_save", s.now().Sub(start), err)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetRecord returns a stored record by id.
func (s *Service) GetRecord(ctx context.Context, id string) (*sdb.StoredRecord, error) {
	if s.records == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "record storage is not configured")
	}
	return s.records.GetByID(ctx, id)
}

// ListRecords returns stored records matching opts.  A non-empty cas
// narrows the result to that CAS number.
func (s *Service) ListRecords(ctx context.Context, cas string, opts ...domainRecord.QueryOption) ([]*sdb.StoredRecord, int64, error) {
	if s.records == nil {
		return nil, 0, errors.New(errors.ErrCodeNotImplemented, "record storage is not configured")
	}
	if cas = strings.TrimSpace(cas); cas != "" {
		recs, err := s.records.FindByCAS(ctx, cas, opts...)
		if err != nil {
			return nil, 0, err
		}
		return recs, int64(len(recs)), nil
	}
	return s.records.List(ctx, opts...)
}

//Personal.AI order the ending
