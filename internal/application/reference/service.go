// Package reference keeps the active substance reference snapshot for the
// extraction services.  The snapshot lives in object storage, is rebuilt
// from the upstream export once it is older than the configured age and is
// swapped atomically so extractions never observe a partial table.
package reference

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	domainRef "github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
)

// DefaultMaxAge is how long a stored snapshot is used before a rebuild.
const DefaultMaxAge = 30 * 24 * time.Hour

const (
	lockName    = "reference:refresh"
	lockTTL     = 5 * time.Minute
	eventSource = "sdb-reference"
)

// Service owns the active snapshot.
type Service struct {
	current atomic.Pointer[domainRef.Snapshot]

	repo      domainRef.SnapshotRepository
	source    domainRef.Source
	locks     redis.LockFactory
	publisher kafka.Publisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	maxAge    time.Duration
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Service.
type Option func(*Service)

// WithLocks serialises rebuilds across processes.
func WithLocks(f redis.LockFactory) Option { return func(s *Service) { s.locks = f } }

// WithPublisher announces stored snapshots on the bus.
func WithPublisher(p kafka.Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMaxAge overrides DefaultMaxAge.  Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// NewService creates a Service holding an empty snapshot until Load runs.
// source may be nil, in which case the stored snapshot is never rebuilt.
func NewService(repo domainRef.SnapshotRepository, source domainRef.Source, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		source: source,
		logger: logging.NewNopLogger(),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(domainRef.EmptySnapshot())
	return s
}

// Current returns the active snapshot.  It is never nil.
func (s *Service) Current() *domainRef.Snapshot {
	return s.current.Load()
}

// Lookup returns the active snapshot as a lookup.
func (s *Service) Lookup() domainRef.Lookup {
	return s.Current()
}

// Version returns the active snapshot version.
func (s *Service) Version() string {
	return s.Current().Version
}

func (s *Service) activate(snap *domainRef.Snapshot) {
	s.current.Store(snap)
	if s.metrics != nil {
		prometheus.RecordReferenceSnapshot(s.metrics, snap.Len(), snap.BuiltAt)
	}
}

// Load activates the stored snapshot and rebuilds it when it is missing or
// older than the maximum age.  A stale snapshot stays active when the
// rebuild fails.
func (s *Service) Load(ctx context.Context) error {
	snap, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		s.activate(snap)
		s.logger.Info("reference snapshot loaded",
			logging.String("version", snap.Version),
			logging.Int("entries", snap.Len()))
	case errors.IsCode(err, errors.ErrCodeSnapshotUnavailable):
		s.logger.Warn("no stored reference snapshot", logging.Err(err))
	default:
		return err
	}

	if !s.Current().Stale(s.now(), s.maxAge) {
		return nil
	}
	if _, rerr := s.Refresh(ctx); rerr != nil {
		if snap != nil {
			s.logger.Warn("reference rebuild failed, keeping stale snapshot",
				logging.String("version", snap.Version), logging.Err(rerr))
			return nil
		}
		return rerr
	}
	return nil
}

// Reload activates whatever snapshot is stored, without rebuilding.
func (s *Service) Reload(ctx context.Context) error {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Version == s.Version() {
		return nil
	}
	s.activate(snap)
	s.logger.Info("reference snapshot reloaded", logging.String("version", snap.Version))
	return nil
}

// RefreshIfStale rebuilds when the active snapshot is older than the maximum
// age.  It reports whether a rebuild ran.
func (s *Service) RefreshIfStale(ctx context.Context) (bool, error) {
	if !s.Current().Stale(s.now(), s.maxAge) {
		return false, nil
	}
	_, err := s.Refresh(ctx)
	return err == nil, err
}

// Refresh rebuilds the snapshot from the source, stores it and activates it.
// When another process holds the refresh lock the stored snapshot is
// reloaded instead.
func (s *Service) Refresh(ctx context.Context) (*domainRef.Snapshot, error) {
	if s.source == nil {
		return nil, errors.New(errors.ErrCodeSnapshotUnavailable, "no reference source configured")
	}

	if s.locks != nil {
		lock := s.locks.NewMutex(lockName, redis.WithLockTTL(lockTTL), redis.WithWatchdog(true))
		ok, err := lock.TryLock(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			fields := []logging.Field{}
			if ttl, err := lock.TTL(ctx); err == nil {
				fields = append(fields, logging.Duration("lock_ttl", ttl))
			}
			s.logger.Info("reference refresh running elsewhere, reloading stored snapshot", fields...)
			if err := s.Reload(ctx); err != nil {
				return nil, err
			}
			return s.Current(), nil
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release reference lock", logging.Err(err))
			}
		}()
	}

	start := s.now()
	snap, err := s.rebuild(ctx)
	if s.metrics != nil {
		prometheus.RecordReferenceRefresh(s.metrics, s.now().Sub(start), err)
	}
	if err != nil {
		s.logger.Error("reference refresh failed", logging.Err(err))
		return nil, err
	}
	s.activate(snap)
	s.announce(ctx, snap)
	return snap, nil
}

func (s *Service) rebuild(ctx context.Context) (*domainRef.Snapshot, error) {
	snap, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return nil, errors.New(errors.ErrCodeSnapshotParseFailed, "reference source returned no entries")
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Info("reference snapshot stored",
		logging.String("version", snap.Version),
		logging.Int("entries", snap.Len()))
	return snap, nil
}

func (s *Service) announce(ctx context.Context, snap *domainRef.Snapshot) {
	if s.publisher == nil {
		return
	}
	msg, err := kafka.NewReferenceRefreshedMessage(eventSource, kafka.ReferenceRefreshedPayload{
		Version:     snap.Version,
		Entries:     snap.Len(),
		RefreshedAt: snap.BuiltAt,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("announce reference refresh", logging.Err(err))
		if s.metrics != nil {
			prometheus.RecordError(s.metrics, "kafka", "publish_error")
		}
	}
}

// HandleRefreshed reloads the stored snapshot when another instance
// announces a newer one.  It is registered on TopicReferenceRefreshed.
func (s *Service) HandleRefreshed(ctx context.Context, msg *common.Message) error {
	p, err := kafka.DecodeReferenceRefreshed(msg)
	if err != nil {
		return err
	}
	if p.Version == s.Version() {
		return nil
	}
	return s.Reload(ctx)
}

// StartScheduler checks staleness on the cron schedule spec (standard five
// field syntax).  Stop ends it.
func (s *Service) StartScheduler(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New(errors.ErrCodeConflict, "reference scheduler already running")
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, s.scheduledRefresh); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid reference refresh schedule").WithDetail(spec)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reference scheduler started", logging.String("schedule", spec))
	return nil
}

func (s *Service) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*lockTTL)
	defer cancel()
	if ran, err := s.RefreshIfStale(ctx); err != nil {
		s.logger.Error("scheduled reference refresh failed", logging.Err(err))
	} else if ran {
		s.logger.Info("scheduled reference refresh done", logging.String("version", s.Version()))
	}
}

// Stop halts the scheduler and waits for a running refresh.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

//Personal.AI order the ending
