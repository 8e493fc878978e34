package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/SDB-Intelligence/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewRedisCache(NewClientFromUniversal(db, logging.NewNopLogger()), logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedResult struct {
	Profile string            `json:"profile"`
	Record  map[string]string `json:"record"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := cachedResult{Profile: "acros", Record: map[string]string{"cas": "67-64-1"}}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:key1").SetVal(string(raw))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:key1").RedisNil()

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.Equal(s.T(), ErrCacheMiss, err)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptPayload() {
	s.mock.ExpectGet("test:key1").SetVal("{not json")

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:key1").SetErr(errors.New("connection reset"))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	assert.NotEqual(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestDelete_Success() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	assert.NoError(s.T(), s.cache.Delete(context.Background(), "k1", "k2"))
}

func (s *CacheTestSuite) TestDelete_NoKeys() {
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists_True() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	exists, err := s.cache.Exists(context.Background(), "k1")
	assert.NoError(s.T(), err)
	assert.True(s.T(), exists)
}

func (s *CacheTestSuite) TestGetOrSet_Hit() {
	val := cachedResult{Profile: "merck"}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:key1").SetVal(string(raw))

	called := false
	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})

	assert.NoError(s.T(), err)
	assert.False(s.T(), called)
	assert.Equal(s.T(), val, dest)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestGetOrSet_MissLoadsOnceAndStores(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger(), WithPrefix("sdb:test:"))
	ctx := context.Background()

	var calls int32
	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return cachedResult{Profile: "caelo"}, nil
	}

	var wg sync.WaitGroup
	results := make([]cachedResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, cache.GetOrSet(ctx, "doc", &results[i], time.Hour, loader))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	for _, r := range results {
		assert.Equal(t, "caelo", r.Profile)
	}
	assert.True(t, mr.Exists("sdb:test:doc"))

	ttl := mr.TTL("sdb:test:doc")
	assert.Greater(t, ttl, 50*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestGetOrSet_LoaderError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger())

	var dest cachedResult
	err := cache.GetOrSet(context.Background(), "doc", &dest, 0, func(ctx context.Context) (interface{}, error) {
		return nil, pkgerrors.UnsupportedProfile("roth")
	})

	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeUnsupportedProfile))
	assert.False(t, mr.Exists("sdb:doc"))
}

func TestPing(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, logging.NewNopLogger())

	assert.NoError(t, cache.Ping(context.Background()))
	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}

//Personal.AI order the ending
