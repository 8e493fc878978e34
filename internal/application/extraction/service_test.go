package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainRecord "github.com/turtacn/SDB-Intelligence/internal/domain/record"
	domainRef "github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/engine"
	"github.com/turtacn/SDB-Intelligence/internal/testutil"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

var testNow = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

type stubExtractor struct {
	calls atomic.Int32
	res   *engine.Result
}

func (e *stubExtractor) Extract(profileID, text string, _ domainRef.Lookup) (*engine.Result, error) {
	e.calls.Add(1)
	if profileID != "acros" {
		return nil, errors.UnsupportedProfile(profileID)
	}
	res := *e.res
	res.Record = e.res.Record.Clone()
	return &res, nil
}

func (e *stubExtractor) Profiles() []string   { return []string{"acros"} }
func (e *stubExtractor) TableVersion() string { return "ghs-test" }

func newStubExtractor(cas string, valid bool) *stubExtractor {
	return &stubExtractor{res: &engine.Result{
		Profile:      "acros",
		Record:       sdb.Record{sdb.FieldCAS: cas, sdb.FieldName: "Aceton", sdb.FieldHazards: []string{"225"}},
		Fallbacks:    []string{"wgk"},
		TableVersion: "ghs-test",
		CASValid:     valid,
	}}
}

type stubRefs struct{ version string }

func (r stubRefs) Lookup() domainRef.Lookup { return domainRef.EmptySnapshot() }
func (r stubRefs) Version() string          { return r.version }

type memRecords struct {
	mu    sync.Mutex
	saved []*sdb.StoredRecord
	err   error
}

func (m *memRecords) Save(_ context.Context, rec *sdb.StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = "rec-1"
	rec.CreatedAt = testNow
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memRecords) GetByID(_ context.Context, id string) (*sdb.StoredRecord, error) {
	for _, r := range m.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New(errors.ErrCodeRecordNotFound, "record not found")
}

func (m *memRecords) FindByCAS(_ context.Context, cas string, _ ...domainRecord.QueryOption) ([]*sdb.StoredRecord, error) {
	var out []*sdb.StoredRecord
	for _, r := range m.saved {
		if r.CAS == cas {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecords) List(_ context.Context, _ ...domainRecord.QueryOption) ([]*sdb.StoredRecord, int64, error) {
	return m.saved, int64(len(m.saved)), nil
}

type memDocs struct {
	texts     map[string]string
	results   map[string][]byte
	presignFn func(key string) (string, error)
}

func (d *memDocs) Text(_ context.Context, key string) (string, error) {
	t, ok := d.texts[key]
	if !ok {
		return "", errors.NotFound("document not found")
	}
	return t, nil
}

func (d *memDocs) PutResult(_ context.Context, jobID string, payload []byte, at time.Time) (string, error) {
	key := "results/" + at.Format("2006/01/02") + "/" + jobID + ".json"
	d.results[key] = payload
	return key, nil
}

func (d *memDocs) ResultURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if d.presignFn != nil {
		return d.presignFn(key)
	}
	return "https://objects.local/" + key + "?expires=" + expiry.String(), nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
}

func (p *recordingPublisher) Publish(_ context.Context, m *common.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return nil
}

type callbackRecorder struct {
	mu      sync.Mutex
	results []sdb.JobResult
	status  []int
}

func (c *callbackRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		code := http.StatusOK
		if len(c.status) > 0 {
			code, c.status = c.status[0], c.status[1:]
		}
		var res sdb.JobResult
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&res))
		c.results = append(c.results, res)
		w.WriteHeader(code)
	}
}

type fixture struct {
	svc       *Service
	extractor *stubExtractor
	records   *memRecords
	docs      *memDocs
	publisher *recordingPublisher
	callbacks *callbackRecorder
	server    *httptest.Server
	logger    *testutil.MockLogger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		extractor: newStubExtractor("67-64-1", true),
		records:   &memRecords{},
		docs:      &memDocs{texts: map[string]string{"docs/acetone.txt": "Aceton Sicherheitsdatenblatt"}, results: map[string][]byte{}},
		publisher: &recordingPublisher{},
		callbacks: &callbackRecorder{},
		logger:    testutil.NewMockLogger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sdb.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Aceton Sicherheitsdatenblatt")
	})
	mux.HandleFunc("/missing.txt", http.NotFound)
	mux.HandleFunc("/callback", f.callbacks.handler(t))
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	base := []Option{
		WithRecords(f.records),
		WithDocuments(f.docs),
		WithPublisher(f.publisher),
		WithLogger(f.logger),
		WithHTTPClient(f.server.Client()),
		WithCallbackRetry(3, time.Millisecond),
	}
	f.svc = NewService(f.extractor, stubRefs{version: "ref-1"}, append(base, opts...)...)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) job(id string) *sdb.Job {
	return &sdb.Job{
		ID:            id,
		Profile:       "acros",
		DownloadURL:   f.server.URL + "/sdb.txt",
		ResultURL:     f.server.URL + "/callback",
		SecurityToken: "s3cret",
		Producer:      "Acros Organics",
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Extract(context.Background(), "acros", "  \n ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyDocument))
	assert.Zero(t, f.extractor.calls.Load())
}

func TestExtract_UnsupportedProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Extract(context.Background(), "sigma", "text")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedProfile))
}

func TestExtract_InvalidCASIsLoggedAndKept(t *testing.T) {
	f := newFixture(t)
	f.extractor.res = newStubExtractor("67-64-2", false).res

	res, err := f.svc.Extract(context.Background(), "acros", "text")
	require.NoError(t, err)
	assert.Equal(t, "67-64-2", res.Record.String(sdb.FieldCAS))
	assert.True(t, f.logger.HasMessage("warn", "extracted CAS number fails check digit"))
}

func TestExtract_Cached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client, err := redis.NewClient(&redis.Config{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, WithCache(redis.NewRedisCache(client, logging.NewNopLogger(), redis.WithPrefix("sdb:")), time.Hour))

	first, err := f.svc.Extract(context.Background(), "acros", "same text")
	require.NoError(t, err)
	second, err := f.svc.Extract(context.Background(), "acros", "same text")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.extractor.calls.Load())
	assert.Equal(t, first.Record.String(sdb.FieldCAS), second.Record.String(sdb.FieldCAS))
	assert.Equal(t, []string{"225"}, second.Record.Strings(sdb.FieldHazards))

	_, err = f.svc.Extract(context.Background(), "acros", "other text")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.extractor.calls.Load())
}

func TestCacheKey_DependsOnReferenceVersion(t *testing.T) {
	a := NewService(newStubExtractor("1", true), stubRefs{version: "v1"})
	b := NewService(newStubExtractor("1", true), stubRefs{version: "v2"})
	assert.NotEqual(t, a.cacheKey("acros", "t"), b.cacheKey("acros", "t"))
	assert.Equal(t, a.cacheKey("acros", "t"), a.cacheKey("acros", "t"))
}

func TestProcess_DownloadURL(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Process(context.Background(), f.job("job-1"))
	require.NoError(t, err)
	assert.Equal(t, sdb.JobStatusCompleted, res.Status)
	assert.Equal(t, "rec-1", res.RecordID)
	assert.Equal(t, "results/2024/07/01/job-1.json", res.ResultKey)
	assert.Empty(t, res.SecurityToken)

	require.Len(t, f.records.saved, 1)
	stored := f.records.saved[0]
	assert.Equal(t, "job-1", stored.JobID)
	assert.Equal(t, "67-64-1", stored.CAS)
	assert.Equal(t, "ref-1", stored.ReferenceVersion)
	assert.Equal(t, f.server.URL+"/sdb.txt", stored.Source)
	assert.Equal(t, "Acros Organics", stored.Record.String(sdb.FieldProducer))

	require.Len(t, f.callbacks.results, 1)
	assert.Equal(t, "s3cret", f.callbacks.results[0].SecurityToken)
	assert.Equal(t, sdb.JobStatusCompleted, f.callbacks.results[0].Status)

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, kafka.TopicExtractionCompleted, f.publisher.msgs[0].Topic)
	assert.NotContains(t, string(f.publisher.msgs[0].Value), "s3cret")
	assert.NotContains(t, string(f.docs.results[res.ResultKey]), "s3cret")
}

func TestProcess_ResultLinks(t *testing.T) {
	f := newFixture(t, WithResultLinks(time.Hour))

	res, err := f.svc.Process(context.Background(), f.job("job-7"))
	require.NoError(t, err)
	assert.Equal(t, "https://objects.local/results/2024/07/01/job-7.json?expires=1h0m0s", res.ResultLink)
	require.Len(t, f.callbacks.results, 1)
	assert.Equal(t, res.ResultLink, f.callbacks.results[0].ResultLink)

	f = newFixture(t)
	res, err = f.svc.Process(context.Background(), f.job("job-8"))
	require.NoError(t, err)
	assert.Empty(t, res.ResultLink, "links are off by default")
}

func TestProcess_ResultLinkFailureKeepsResult(t *testing.T) {
	f := newFixture(t, WithResultLinks(time.Hour))
	f.docs.presignFn = func(string) (string, error) {
		return "", errors.New(errors.ErrCodeStorageError, "presign failed")
	}

	res, err := f.svc.Process(context.Background(), f.job("job-9"))
	require.NoError(t, err)
	assert.Equal(t, sdb.JobStatusCompleted, res.Status)
	assert.NotEmpty(t, res.ResultKey)
	assert.Empty(t, res.ResultLink)
	assert.True(t, f.logger.HasMessage("warn", "presign result"))
}

func TestProcess_DocumentKey(t *testing.T) {
	f := newFixture(t)
	job := f.job("job-2")
	job.DownloadURL = ""
	job.DocumentKey = "docs/acetone.txt"

	res, err := f.svc.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "object:docs/acetone.txt", f.records.saved[0].Source)
	assert.Equal(t, "job-2", res.JobID)
}

func TestProcess_InvalidJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Process(context.Background(), &sdb.Job{ID: "x", Profile: "acros"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobInvalid))
}

func TestProcess_DownloadFails(t *testing.T) {
	f := newFixture(t)
	job := f.job("job-3")
	job.DownloadURL = f.server.URL + "/missing.txt"

	_, err := f.svc.Process(context.Background(), job)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentFetch))
	assert.Empty(t, f.records.saved)
	assert.Empty(t, f.callbacks.results)
}

func TestProcess_CallbackRetriedThenGivenUp(t *testing.T) {
	f := newFixture(t)
	f.callbacks.status = []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}

	_, err := f.svc.Process(context.Background(), f.job("job-4"))
	require.NoError(t, err)
	assert.Len(t, f.callbacks.results, 3)
	assert.True(t, f.logger.HasMessage("warn", "result callback failed"))
	assert.Len(t, f.publisher.msgs, 1)
}

func TestProcess_CallbackClientErrorNotRetried(t *testing.T) {
	f := newFixture(t)
	f.callbacks.status = []int{http.StatusForbidden}

	_, err := f.svc.Process(context.Background(), f.job("job-5"))
	require.NoError(t, err)
	assert.Len(t, f.callbacks.results, 1)
}

func TestHandleJobMessage(t *testing.T) {
	f := newFixture(t)
	msg, err := kafka.NewJobRequestedMessage("api", f.job("job-6"))
	require.NoError(t, err)

	err = f.svc.HandleJobMessage(context.Background(), &common.Message{Topic: msg.Topic, Value: msg.Value})
	require.NoError(t, err)
	assert.Len(t, f.records.saved, 1)
}

func TestHandleJobMessage_PermanentFailureIsReported(t *testing.T) {
	f := newFixture(t)
	job := f.job("job-7")
	job.Profile = "sigma"
	msg, err := kafka.NewJobRequestedMessage("api", job)
	require.NoError(t, err)

	err = f.svc.HandleJobMessage(context.Background(), &common.Message{Topic: msg.Topic, Value: msg.Value})
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedProfile))

	require.Len(t, f.callbacks.results, 1)
	assert.Equal(t, sdb.JobStatusFailed, f.callbacks.results[0].Status)
	assert.NotEmpty(t, f.callbacks.results[0].Error)
	require.Len(t, f.publisher.msgs, 1)
}

func TestHandleJobMessage_RetryableFailureIsNotReported(t *testing.T) {
	f := newFixture(t)
	job := f.job("job-8")
	job.DownloadURL = f.server.URL + "/missing.txt"
	msg, err := kafka.NewJobRequestedMessage("api", job)
	require.NoError(t, err)

	err = f.svc.HandleJobMessage(context.Background(), &common.Message{Topic: msg.Topic, Value: msg.Value})
	require.Error(t, err)
	assert.True(t, kafka.IsRetryable(err))
	assert.Empty(t, f.callbacks.results)
}

func TestListRecords(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Process(context.Background(), f.job("job-9"))
	require.NoError(t, err)

	recs, total, err := f.svc.ListRecords(context.Background(), " 67-64-1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, recs, 1)

	rec, err := f.svc.GetRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "job-9", rec.JobID)
}

func TestRecordsNotConfigured(t *testing.T) {
	svc := NewService(newStubExtractor("1", true), nil)
	_, err := svc.GetRecord(context.Background(), "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotImplemented))
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "Lösung", DecodeText([]byte("Lösung")))
	assert.Equal(t, "Lösung", DecodeText([]byte{'L', 0xf6, 's', 'u', 'n', 'g'}))
	assert.Equal(t, "abc", DecodeText([]byte("\xef\xbb\xbfabc")))
}

//Personal.AI order the ending
