package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Job sources, used as metric labels.
const (
	SourceKafka = "kafka"
	SourceAPI   = "api"
)

const eventSource = "sdb-worker"

// Process runs job end to end: fetch the text, extract, persist, store the
// result document, call back and publish.  A failing callback is logged and
// does not fail the job.
func (s *Service) Process(ctx context.Context, job *sdb.Job) (*sdb.JobResult, error) {
	return s.process(ctx, job, SourceAPI)
}

func (s *Service) process(ctx context.Context, job *sdb.Job, source string) (*sdb.JobResult, error) {
	if msg := job.Validate(); msg != "" {
		return nil, errors.New(errors.ErrCodeJobInvalid, msg).WithDetail(job.ID)
	}
	log := s.logger.With(logging.JobID(job.ID), logging.Profile(job.Profile))
	start := s.now()
	if s.metrics != nil {
		s.metrics.JobsInFlight.WithLabelValues(source).Inc()
		defer s.metrics.JobsInFlight.WithLabelValues(source).Dec()
	}

	result, err := s.run(ctx, job, log)
	if s.metrics != nil {
		status := string(sdb.JobStatusCompleted)
		if err != nil {
			status = string(sdb.JobStatusFailed)
		}
		prometheus.RecordJob(s.metrics, source, status, s.now().Sub(start))
	}
	if err != nil {
		log.Error("job failed", logging.Err(err))
		return nil, err
	}
	log.Info("job completed",
		logging.String("record_id", result.RecordID),
		logging.Int("fallbacks", len(result.Fallbacks)),
		logging.Duration("took", s.now().Sub(start)))
	return result, nil
}

func (s *Service) run(ctx context.Context, job *sdb.Job, log logging.Logger) (*sdb.JobResult, error) {
	text, origin, err := s.fetch(ctx, job)
	if err != nil {
		return nil, err
	}

	res, err := s.Extract(ctx, job.Profile, text)
	if err != nil {
		return nil, err
	}

	result := &sdb.JobResult{
		JobID:     job.ID,
		Profile:   res.Profile,
		Status:    sdb.JobStatusCompleted,
		Record:    res.Record,
		Fallbacks: res.Fallbacks,
	}
	if s.records != nil {
		stored, err := s.Store(ctx, res, StoreRequest{JobID: job.ID, Producer: job.Producer, Source: origin})
		if err != nil {
			return nil, err
		}
		result.RecordID = stored.ID
		result.Record = stored.Record
	}
	result.CompletedAt = s.now().UTC()

	if s.docs != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal job result")
		}
		key, err := s.docs.PutResult(ctx, job.ID, payload, result.CompletedAt)
		if err != nil {
			return nil, err
		}
		result.ResultKey = key
		if s.linkExpiry > 0 {
			link, err := s.docs.ResultURL(ctx, key, s.linkExpiry)
			if err != nil {
				log.Warn("presign result", logging.Err(err), logging.String("key", key))
			} else {
				result.ResultLink = link
			}
		}
	}

	s.deliver(ctx, job, result, log)
	return result, nil
}

// fetch returns the job's document text and a description of where it came
// from.
func (s *Service) fetch(ctx context.Context, job *sdb.Job) (string, string, error) {
	if job.DocumentKey != "" {
		if s.docs == nil {
			return "", "", errors.New(errors.ErrCodeNotImplemented, "document storage is not configured")
		}
		text, err := s.docs.Text(ctx, job.DocumentKey)
		if err != nil {
			return "", "", errors.Wrap(err, errors.ErrCodeDocumentFetch, "read stored document").WithDetail(job.DocumentKey)
		}
		s.observeSize("storage", len(text))
		return text, "object:" + job.DocumentKey, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.DownloadURL, nil)
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrCodeJobInvalid, "invalid download url").WithDetail(job.DownloadURL)
	}
	resp, err := s.fetchClient.Do(req)
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrCodeDocumentFetch, "download document")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", errors.New(errors.ErrCodeDocumentFetch, "document download failed").WithDetail(resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxDocBytes+1))
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrCodeDocumentFetch, "read document")
	}
	if int64(len(data)) > s.maxDocBytes {
		return "", "", errors.New(errors.ErrCodeJobInvalid, "document too large").WithDetail(job.DownloadURL)
	}
	s.observeSize("http", len(data))
	return DecodeText(data), job.DownloadURL, nil
}

func (s *Service) observeSize(origin string, n int) {
	if s.metrics != nil {
		s.metrics.DocumentFetchSize.WithLabelValues(origin).Observe(float64(n))
	}
}

// DecodeText returns data as a string, reading it as Windows-1252 when it is
// not valid UTF-8.  Text converters on Windows still emit that encoding.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// deliver posts the result to the job's callback and publishes it.  The
// security token is only sent to the callback.
func (s *Service) deliver(ctx context.Context, job *sdb.Job, result *sdb.JobResult, log logging.Logger) {
	if job.ResultURL != "" {
		cb := *result
		cb.SecurityToken = job.SecurityToken
		err := s.callback(ctx, job.ResultURL, &cb)
		if s.metrics != nil {
			prometheus.RecordCallback(s.metrics, err)
		}
		if err != nil {
			log.Warn("result callback failed", logging.String("url", job.ResultURL), logging.Err(err))
		}
	}

	if s.publisher == nil {
		return
	}
	msg, err := kafka.NewJobCompletedMessage(eventSource, result)
	if err == nil {
		err = s.publisher.Publish(ctx, msg)
	}
	if err != nil {
		log.Warn("publish job result failed", logging.Err(err))
	}
}

// callback posts result as JSON, retrying transport errors and 5xx
// responses with doubling waits.
func (s *Service) callback(ctx context.Context, url string, result *sdb.JobResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal callback")
	}

	wait := s.callbackWait
	var lastErr error
	for attempt := 0; attempt < s.callbackTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeResultDelivery, "build callback request")
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.callbackClient.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, errors.ErrCodeResultDelivery, "post callback")
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			lastErr = errors.New(errors.ErrCodeResultDelivery, "callback rejected").WithDetail(resp.Status)
		default:
			return errors.New(errors.ErrCodeResultDelivery, "callback rejected").WithDetail(resp.Status)
		}
	}
	return lastErr
}

// ReportFailure delivers a failed result for job to its callback and the
// result topic.
func (s *Service) ReportFailure(ctx context.Context, job *sdb.Job, cause error) {
	result := &sdb.JobResult{
		JobID:       job.ID,
		Profile:     job.Profile,
		Status:      sdb.JobStatusFailed,
		Error:       cause.Error(),
		CompletedAt: s.now().UTC(),
	}
	s.deliver(ctx, job, result, s.logger.With(logging.JobID(job.ID)))
}

// HandleJobMessage processes a message from the request topic.  Failures
// that another attempt cannot fix are reported to the job's callback before
// the error is returned to the consumer, which dead-letters the message.
func (s *Service) HandleJobMessage(ctx context.Context, msg *common.Message) error {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MessageProcessDuration.WithLabelValues(msg.Topic).Observe(s.now().Sub(start).Seconds())
		}
	}()

	job, err := kafka.DecodeJobRequested(msg)
	if err != nil {
		s.logger.Error("undecodable job message", logging.Int64("offset", msg.Offset), logging.Err(err))
		return err
	}
	if _, err := s.process(ctx, job, SourceKafka); err != nil {
		if !kafka.IsRetryable(err) {
			s.ReportFailure(ctx, job, err)
		}
		return err
	}
	return nil
}

//Personal.AI order the ending
