package minio

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// DocumentStore keeps safety data sheet texts, delivered job results and
// the reference snapshot in their buckets.
type DocumentStore struct {
	repo         ObjectRepository
	buckets      BucketConfig
	snapshotKey  string
	resultPrefix string
}

// NewDocumentStore wires a store over repo. snapshotKey names the object
// holding the reference snapshot inside the reference bucket.
func NewDocumentStore(repo ObjectRepository, buckets BucketConfig, snapshotKey string) *DocumentStore {
	if snapshotKey == "" {
		snapshotKey = "uba.json"
	}
	return &DocumentStore{
		repo:         repo,
		buckets:      buckets,
		snapshotKey:  snapshotKey,
		resultPrefix: "results",
	}
}

// Text returns the document stored under key as a string.
func (s *DocumentStore) Text(ctx context.Context, key string) (string, error) {
	res, err := s.repo.Download(ctx, s.buckets.Documents, key)
	if err != nil {
		return "", err
	}
	return string(res.Data), nil
}

// PutText stores a plain text document.
func (s *DocumentStore) PutText(ctx context.Context, key, text string) error {
	_, err := s.repo.Upload(ctx, &UploadRequest{
		Bucket:      s.buckets.Documents,
		ObjectKey:   key,
		Data:        []byte(text),
		ContentType: "text/plain; charset=utf-8",
	})
	return err
}

// PutResult stores the JSON result of a job and returns its object key.
// Keys are partitioned by day: results/2006/01/02/<job>.json.
func (s *DocumentStore) PutResult(ctx context.Context, jobID string, payload []byte, at time.Time) (string, error) {
	if jobID == "" {
		return "", ErrInvalidRequest.WithDetail("job id is required")
	}
	key := path.Join(s.resultPrefix, at.UTC().Format("2006/01/02"), jobID+".json")
	_, err := s.repo.Upload(ctx, &UploadRequest{
		Bucket:      s.buckets.Results,
		ObjectKey:   key,
		Data:        payload,
		ContentType: "application/json",
		Metadata:    map[string]string{"job-id": jobID},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// ResultURL returns a presigned link to a stored result that stays valid
// for expiry.
func (s *DocumentStore) ResultURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.repo.GetPresignedDownloadURL(ctx, s.buckets.Results, key, expiry)
}

// Result returns a stored result document.
func (s *DocumentStore) Result(ctx context.Context, key string) ([]byte, error) {
	res, err := s.repo.Download(ctx, s.buckets.Results, key)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// SnapshotStore returns the reference snapshot persistence backed by this
// store.
func (s *DocumentStore) SnapshotStore() reference.SnapshotRepository {
	return snapshotStore{s}
}

type snapshotStore struct {
	s *DocumentStore
}

func (ss snapshotStore) Load(ctx context.Context) (*reference.Snapshot, error) {
	res, err := ss.s.repo.Download(ctx, ss.s.buckets.Reference, ss.s.snapshotKey)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, errors.Wrap(err, errors.ErrCodeSnapshotUnavailable, "no reference snapshot stored")
		}
		return nil, err
	}
	return reference.DecodeSnapshot(bytes.NewReader(res.Data))
}

func (ss snapshotStore) Save(ctx context.Context, snap *reference.Snapshot) error {
	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		return err
	}
	_, err := ss.s.repo.Upload(ctx, &UploadRequest{
		Bucket:      ss.s.buckets.Reference,
		ObjectKey:   ss.s.snapshotKey,
		Data:        buf.Bytes(),
		ContentType: "application/json",
		Metadata:    map[string]string{"snapshot-version": snap.Version},
	})
	return err
}

//Personal.AI order the ending
