package uba

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/SDB-Intelligence/internal/domain/reference"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// DefaultURL serves the current Rigoletto export.
const DefaultURL = "http://webrigoletto.uba.de/rigoletto/public/searchRequest.do?event=zipDownload"

// maxArchiveBytes bounds the download.  The export is a few megabytes.
const maxArchiveBytes = 256 << 20

// Source downloads the export and turns it into a snapshot.
type Source struct {
	url    string
	client *http.Client
	logger logging.Logger
	now    func() time.Time
	parse  []ParseOption
}

var _ reference.Source = (*Source)(nil)

// NewSource creates a Source for url.  An empty url selects DefaultURL and a
// nil client gets a two minute timeout.  opts are applied when the archive
// is parsed.
func NewSource(url string, client *http.Client, logger logging.Logger, opts ...ParseOption) *Source {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Source{url: url, client: client, logger: logger, now: time.Now, parse: opts}
}

// Fetch implements reference.Source.
func (s *Source) Fetch(ctx context.Context) (*reference.Snapshot, error) {
	start := s.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotDownload, "build reference request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotDownload, "download reference archive")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeSnapshotDownload, "reference download failed").
			WithDetail(resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotDownload, "read reference archive")
	}
	if len(data) > maxArchiveBytes {
		return nil, errors.New(errors.ErrCodeSnapshotDownload, "reference archive too large")
	}

	entries, err := ParseArchive(bytes.NewReader(data), int64(len(data)), s.parse...)
	if err != nil {
		return nil, err
	}
	snap := reference.NewSnapshot(entries, s.now(), s.url)
	s.logger.Info("reference snapshot built",
		logging.String("version", snap.Version),
		logging.Int("rows", len(entries)),
		logging.Int("entries", snap.Len()),
		logging.Int("bytes", len(data)),
		logging.Duration("took", s.now().Sub(start)))
	return snap, nil
}

//Personal.AI order the ending
