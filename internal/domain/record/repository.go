package record

import (
	"context"

	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// Repository persists extraction results.
type Repository interface {
	// Save inserts rec. An empty ID is assigned by the store; CreatedAt is
	// set to the insert time.
	Save(ctx context.Context, rec *sdb.StoredRecord) error
	// GetByID returns an ErrCodeRecordNotFound error when id is unknown.
	GetByID(ctx context.Context, id string) (*sdb.StoredRecord, error)
	// FindByCAS returns the records carrying cas, newest first.
	FindByCAS(ctx context.Context, cas string, opts ...QueryOption) ([]*sdb.StoredRecord, error)
	// List returns one page of records, newest first, and the total count
	// matching the filters.
	List(ctx context.Context, opts ...QueryOption) ([]*sdb.StoredRecord, int64, error)
}

// QueryOptions encapsulates query parameters.
type QueryOptions struct {
	Offset  int
	Limit   int
	Profile string
	JobID   string
}

// QueryOption is a functional option for QueryOptions.
type QueryOption func(*QueryOptions)

// WithPagination sets pagination options.
func WithPagination(offset, limit int) QueryOption {
	return func(o *QueryOptions) {
		if offset < 0 {
			offset = 0
		}
		if limit < 1 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
		o.Offset = offset
		o.Limit = limit
	}
}

// WithProfile restricts results to one manufacturer profile.
func WithProfile(profile string) QueryOption {
	return func(o *QueryOptions) {
		o.Profile = profile
	}
}

// WithJobID restricts results to the records of one job.
func WithJobID(jobID string) QueryOption {
	return func(o *QueryOptions) {
		o.JobID = jobID
	}
}

// ApplyOptions folds opts over the defaults.
func ApplyOptions(opts ...QueryOption) QueryOptions {
	o := QueryOptions{Limit: 20}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

//Personal.AI order the ending
