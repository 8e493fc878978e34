package reference

import "context"

// SnapshotRepository persists reference snapshots.
type SnapshotRepository interface {
	// Load returns the stored snapshot.  It returns an error carrying
	// errors.ErrCodeSnapshotUnavailable when none has been stored yet.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, s *Snapshot) error
}

// Source builds fresh snapshots from the upstream reference data.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

//Personal.AI order the ending
