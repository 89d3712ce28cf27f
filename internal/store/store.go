package store

import (
	"context"
	"time"

	"github.com/nhle/taskclient/internal/model"
)

// DefaultOwner keys snapshots taken without an identifiable account.
const DefaultOwner = "default"

// SnapshotStore keeps the last successfully listed tasks per account so the
// UI can show something before the first refresh completes.
type SnapshotStore interface {
	// SaveSnapshot replaces owner's snapshot with tasks, preserving order.
	SaveSnapshot(ctx context.Context, owner string, tasks []model.Task) error

	// LoadSnapshot returns owner's snapshot and when it was fetched. An
	// owner without a snapshot yields no tasks and the zero time.
	LoadSnapshot(ctx context.Context, owner string) ([]model.Task, time.Time, error)

	// ClearSnapshot forgets owner's snapshot.
	ClearSnapshot(ctx context.Context, owner string) error

	Close() error
}
