package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/tosin2013/docdrift/internal/model"
)

// ErrNoSnapshot is returned when no readable snapshot exists.
var ErrNoSnapshot = errors.New("no snapshot")

// Store persists snapshots. Saved snapshots are never modified.
type Store interface {
	// Save persists snap and returns its storage key.
	Save(ctx context.Context, snap *model.Snapshot) (string, error)

	// LoadLatest returns the most recently timestamped snapshot, or an error
	// wrapping ErrNoSnapshot when none exists or the latest is unreadable.
	LoadLatest(ctx context.Context) (*model.Snapshot, error)

	// List returns the storage keys of all snapshots, oldest first.
	List(ctx context.Context) ([]string, error)
}

const stampLayout = "20060102T150405.000000000Z"

// key returns the sortable name of a snapshot: UTC timestamp followed by the
// first eight characters of its ID.
func key(snap *model.Snapshot) string {
	id := snap.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s", snap.Timestamp.UTC().Format(stampLayout), id)
}
