package memory

import (
	"context"
	"time"
)

type Store interface {
	// Upsert creates or replaces an item. createdAt of an existing id is
	// preserved across updates.
	Upsert(ctx context.Context, item Item) (Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	// Delete removes the item and its index entries, reporting whether a
	// row was actually removed.
	Delete(ctx context.Context, id string) (bool, error)
	// Pin flips the pinned flag and bumps updatedAt.
	Pin(ctx context.Context, id string, pinned bool) error
	// Touch updates access bookkeeping only; updatedAt is untouched.
	Touch(ctx context.Context, id string) error

	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)

	// SweepExpired deletes unpinned items whose TTL has elapsed relative
	// to updatedAt. It is a policy hook: callers decide when to run it,
	// the store never sweeps in the background.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	Stats(ctx context.Context) (Stats, error)
}
