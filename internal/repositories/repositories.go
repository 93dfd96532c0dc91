package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/soundpost/internal/docstore"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// Clock returns the current time. Tests replace it to get stable ids and paths.
type Clock func() time.Time

// snapshotCache memoizes user snapshots for the duration of one read.
type snapshotCache struct {
	users *UserRepository
	seen  map[string]*models.User
}

func newSnapshotCache(users *UserRepository) *snapshotCache {
	return &snapshotCache{users: users, seen: make(map[string]*models.User)}
}

func (c *snapshotCache) get(ctx context.Context, id string) *models.User {
	if u, ok := c.seen[id]; ok {
		return u.Clone()
	}
	u := c.users.Snapshot(ctx, id)
	c.seen[id] = u
	return u.Clone()
}

// incrementCounter adjusts a numeric field, treating a missing document as a no-op.
func incrementCounter(ctx context.Context, store docstore.Store, collection, id, field string, delta int) error {
	err := store.Update(ctx, collection, id, docstore.Increment(field, delta))
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}
