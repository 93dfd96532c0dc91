package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/shared"
)

// CachePurge deletes every cached catalog search and track from redis.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureCatalog(ctx); err != nil {
		return err
	}
	if r.cache == nil {
		return fmt.Errorf("%w: cache.redis_url is not set or redis is unreachable", shared.ErrMissingConfig)
	}

	n, err := r.cache.Purge(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("purged %d cache entries", n)
	r.writePlain("✓ Removed %d cached entries\n", n)
	return nil
}
