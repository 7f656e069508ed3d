package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/filters"
)

// Reclaim prunes unused images, then volumes, then containers and returns
// the total space reclaimed in bytes. A failing prune contributes nothing
// and is logged; it never fails the run.
func (c *Client) Reclaim(ctx context.Context) uint64 {
	steps := []struct {
		kind  string
		prune func(context.Context) (uint64, error)
	}{
		{"images", func(ctx context.Context) (uint64, error) {
			r, err := c.api.ImagesPrune(ctx, filters.NewArgs())
			return r.SpaceReclaimed, err
		}},
		{"volumes", func(ctx context.Context) (uint64, error) {
			r, err := c.api.VolumesPrune(ctx, filters.NewArgs())
			return r.SpaceReclaimed, err
		}},
		{"containers", func(ctx context.Context) (uint64, error) {
			r, err := c.api.ContainersPrune(ctx, filters.NewArgs())
			return r.SpaceReclaimed, err
		}},
	}

	var total uint64
	for _, s := range steps {
		n, err := s.prune(ctx)
		if err != nil {
			c.log.Warn("prune failed", "kind", s.kind, "err", err)
			continue
		}
		c.log.Debug("pruned", "kind", s.kind, "bytes", n)
		total += n
	}
	return total
}

// MegaBytes formats a byte count in decimal megabytes for display.
func MegaBytes(n uint64) string {
	return fmt.Sprintf("%.1fMB", float64(n)/1e6)
}
