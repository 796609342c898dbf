package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/postwall/models"
	"github.com/cppla/postwall/storage"
	"github.com/cppla/postwall/utils"
)

const sweepBatch = 500

// SweepOrphans deletes stored post images older than grace that no post
// references. Such files are left behind when a post insert fails after
// its image was stored. Returns the number of removed objects.
func SweepOrphans(ctx context.Context, db *gorm.DB, store storage.ObjectStore, grace time.Duration) (int, error) {
	objects, err := store.List(ctx, "posts")
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-grace)
	var candidates []string
	for _, o := range objects {
		if o.ModTime.Before(cutoff) {
			candidates = append(candidates, o.Ref)
		}
	}

	removed := 0
	for start := 0; start < len(candidates); start += sweepBatch {
		end := min(start+sweepBatch, len(candidates))
		batch := candidates[start:end]

		var referenced []string
		if err := db.WithContext(ctx).Model(&models.Post{}).
			Where("image_ref IN ?", batch).
			Pluck("image_ref", &referenced).Error; err != nil {
			return removed, err
		}
		inUse := make(map[string]struct{}, len(referenced))
		for _, ref := range referenced {
			inUse[ref] = struct{}{}
		}
		for _, ref := range batch {
			if _, ok := inUse[ref]; ok {
				continue
			}
			if err := store.Delete(ctx, ref); err != nil {
				utils.Logger.Warn("orphan sweep delete failed", zap.String("ref", ref), zap.Error(err))
				continue
			}
			removed++
			utils.OrphansSweptTotal.Inc()
		}
	}
	return removed, nil
}

// StartOrphanSweeper launches a background goroutine that runs SweepOrphans
// every interval until ctx is cancelled. It is best-effort and logs failures.
func StartOrphanSweeper(ctx context.Context, db *gorm.DB, store storage.ObjectStore, interval, grace time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := SweepOrphans(ctx, db, store, grace)
			if err != nil {
				utils.Logger.Warn("orphan sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				utils.Logger.Info("orphan sweep removed images", zap.Int("count", n))
			}
		}
	}()
}
