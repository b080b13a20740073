package cache

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartEvictionSweep registers a standing cron job that re-checks the cache
// budget on a schedule, independent of the Evict call already triggered by
// every Admit. This catches drift from files that land in the cache
// directory outside the normal Admit path (e.g. manual operator seeding).
func (fc *FileCache) StartEvictionSweep(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, fc.Evict)
	if err != nil {
		return nil, err
	}
	c.Start()
	slog.Info("cache: eviction sweep scheduled", "schedule", schedule)
	return c, nil
}
