package fetcher

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartMetadataSweep registers a standing cron job that proactively refreshes
// any active default playlist whose metadata has gone stale, complementing
// the inline per-call check emptyQueueHandler already performs so a playlist
// that never again becomes the selected candidate still gets refreshed.
// schedule is a standard 5-field cron expression (e.g. "0 */6 * * *" for
// every six hours). It returns the running *cron.Cron so the caller can
// Stop it on shutdown.
func (f *Fetcher) StartMetadataSweep(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		genre := ""
		if f.Genre != nil {
			genre = f.Genre()
		}
		for _, pl := range f.DefaultPlaylist.Active(genre) {
			if pl.Stale(MetadataStaleAfter) {
				f.refreshPlaylist(ctx, pl)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("fetcher: metadata sweep scheduled", "schedule", schedule)
	return c, nil
}
