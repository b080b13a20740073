package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartMetadataSweepRejectsInvalidSchedule(t *testing.T) {
	f, _ := newTestFetcher(t)

	_, err := f.StartMetadataSweep(context.Background(), "not a cron expression")
	require.Error(t, err)
}

func TestStartMetadataSweepStartsAndStops(t *testing.T) {
	f, _ := newTestFetcher(t)

	c, err := f.StartMetadataSweep(context.Background(), "0 */6 * * *")
	require.NoError(t, err)
	require.NotNil(t, c)
	c.Stop()
}
