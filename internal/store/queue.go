package store

import (
	"errors"
	"strings"

	"github.com/arung-agamani/denpa-radio/internal/model"
)

// SongQueue is the persistent, user-facing request queue. Dedup key is the
// track URL: the same source may only be queued once at a time.
type SongQueue struct {
	*Store[model.QueueItem]
}

// NewSongQueue opens (or creates) the queue file at path.
func NewSongQueue(path string) (*SongQueue, error) {
	s, err := New(path, Policy[model.QueueItem]{
		Validate: validateQueueItem,
		DedupKey: func(item model.QueueItem) string { return item.URL },
	})
	if err != nil {
		return nil, err
	}
	return &SongQueue{s}, nil
}

func validateQueueItem(item model.QueueItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return errors.Join(ErrInvalid, errors.New("title is required"))
	}
	if strings.TrimSpace(item.URL) == "" {
		return errors.Join(ErrInvalid, errors.New("url is required"))
	}
	return nil
}
