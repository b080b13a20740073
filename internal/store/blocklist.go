package store

import (
	"errors"
	"strings"
	"time"

	"github.com/arung-agamani/denpa-radio/internal/fuzzy"
	"github.com/arung-agamani/denpa-radio/internal/model"
)

// BlockThreshold is the minimum token-set similarity for two song names to
// be considered the same blocked song.
const BlockThreshold = 85

// BlockList rejects songs whose name fuzzy-matches an existing entry. It has
// no exact dedup key; duplicate detection is entirely similarity-based, so
// Append always accepts unless IsBlocked is consulted by the caller first
// (mirroring the idempotent "already blocked" short-circuit the control
// surface performs before calling Append).
type BlockList struct {
	*Store[model.BlockEntry]
}

// NewBlockList opens (or creates) the block-list file at path.
func NewBlockList(path string) (*BlockList, error) {
	s, err := New(path, Policy[model.BlockEntry]{
		Validate: validateBlockEntry,
		Format:   formatBlockEntry,
	})
	if err != nil {
		return nil, err
	}
	return &BlockList{s}, nil
}

func validateBlockEntry(e model.BlockEntry) error {
	if strings.TrimSpace(e.SongName) == "" {
		return errors.Join(ErrInvalid, errors.New("songName is required"))
	}
	return nil
}

func formatBlockEntry(e model.BlockEntry) model.BlockEntry {
	if e.BlockedAt.IsZero() {
		e.BlockedAt = time.Now()
	}
	return e
}

// IsBlocked reports whether name fuzzy-matches (>= BlockThreshold) any entry
// currently in the list.
func (b *BlockList) IsBlocked(name string) bool {
	for _, e := range b.All() {
		if fuzzy.TokenSetRatio(e.SongName, name) >= BlockThreshold {
			return true
		}
	}
	return false
}

// FindSimilar returns the 1-based index (suitable for RemoveAt) of the first
// entry that fuzzy-matches name, or 0 if none does.
func (b *BlockList) FindSimilar(name string) int {
	for i, e := range b.All() {
		if fuzzy.TokenSetRatio(e.SongName, name) >= BlockThreshold {
			return i + 1
		}
	}
	return 0
}
