package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/hitx/internal/models"
)

// TrackCacheAdapter is the lookup/store facade over [TrackRepository] used during play.
//
// A lookup miss is not an error; Store inserts new tracks and refreshes known ones.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// Lookup returns the cached track for trackID.
func (a *TrackCacheAdapter) Lookup(trackID string) (*models.Track, bool) {
	cached, err := a.repo.GetByTrackID(trackID)
	if err != nil {
		return nil, false
	}
	t := cached.Track()
	return &t, true
}

// Store caches track, replacing any earlier copy.
func (a *TrackCacheAdapter) Store(track models.Track) error {
	existing, err := a.repo.GetByTrackID(track.ID)
	switch {
	case err == nil:
		existing.SetTrack(track)
		if err := a.repo.Update(existing); err != nil {
			return fmt.Errorf("failed to refresh cached track: %w", err)
		}
		return nil
	case errors.Is(err, ErrNotFound):
		if err := a.repo.Create(models.NewPersistedTrack(track)); err != nil {
			return fmt.Errorf("failed to cache track: %w", err)
		}
		return nil
	default:
		return err
	}
}
