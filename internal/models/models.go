// package models defines the persisted data of a game night: accepted scans and cached track metadata
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track is track metadata as cached locally.
type Track struct {
	ID            string // service track id
	URI           string
	Name          string
	Artists       []string
	Album         string
	AlbumArt      string
	AlbumArtSmall string
	Year          int
	DurationMs    int
	PreviewURL    string
}

// ArtistString joins the artist names for display.
func (t Track) ArtistString() string {
	return strings.Join(t.Artists, ", ")
}

// PersistedTrack is a cached [Track].
type PersistedTrack struct {
	id        string
	track     Track
	createdAt time.Time
	updatedAt time.Time
}

// NewPersistedTrack wraps track for caching.
func NewPersistedTrack(track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{track: track, createdAt: now, updatedAt: now}
}

func (t *PersistedTrack) ID() string { return t.id }
func (t *PersistedTrack) TrackID() string { return t.track.ID }
func (t *PersistedTrack) Track() Track { return t.track }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }

func (t *PersistedTrack) SetID(id string) { t.id = id }
func (t *PersistedTrack) SetTrack(track Track) { t.track = track }
func (t *PersistedTrack) SetCreatedAt(createdAt time.Time) { t.createdAt = createdAt }
func (t *PersistedTrack) SetUpdatedAt(updatedAt time.Time) { t.updatedAt = updatedAt }

func (t *PersistedTrack) Validate() error {
	if t.track.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.track.URI == "" {
		return fmt.Errorf("track uri is required")
	}
	if t.track.Name == "" {
		return fmt.Errorf("track name is required")
	}
	return nil
}

// Scan is one accepted card scan.
type Scan struct {
	id         string
	sequence   int
	sessionID  string
	trackID    string
	trackURI   string
	payload    string
	strategy   string
	mode       string
	deviceName string
	scannedAt  time.Time
	createdAt  time.Time
	deletedAt  *time.Time
}

// NewScan creates a [Scan] for a session. The sequence is assigned on insert.
func NewScan(sessionID, trackID, trackURI, payload, strategy string, scannedAt time.Time) *Scan {
	return &Scan{
		sessionID: sessionID,
		trackID:   trackID,
		trackURI:  trackURI,
		payload:   payload,
		strategy:  strategy,
		scannedAt: scannedAt,
		createdAt: time.Now(),
	}
}

func (s *Scan) ID() string { return s.id }
func (s *Scan) Sequence() int { return s.sequence }
func (s *Scan) SessionID() string { return s.sessionID }
func (s *Scan) TrackID() string { return s.trackID }
func (s *Scan) TrackURI() string { return s.trackURI }
func (s *Scan) Payload() string { return s.payload }
func (s *Scan) Strategy() string { return s.strategy }
func (s *Scan) Mode() string { return s.mode }
func (s *Scan) DeviceName() string { return s.deviceName }
func (s *Scan) ScannedAt() time.Time { return s.scannedAt }
func (s *Scan) CreatedAt() time.Time { return s.createdAt }
func (s *Scan) DeletedAt() *time.Time { return s.deletedAt }

// UpdatedAt returns the creation time; only the device fields of a scan ever change.
func (s *Scan) UpdatedAt() time.Time { return s.createdAt }

func (s *Scan) SetID(id string) { s.id = id }
func (s *Scan) SetSequence(sequence int) { s.sequence = sequence }
func (s *Scan) SetCreatedAt(createdAt time.Time) { s.createdAt = createdAt }
func (s *Scan) SetDeletedAt(deletedAt *time.Time) { s.deletedAt = deletedAt }

// SetDevice records which engine mode and device played the scan.
func (s *Scan) SetDevice(mode, deviceName string) {
	s.mode = mode
	s.deviceName = deviceName
}

func (s *Scan) Validate() error {
	if s.sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.trackID == "" {
		return fmt.Errorf("track id is required")
	}
	if s.payload == "" {
		return fmt.Errorf("payload is required")
	}
	if s.scannedAt.IsZero() {
		return fmt.Errorf("scan time is required")
	}
	return nil
}
