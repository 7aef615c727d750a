package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hitx/internal/models"
	"github.com/desertthunder/hitx/internal/shared"
)

const trackColumns = `id, track_id, uri, name, artists, album, album_art, album_art_small, year, duration_ms, preview_url, created_at, updated_at`

// TrackRepository implements [models.Repository] for the track metadata cache.
//
// Artists are stored as a JSON array so names containing commas survive.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] with a generated ID
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := shared.MarshalJSON(track.Track().Artists, false)
	if err != nil {
		return fmt.Errorf("failed to encode artists: %w", err)
	}

	id := shared.GenerateID()
	t := track.Track()

	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		t.ID,
		t.URI,
		t.Name,
		string(artists),
		t.Album,
		t.AlbumArt,
		t.AlbumArtSmall,
		t.Year,
		t.DurationMs,
		t.PreviewURL,
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	track.SetID(id)
	return nil
}

// Get retrieves a cached track by its row ID
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByTrackID retrieves a cached track by its service track id
func (r *TrackRepository) GetByTrackID(trackID string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE track_id = ?`
	return r.scan(r.db.QueryRow(query, trackID))
}

// Update replaces the metadata of a cached track
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := shared.MarshalJSON(track.Track().Artists, false)
	if err != nil {
		return fmt.Errorf("failed to encode artists: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)
	t := track.Track()

	query := `
		UPDATE tracks
		SET uri = ?, name = ?, artists = ?, album = ?, album_art = ?, album_art_small = ?,
		    year = ?, duration_ms = ?, preview_url = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		t.URI,
		t.Name,
		string(artists),
		t.Album,
		t.AlbumArt,
		t.AlbumArtSmall,
		t.Year,
		t.DurationMs,
		t.PreviewURL,
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	return requireRow(result, "track", track.ID())
}

// Delete removes a cached track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return requireRow(result, "track", id)
}

// List retrieves cached tracks ordered by name.
//
// Recognised criteria: "year" (int).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks`
	args := []any{}

	if year, ok := criteria["year"].(int); ok && year > 0 {
		query += " WHERE year = ?"
		args = append(args, year)
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

func (r *TrackRepository) scan(row rowScanner) (*models.PersistedTrack, error) {
	var (
		id        string
		artists   string
		createdAt time.Time
		updatedAt time.Time
		t         models.Track
	)

	err := row.Scan(&id, &t.ID, &t.URI, &t.Name, &artists, &t.Album, &t.AlbumArt, &t.AlbumArtSmall, &t.Year, &t.DurationMs, &t.PreviewURL, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	if artists != "" {
		if err := json.Unmarshal([]byte(artists), &t.Artists); err != nil {
			return nil, fmt.Errorf("failed to decode artists: %w", err)
		}
	}

	track := models.NewPersistedTrack(t)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	return track, nil
}
