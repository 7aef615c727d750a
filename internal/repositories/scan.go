package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hitx/internal/models"
	"github.com/desertthunder/hitx/internal/shared"
)

const scanColumns = `id, sequence, session_id, track_id, track_uri, payload, strategy, mode, device_name, scanned_at, created_at, deleted_at`

// ScanRepository implements [models.Repository] for [models.Scan] persistence.
type ScanRepository struct {
	db *sql.DB
}

// NewScanRepository creates a new [ScanRepository] with the given database connection
func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create inserts a scan with a generated ID and the next sequence number
func (r *ScanRepository) Create(scan *models.Scan) error {
	if err := scan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "scans")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO scans (` + scanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		scan.SessionID(),
		scan.TrackID(),
		scan.TrackURI(),
		scan.Payload(),
		scan.Strategy(),
		scan.Mode(),
		scan.DeviceName(),
		scan.ScannedAt(),
		scan.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	scan.SetID(id)
	scan.SetSequence(sequence)
	return nil
}

// Get retrieves a scan by ID, excluding soft-deleted scans
func (r *ScanRepository) Get(id string) (*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Update changes the mode and device recorded for a scan
func (r *ScanRepository) Update(scan *models.Scan) error {
	if err := scan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE scans
		SET mode = ?, device_name = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, scan.Mode(), scan.DeviceName(), scan.ID())
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	return requireRow(result, "scan", scan.ID())
}

// Delete soft-deletes a scan by ID
func (r *ScanRepository) Delete(id string) error {
	query := `UPDATE scans SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	return requireRow(result, "scan", id)
}

// List retrieves scans matching criteria, newest first.
//
// Recognised criteria: "session_id" (string), "track_id" (string), "limit" (int).
func (r *ScanRepository) List(criteria map[string]any) ([]*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE deleted_at IS NULL`
	args := []any{}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	if trackID, ok := criteria["track_id"].(string); ok && trackID != "" {
		query += " AND track_id = ?"
		args = append(args, trackID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		scan, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return scans, nil
}

// Recent returns the latest limit scans across all sessions
func (r *ScanRepository) Recent(limit int) ([]*models.Scan, error) {
	return r.List(map[string]any{"limit": limit})
}

// CountBySession returns how many cards were scanned in a session
func (r *ScanRepository) CountBySession(sessionID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM scans WHERE session_id = ? AND deleted_at IS NULL`
	if err := r.db.QueryRow(query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return count, nil
}

func (r *ScanRepository) scan(row rowScanner) (*models.Scan, error) {
	var (
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
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sessionID, &trackID, &trackURI, &payload, &strategy, &mode, &deviceName, &scannedAt, &createdAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scan row: %w", err)
	}

	scan := models.NewScan(sessionID, trackID, trackURI, payload, strategy, scannedAt)
	scan.SetID(id)
	scan.SetSequence(sequence)
	scan.SetDevice(mode, deviceName)
	scan.SetCreatedAt(createdAt)
	if deletedAt.Valid {
		scan.SetDeletedAt(&deletedAt.Time)
	}

	return scan, nil
}

// requireRow returns [ErrNotFound] when an update or delete touched nothing.
func requireRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
