package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a scan or cached track does not exist.
var ErrNotFound = errors.New("record not found")

// NextSequence bumps the counter in <table>_sequence and returns the new value.
// The single UPDATE ... RETURNING keeps concurrent callers from reading the same value.
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var seq int
	if err := db.QueryRow(query).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return seq, nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}
