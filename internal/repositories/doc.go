// Package repositories implements SQLite persistence for scans and cached tracks.
//
// Key Implementations:
//   - [ScanRepository] : accepted card scans, grouped by scanning session, with soft delete
//   - [TrackRepository] : track metadata cache keyed by service track id
//   - [TrackCacheAdapter] : lookup/store facade over [TrackRepository] used during play
//
// Scan sequence numbers give a stable, human-readable order ("card #12 of the night")
// independent of UUIDs and timestamps. [NextSequence] increments per-table counters in
// dedicated sequence tables.
package repositories
