// Package models defines the entities hitx persists and the interfaces for storing them.
//
//   - [Track] : track metadata DTO, the cached form of what the playback service returns
//   - [PersistedTrack] : a cached [Track], keyed by service track id
//   - [Scan] : one accepted card scan, grouped by scanning session
//
// Persistent entities implement [Model]; [Repository] defines the CRUD operations
// their stores provide. Scans support soft delete; cached tracks are replaced in place.
package models
