package shared

import (
	"database/sql"
	"strings"
	"testing"
)

func memoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return n == 1
}

func TestMigrations(t *testing.T) {
	t.Run("embedded scripts are paired and ordered", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("no migrations embedded")
		}
		for i, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %d is missing a direction", m.Version)
			}
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("version %d listed after %d", m.Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("creates scans, tracks and a seeded sequence", func(t *testing.T) {
		db := memoryDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"scans", "scans_sequence", "tracks", "schema_migrations"} {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s", table)
			}
		}

		var seq int
		if err := db.QueryRow("SELECT value FROM scans_sequence WHERE id = 1").Scan(&seq); err != nil {
			t.Fatalf("sequence row missing: %v", err)
		}
		if seq != 0 {
			t.Errorf("expected sequence to start at 0, got %d", seq)
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		db := memoryDB(t)
		for range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}
		}

		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
			t.Fatalf("failed to count migrations: %v", err)
		}
		migrations, _ := loadMigrations()
		if applied != len(migrations) {
			t.Errorf("expected %d applied migrations, got %d", len(migrations), applied)
		}
	})

	t.Run("rollback drops the latest schema", func(t *testing.T) {
		db := memoryDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		migrations, _ := loadMigrations()
		for range migrations {
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("failed to roll back: %v", err)
			}
		}

		if tableExists(t, db, "scans") || tableExists(t, db, "tracks") {
			t.Error("expected domain tables to be dropped")
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected an error with nothing left to roll back")
		}
	})
}

func TestRemoveComments(t *testing.T) {
	got := removeComments("-- header\nCREATE TABLE x (id INTEGER); -- trailing\n  -- indented\nSELECT 1")
	if strings.Contains(got, "header") || strings.Contains(got, "trailing") || strings.Contains(got, "indented") {
		t.Errorf("comment lines survived: %q", got)
	}
	if !strings.Contains(got, "CREATE TABLE x") || !strings.Contains(got, "SELECT 1") {
		t.Errorf("statements lost: %q", got)
	}
}
