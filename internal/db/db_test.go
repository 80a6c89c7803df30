package db

import (
	"path/filepath"
	"testing"
)

func TestRunMigrations(t *testing.T) {
	conn := filepath.Join(t.TempDir(), "nested", "test.db")

	database, err := Init(DriverSQLite, conn)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close(database)

	err = RunMigrations(database.DB, DriverSQLite)
	if err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	version, err := Version(database.DB, DriverSQLite)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 2 {
		t.Errorf("Version() = %d, want 2", version)
	}

	_, err = database.Exec(`INSERT INTO documents (collection, doc_key, body, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`, "racers", "a", `{}`)
	if err != nil {
		t.Fatalf("insert into documents: %v", err)
	}

	err = MigrateDown(database.DB, DriverSQLite)
	if err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	version, err = Version(database.DB, DriverSQLite)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 1 {
		t.Errorf("Version() after down = %d, want 1", version)
	}
}
