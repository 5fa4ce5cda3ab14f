package db

import (
	"path/filepath"
	"testing"
)

func TestInitDB_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "informant.db")
	db, err := InitDB(path)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, table := range []string{"pv_readings", "worker_activity", "workers", "users"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// schema statements are idempotent
	if err := ensureSchema(db); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
}
