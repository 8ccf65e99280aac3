package dbopen

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory_PragmasApplied(t *testing.T) {
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 10_000 {
		t.Errorf("busy_timeout: got %d, want 10000", timeout)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`))

	if _, err := db.Exec(`INSERT INTO notes (id, body) VALUES ('a', 'hello')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var body string
	if err := db.QueryRow(`SELECT body FROM notes WHERE id = 'a'`).Scan(&body); err != nil {
		t.Fatalf("select: %v", err)
	}
	if body != "hello" {
		t.Errorf("body: got %q, want %q", body, "hello")
	}
}

func TestOpen_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "devlens.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
}
