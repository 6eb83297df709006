package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/praxislabs/vetta/internal/db"
)

// openDB opens the run store under the working directory's .vetta dir,
// creating it if needed. Returns the handle, the data dir, and a close func.
func openDB() (*sql.DB, string, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", func() {}, err
	}
	dataDir := filepath.Join(cwd, ".vetta")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	conn, err := db.Open(filepath.Join(dataDir, "vetta.db"))
	if err != nil {
		return nil, "", func() {}, err
	}
	return conn, dataDir, func() { _ = conn.Close() }, nil
}
