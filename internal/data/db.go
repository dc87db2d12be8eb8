package data

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// InitDB opens the local SQLite store at the given path and creates
// the schema. Each repository call runs as its own short transaction;
// SQLite's isolation serializes concurrent admin edits.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		engine TEXT NOT NULL,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		db_service TEXT NOT NULL,
		username TEXT NOT NULL,
		password_enc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sql_text TEXT NOT NULL,
		parameters TEXT,
		roles TEXT NOT NULL,
		connection_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS execution_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor TEXT NOT NULL,
		template_id INTEGER,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}
