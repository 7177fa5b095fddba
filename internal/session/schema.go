// internal/session/schema.go

package session

import "database/sql"

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS playback_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			status TEXT NOT NULL,
			position_ms INTEGER NOT NULL,
			saved_at INTEGER NOT NULL
		)
	`)
	return err
}
