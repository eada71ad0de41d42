package sqlite

import "database/sql"

// schema contains the SQL statements to set up the local database.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_deletes (
    entity_type TEXT NOT NULL CHECK (entity_type IN ('group','expense')),
    entity_id TEXT NOT NULL,
    enqueued_at TEXT NOT NULL,
    PRIMARY KEY (entity_type, entity_id)
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
