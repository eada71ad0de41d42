// Package sqlite provides a SQLite-backed implementation of the storage
// interfaces. Group data, identity, and the last-sync marker live as JSON
// values in a key-value table; pending deletes get their own table so the
// primary key enforces enqueue idempotency.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/nvats/spliteasy/internal/models"
	"github.com/nvats/spliteasy/internal/storage"
)

// Ensure Store implements the storage interfaces
var (
	_ storage.Cache       = (*Store)(nil)
	_ storage.DeleteQueue = (*Store)(nil)
)

const (
	keyGroups       = "groups"
	keyCurrentUser  = "current_user"
	keyLastSyncTime = "last_sync_time"
)

// Store implements storage.Cache and storage.DeleteQueue on one SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Store at the given database path, creating parent
// directories and running migrations. A nil logger falls back to
// slog.Default.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all cached groups. Missing or corrupted data reads as empty.
func (s *Store) Load() []models.Group {
	raw, ok := s.getValue(keyGroups)
	if !ok {
		return []models.Group{}
	}
	var groups []models.Group
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		s.logger.Error("cached groups are corrupted, treating as empty", "error", err)
		return []models.Group{}
	}
	return groups
}

// Save persists the group collection after re-deriving cached aggregates.
// A failed write is logged and swallowed; the previously persisted state
// stays intact.
func (s *Store) Save(groups []models.Group) {
	for i := range groups {
		groups[i].Recompute()
	}
	data, err := json.Marshal(groups)
	if err != nil {
		s.logger.Error("failed to encode groups", "error", err)
		return
	}
	s.setValue(keyGroups, string(data))
}

// CurrentUser returns the persisted identity, or nil.
func (s *Store) CurrentUser() *models.User {
	raw, ok := s.getValue(keyCurrentUser)
	if !ok {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Error("cached user is corrupted, treating as signed out", "error", err)
		return nil
	}
	if u.ID == "" {
		return nil
	}
	return &u
}

// SetCurrentUser persists the identity. Passing nil signs out.
func (s *Store) SetCurrentUser(u *models.User) {
	if u == nil {
		s.deleteValue(keyCurrentUser)
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("failed to encode user", "error", err)
		return
	}
	s.setValue(keyCurrentUser, string(data))
}

// LastSyncTime returns the recorded completion time of the last full push.
func (s *Store) LastSyncTime() time.Time {
	raw, ok := s.getValue(keyLastSyncTime)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetLastSyncTime records a completed full push.
func (s *Store) SetLastSyncTime(t time.Time) {
	s.setValue(keyLastSyncTime, t.UTC().Format(time.RFC3339))
}

// Enqueue records a pending delete. The primary key on (entity_type,
// entity_id) makes duplicate enqueues a no-op.
func (s *Store) Enqueue(entityType models.EntityType, id string) {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO pending_deletes (entity_type, entity_id, enqueued_at) VALUES (?, ?, ?)",
		string(entityType), id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Error("failed to enqueue pending delete",
			"entity_type", entityType, "entity_id", id, "error", err)
	}
}

// Dequeue removes a pending delete once the remote delete succeeded.
func (s *Store) Dequeue(entityType models.EntityType, id string) {
	_, err := s.db.Exec(
		"DELETE FROM pending_deletes WHERE entity_type = ? AND entity_id = ?",
		string(entityType), id,
	)
	if err != nil {
		s.logger.Error("failed to dequeue pending delete",
			"entity_type", entityType, "entity_id", id, "error", err)
	}
}

// Drain returns all pending deletes, oldest first.
func (s *Store) Drain() []models.PendingDelete {
	rows, err := s.db.Query(
		"SELECT entity_type, entity_id, enqueued_at FROM pending_deletes ORDER BY enqueued_at, entity_id",
	)
	if err != nil {
		s.logger.Error("failed to read pending deletes", "error", err)
		return nil
	}
	defer rows.Close()

	var pending []models.PendingDelete
	for rows.Next() {
		var entityType, id, enqueuedAt string
		if err := rows.Scan(&entityType, &id, &enqueuedAt); err != nil {
			s.logger.Error("failed to scan pending delete", "error", err)
			return pending
		}
		t, _ := time.Parse(time.RFC3339, enqueuedAt)
		pending = append(pending, models.PendingDelete{
			EntityType: models.EntityType(entityType),
			EntityID:   id,
			EnqueuedAt: t,
		})
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("failed to iterate pending deletes", "error", err)
	}
	return pending
}

func (s *Store) getValue(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Error("failed to read local state", "key", key, "error", err)
		return "", false
	}
	return value, true
}

func (s *Store) setValue(key, value string) {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		s.logger.Error("failed to write local state", "key", key, "error", err)
	}
}

func (s *Store) deleteValue(key string) {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		s.logger.Error("failed to clear local state", "key", key, "error", err)
	}
}
