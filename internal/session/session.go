// internal/session/session.go

// Package session persists the last known playback status and position so a
// room can be reopened where it left off.
package session

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "lockstep"
	dbFileName   = "lockstep.db"
	saveDebounce = 500 * time.Millisecond
)

// Snapshot is one persisted playback state.
type Snapshot struct {
	Status   string
	Position time.Duration
	SavedAt  time.Time
}

// Store persists snapshots in a SQLite database.
type Store struct {
	db *sql.DB

	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *Snapshot
}

// Open opens the store at the default XDG data path.
func Open() (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath)
}

// OpenAt opens the store at an explicit path, creating parent directories.
func OpenAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close flushes any pending debounced snapshot and closes the database.
func (s *Store) Close() error {
	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	pending := s.pending
	s.pending = nil
	s.saveMu.Unlock()

	if pending != nil {
		_ = save(s.db, *pending)
	}

	return s.db.Close()
}

// Save writes a snapshot immediately.
func (s *Store) Save(snap Snapshot) error {
	return save(s.db, snap)
}

// SaveDebounced schedules a snapshot write, coalescing rapid updates such as
// per-tick position reports.
func (s *Store) SaveDebounced(snap Snapshot) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending = &snap

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}

	s.saveTimer = time.AfterFunc(saveDebounce, func() {
		s.saveMu.Lock()
		pending := s.pending
		s.pending = nil
		s.saveMu.Unlock()

		if pending != nil {
			_ = save(s.db, *pending)
		}
	})
}

// Last returns the most recent snapshot, or nil if none was saved yet.
func (s *Store) Last() (*Snapshot, error) {
	var st string
	var positionMs, savedAt int64

	err := s.db.QueryRow(`
		SELECT status, position_ms, saved_at FROM playback_session WHERE id = 1
	`).Scan(&st, &positionMs, &savedAt)

	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // nil snapshot means no session yet, not an error
	}
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Status:   st,
		Position: time.Duration(positionMs) * time.Millisecond,
		SavedAt:  time.Unix(savedAt, 0),
	}, nil
}

func save(db *sql.DB, snap Snapshot) error {
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO playback_session (id, status, position_ms, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			position_ms = excluded.position_ms,
			saved_at = excluded.saved_at
	`, snap.Status, snap.Position.Milliseconds(), savedAt.Unix())
	return err
}
