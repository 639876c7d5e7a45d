// Package sqlite keeps a local SQLite copy of every session run on this
// machine, one row per logged event.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	participant TEXT NOT NULL,
	csv_path    TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_events (
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	sectionname TEXT NOT NULL,
	onset       REAL NOT NULL,
	task_clock  REAL NOT NULL,
	unix_epoch  REAL NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Mirror appends rows of one session to the local database.
type Mirror struct {
	db        *sql.DB
	sessionID string

	mu  sync.Mutex
	seq int
}

// Open creates the database at path if needed and registers the session.
// ":memory:" is accepted for tests.
func Open(path, sessionID, participant, csvPath string) (*Mirror, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec("INSERT INTO sessions (id, participant, csv_path, started_at) VALUES (?, ?, ?, ?)",
		sessionID, participant, csvPath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	return &Mirror{db: db, sessionID: sessionID}, nil
}

// ReadSession opens the database at path and returns the rows of sessionID.
func ReadSession(path, sessionID string) ([]eventlog.Row, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	m := &Mirror{db: db}
	defer m.Close()
	return m.Rows(sessionID)
}

func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Name identifies the mirror in error reports.
func (m *Mirror) Name() string {
	return "sqlite"
}

// AppendRow stores row under the next sequence number.
func (m *Mirror) AppendRow(row eventlog.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.Exec(`INSERT INTO session_events (session_id, seq, kind, sectionname, onset, task_clock, unix_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.sessionID, m.seq, string(row.Kind), row.Label, row.Onset, row.TaskClock, row.Epoch)
	if err != nil {
		return err
	}
	m.seq++
	return nil
}

// Rows returns the stored rows of sessionID in order.
func (m *Mirror) Rows(sessionID string) ([]eventlog.Row, error) {
	rows, err := m.db.Query(`SELECT kind, sectionname, onset, task_clock, unix_epoch
		FROM session_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eventlog.Row
	for rows.Next() {
		var r eventlog.Row
		var kind string
		if err := rows.Scan(&kind, &r.Label, &r.Onset, &r.TaskClock, &r.Epoch); err != nil {
			return nil, err
		}
		r.Kind = eventlog.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (m *Mirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
