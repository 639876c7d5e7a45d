// Package postgres mirrors session rows into a shared Postgres table so
// sessions from several lab machines can be queried in one place.
package postgres

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/DynamicSeg/internal/config"
	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
)

// connectTimeoutSeconds bounds each connection attempt.
const connectTimeoutSeconds = 5

// SessionRow is one stored event row.
type SessionRow struct {
	SessionID   string
	Participant string
	Seq         int
	Row         eventlog.Row
	RecordedAt  time.Time
}

// Client writes rows for one session.
type Client struct {
	db          *sql.DB
	sessionID   string
	participant string

	mu  sync.Mutex
	seq int
}

// ConnString builds a lib/pq connection string from the standard PG*
// environment variables. PGPASSWORD may be supplied via PGPASSWORD_FILE.
func ConnString() (string, error) {
	host := config.Getenv("PGHOST", "127.0.0.1")
	port := config.Getenv("PGPORT", "5432")
	user := config.Getenv("PGUSER", "dynamicseg")
	dbname := config.Getenv("PGDATABASE", "dynamicseg")
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return "", err
	}

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=%d",
			host, port, user, password, dbname, connectTimeoutSeconds), nil
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable connect_timeout=%d",
		host, port, user, dbname, connectTimeoutSeconds), nil
}

// Connect opens the database and makes sure the table exists. The
// returned client can query but tags appended rows with an empty session.
func Connect() (*Client, error) {
	connStr, err := ConnString()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	c := &Client{db: db}
	if err := c.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session_events table: %w", err)
	}
	return c, nil
}

// Open connects and binds the client to one session. sessionID and
// participant tag every row appended through the client.
func Open(sessionID, participant string) (*Client, error) {
	c, err := Connect()
	if err != nil {
		return nil, err
	}
	c.sessionID = sessionID
	c.participant = participant
	return c, nil
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS session_events (
			session_id  TEXT NOT NULL,
			participant TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			sectionname TEXT NOT NULL,
			onset       DOUBLE PRECISION NOT NULL,
			task_clock  DOUBLE PRECISION NOT NULL,
			unix_epoch  DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_session_events_participant ON session_events(participant);
	`
	_, err := c.db.Exec(query)
	return err
}

// Name identifies the mirror in error reports.
func (c *Client) Name() string {
	return "postgres"
}

// AppendRow inserts row with the next sequence number.
func (c *Client) AppendRow(row eventlog.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `
		INSERT INTO session_events (session_id, participant, seq, kind, sectionname, onset, task_clock, unix_epoch)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := c.db.Exec(query, c.sessionID, c.participant, c.seq, string(row.Kind), row.Label, row.Onset, row.TaskClock, row.Epoch); err != nil {
		return err
	}
	c.seq++
	return nil
}

// Query returns every row of sessionID in sequence order.
func (c *Client) Query(sessionID string) ([]SessionRow, error) {
	query := `
		SELECT session_id, participant, seq, kind, sectionname, onset, task_clock, unix_epoch, recorded_at
		FROM session_events
		WHERE session_id = $1
		ORDER BY seq ASC
	`
	rows, err := c.db.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var kind string
		if err := rows.Scan(&r.SessionID, &r.Participant, &r.Seq, &kind, &r.Row.Label,
			&r.Row.Onset, &r.Row.TaskClock, &r.Row.Epoch, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Row.Kind = eventlog.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
