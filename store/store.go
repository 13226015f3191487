// Package store keeps uploaded traces in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
)

// ErrNotFound is returned when no trace has the requested id.
var ErrNotFound = errors.New("trace not found")

// Meta describes a stored trace without its body.
type Meta struct {
	ReceivedAt  time.Time `json:"received_at"`
	ID          string    `json:"id"`
	Route       string    `json:"route"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
}

// Record is a stored trace.
type Record struct {
	Meta
	Data []byte `json:"-"`
}

// Store is a SQLite-backed trace store.
// Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	id           TEXT PRIMARY KEY,
	route        TEXT NOT NULL,
	content_type TEXT NOT NULL,
	received_at  INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	data         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS traces_received_at ON traces (received_at);
`

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Annotatef(err, "opening trace store %q", path)
	}
	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "creating trace table")
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return errors.Trace(s.db.Close())
}

// Put stores a trace and returns its id.
func (s *Store) Put(ctx context.Context, route, contentType string, data []byte) (string, error) {
	id := xid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO traces (id, route, content_type, received_at, size, data) VALUES (?, ?, ?, ?, ?, ?)`,
		id, route, contentType, s.now().UnixNano(), len(data), data)
	if err != nil {
		return "", errors.Annotate(err, "inserting trace")
	}
	return id, nil
}

// Get loads one trace by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, route, content_type, received_at, size, data FROM traces WHERE id = ?`, id)

	var (
		rec        Record
		receivedAt int64
	)
	err := row.Scan(&rec.ID, &rec.Route, &rec.ContentType, &receivedAt, &rec.Size, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Trace(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "loading trace %s", id)
	}
	rec.ReceivedAt = time.Unix(0, receivedAt)
	return &rec, nil
}

// List returns metadata of all traces, newest first.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, route, content_type, received_at, size FROM traces ORDER BY received_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Annotate(err, "listing traces")
	}
	defer rows.Close()

	metas := make([]Meta, 0)
	for rows.Next() {
		var (
			m          Meta
			receivedAt int64
		)
		if err := rows.Scan(&m.ID, &m.Route, &m.ContentType, &receivedAt, &m.Size); err != nil {
			return nil, errors.Annotate(err, "scanning trace row")
		}
		m.ReceivedAt = time.Unix(0, receivedAt)
		metas = append(metas, m)
	}
	return metas, errors.Annotate(rows.Err(), "listing traces")
}
