// Package history persists processing records. Records are immutable
// once written; the only mutation is deletion.
package history

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/intelliscan/dbopen"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("history: record not found")

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	result_json TEXT NOT NULL,
	entities_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
`

// Record is one completed processing run.
type Record struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Timestamp string          `json:"timestamp"` // RFC 3339
	Result    json.RawMessage `json:"result"`
	Entities  json.RawMessage `json:"entities"`
}

// Store is a sqlite-backed record store. Safe for concurrent use; the
// database serializes writers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a new record and returns its generated id. The result and
// entities values are marshaled once here and stored verbatim.
func (s *Store) Save(ctx context.Context, filename string, result, entities any) (string, error) {
	resultJSON, err := marshalNoEscape(result)
	if err != nil {
		return "", fmt.Errorf("history: marshal result: %w", err)
	}
	entitiesJSON, err := marshalNoEscape(entities)
	if err != nil {
		return "", fmt.Errorf("history: marshal entities: %w", err)
	}

	id := uuid.NewString()
	now := s.now()
	_, err = dbopen.Exec(ctx, s.db,
		`INSERT INTO history (id, filename, timestamp, result_json, entities_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, filename, now.Format(time.RFC3339), string(resultJSON), string(entitiesJSON), now.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("history: insert: %w", err)
	}
	return id, nil
}

// All returns every record, newest first. An empty store yields an
// empty non-nil slice.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, timestamp, result_json, entities_json
		 FROM history ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		var resultJSON, entitiesJSON string
		if err := rows.Scan(&r.ID, &r.Filename, &r.Timestamp, &resultJSON, &entitiesJSON); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Result = json.RawMessage(resultJSON)
		r.Entities = json.RawMessage(entitiesJSON)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var r Record
	var resultJSON, entitiesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, timestamp, result_json, entities_json
		 FROM history WHERE id = ?`, id).
		Scan(&r.ID, &r.Filename, &r.Timestamp, &resultJSON, &entitiesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get %s: %w", id, err)
	}
	r.Result = json.RawMessage(resultJSON)
	r.Entities = json.RawMessage(entitiesJSON)
	return &r, nil
}

// Delete removes the record with the given id. It reports whether a
// record was actually deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("history: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("history: delete %s: %w", id, err)
	}
	return n > 0, nil
}

// ExportJSON renders the record as an indented JSON document suitable
// for download. HTML escaping is off so text content round-trips
// byte-for-byte.
func (s *Store) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("history: export %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// marshalNoEscape marshals without HTML escaping so stored text keeps
// characters like < and & literal.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
