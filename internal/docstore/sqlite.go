package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/soundpost/internal/shared"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps documents as JSON in the documents table created by [shared.RunMigrations].
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore creates a store over an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// SetClock replaces the clock used for server timestamps.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Add inserts a document under a generated id.
func (s *SQLiteStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := shared.GenerateID()
	if err := s.write(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return s.write(ctx, collection, id, data, true)
}

func (s *SQLiteStore) write(ctx context.Context, collection, id string, data map[string]any, replace bool) error {
	now := s.now()
	payload, err := json.Marshal(resolveTimestamps(data, now))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if replace {
		query += ` ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(payload), now.UTC(), now.UTC()); err != nil {
		return fmt.Errorf("failed to insert document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get returns the document or nil when it does not exist.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, data FROM documents WHERE collection = ? AND id = ?`, collection, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Query scans a collection with equality filters on JSON fields.
func (s *SQLiteStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	var b strings.Builder
	args := []any{collection}

	b.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	for _, w := range q.Where {
		if !fieldPattern.MatchString(w.Field) {
			return nil, fmt.Errorf("%w: invalid field name %q", shared.ErrInvalidArgument, w.Field)
		}
		b.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, "$."+w.Field, w.Value)
	}

	if q.OrderBy != "" {
		if !fieldPattern.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("%w: invalid field name %q", shared.ErrInvalidArgument, q.OrderBy)
		}
		b.WriteString(` ORDER BY json_extract(data, ?)`)
		if q.Desc {
			b.WriteString(` DESC`)
		}
		b.WriteString(`, rowid`)
		if q.Desc {
			b.WriteString(` DESC`)
		}
		args = append(args, "$."+q.OrderBy)
	}

	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// Update reads, modifies and writes the document inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, updates ...FieldUpdate) error {
	for _, u := range updates {
		if !fieldPattern.MatchString(u.Field) {
			return fmt.Errorf("%w: invalid field name %q", shared.ErrInvalidArgument, u.Field)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := scanDocument(tx.QueryRowContext(ctx, `SELECT id, data FROM documents WHERE collection = ? AND id = ?`, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", shared.ErrNotFound, collection, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s/%s: %w", collection, id, err)
	}

	now := s.now()
	if err := applyUpdates(doc.Data, now, updates); err != nil {
		return err
	}

	payload, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(payload), now.UTC(), collection, id,
	); err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		id      string
		payload string
	)
	if err := row.Scan(&id, &payload); err != nil {
		return nil, err
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &Document{ID: id, Data: data}, nil
}
