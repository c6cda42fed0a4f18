package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists documents to SQLite as BSON blobs.
// It is suitable for single-process deployments and local development.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) a SQLite document store.
// The path should be a file path (e.g., "./taskmentor.db") or ":memory:" for testing.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A second connection would see a different ":memory:" database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			data BLOB NOT NULL,
			UNIQUE (collection, doc_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

type sqliteRow struct {
	seq int64
	doc bson.Raw
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadCollection(ctx context.Context, q querier, coll string) ([]sqliteRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT seq, data FROM documents
		WHERE collection = ?
		ORDER BY seq
	`, coll)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll, err)
	}
	defer rows.Close()

	var out []sqliteRow
	for rows.Next() {
		var r sqliteRow
		var data []byte
		if err := rows.Scan(&r.seq, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", coll, err)
		}
		r.doc = data
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll, err)
	}
	return out, nil
}

func docsOf(rows []sqliteRow) []bson.Raw {
	docs := make([]bson.Raw, len(rows))
	for i, r := range rows {
		docs[i] = r.doc
	}
	return docs
}

// FindOne implements Store.
func (s *SQLiteStore) FindOne(ctx context.Context, coll string, filter Filter, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	rows, err := loadCollection(ctx, s.db, coll)
	if err != nil {
		return err
	}
	docs, err := selectDocs(docsOf(rows), filter, FindOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	return bson.Unmarshal(docs[0], out)
}

// Find implements Store.
func (s *SQLiteStore) Find(ctx context.Context, coll string, filter Filter, opts FindOptions, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	rows, err := loadCollection(ctx, s.db, coll)
	if err != nil {
		return err
	}
	docs, err := selectDocs(docsOf(rows), filter, opts)
	if err != nil {
		return err
	}
	return decodeAll(docs, out)
}

// InsertOne implements Store.
func (s *SQLiteStore) InsertOne(ctx context.Context, coll string, doc any) (ID, error) {
	raw, id, err := prepareInsert(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	if err := insertRow(ctx, s.db, coll, id, raw); err != nil {
		return "", err
	}
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, e execer, coll string, id ID, raw bson.Raw) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, data)
		VALUES (?, ?, ?)
	`, coll, string(id), []byte(raw))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	return nil
}

// UpdateOne implements Store. The read-modify-write runs in one transaction.
func (s *SQLiteStore) UpdateOne(ctx context.Context, coll string, filter Filter, update Update, opts UpdateOptions) (res UpdateResult, err error) {
	if update.empty() {
		return UpdateResult{}, ErrEmptyUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return UpdateResult{}, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := loadCollection(ctx, tx, coll)
	if err != nil {
		return UpdateResult{}, err
	}

	res, err = updateRows(ctx, tx, coll, rows, filter, update, opts)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpdateResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func updateRows(ctx context.Context, tx *sql.Tx, coll string, rows []sqliteRow, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error) {
	for _, r := range rows {
		ok, err := matches(r.doc, filter)
		if err != nil {
			return UpdateResult{}, err
		}
		if !ok {
			continue
		}
		updated, changed, err := applySet(r.doc, update)
		if err != nil {
			return UpdateResult{}, err
		}
		if !changed {
			return UpdateResult{Matched: 1}, nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET data = ? WHERE seq = ?`, []byte(updated), r.seq); err != nil {
			return UpdateResult{}, fmt.Errorf("update %s: %w", coll, err)
		}
		return UpdateResult{Matched: 1, Modified: 1}, nil
	}

	if !opts.Upsert {
		return UpdateResult{}, nil
	}
	raw, id, err := upsertDocument(filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := insertRow(ctx, tx, coll, id, raw); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{UpsertedID: id}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
