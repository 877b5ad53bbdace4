// Package store provides the SQLite implementation of the Store interface.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
)

const schemaMetaKey = "schema"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the tables. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initTables(db *sql.DB) error {
	tables := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		fields TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(tables)
	return err
}

// UpsertDocument inserts or replaces a document.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *models.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	doc.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, fields, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		doc.ID, string(fieldsJSON), doc.UpdatedAt,
	)
	return err
}

// UpsertDocuments writes docs in a single transaction.
func (s *SQLiteStore) UpsertDocuments(ctx context.Context, docs []*models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, fields, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		fieldsJSON, err := json.Marshal(doc.Fields)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to marshal fields of %s: %w", doc.ID, err)
		}
		doc.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, doc.ID, string(fieldsJSON), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var fieldsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, fields, updated_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &fieldsJSON, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document by id.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Schema returns the stored schema, or schema.ErrSchemaMissing.
func (s *SQLiteStore) Schema(ctx context.Context) (*schema.Schema, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, schemaMetaKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, schema.ErrSchemaMissing
	}
	if err != nil {
		return nil, err
	}
	return schema.Parse([]byte(value))
}

// SetSchema stores the schema the database is created with.
func (s *SQLiteStore) SetSchema(ctx context.Context, sc *schema.Schema) error {
	data, err := sc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		schemaMetaKey, string(data),
	)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
