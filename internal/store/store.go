// Package store defines the persistence interface for documents and the
// database schema.
package store

import (
	"context"
	"errors"

	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
)

// ErrDocumentNotFound is returned when a document id does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Store defines document and schema persistence operations.
type Store interface {
	UpsertDocument(ctx context.Context, doc *models.Document) error
	// UpsertDocuments writes a batch of documents in one transaction.
	UpsertDocuments(ctx context.Context, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int64, error)

	// Schema returns the schema the database was created with, or
	// schema.ErrSchemaMissing when none has been stored yet.
	Schema(ctx context.Context) (*schema.Schema, error)
	SetSchema(ctx context.Context, s *schema.Schema) error

	Close() error
}
