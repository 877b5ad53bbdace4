// Package index provides full-text indexing and search over schema
// attributes, reporting matches as char-offset highlights.
package index

import (
	"context"

	"github.com/mmachatschek/meilisearch/internal/models"
)

// Index defines full-text search operations.
type Index interface {
	IndexDocument(ctx context.Context, doc *models.Document) error
	// IndexBatch indexes a group of documents in one index batch.
	IndexBatch(ctx context.Context, docs []*models.Document) error
	Delete(ctx context.Context, id string) error
	// Search returns up to limit hits for query. Each hit carries the match
	// highlights in character offsets relative to the full attribute text,
	// unsorted; callers sort before cropping or area building.
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
	DocCount() (uint64, error)
	Close() error
}
