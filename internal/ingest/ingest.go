// Package ingest reads CSV records into the document store and search index,
// committing them in update groups.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmachatschek/meilisearch/internal/index"
	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
	"github.com/mmachatschek/meilisearch/internal/store"
)

// Ingester ingests CSV documents into a store and index pair.
type Ingester struct {
	store     store.Store
	index     index.Index
	schema    *schema.Schema
	groupSize int
	logger    *zap.Logger // optional; when set, logs progress
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingester) { ing.logger = l }
}

// WithGroupSize sets the number of documents committed per update group.
func WithGroupSize(n int) Option {
	return func(ing *Ingester) {
		if n > 0 {
			ing.groupSize = n
		}
	}
}

// NewIngester creates an ingester. The default update group size is 1000.
func NewIngester(st store.Store, idx index.Index, sc *schema.Schema, opts ...Option) *Ingester {
	ing := &Ingester{
		store:     st,
		index:     idx,
		schema:    sc,
		groupSize: 1000,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// CheckSchema compares the ingester's schema with the one the database was
// created with. A database without a schema adopts the ingester's; a database
// with a different schema rejects ingestion with schema.ErrSchemaDiffer.
func (ing *Ingester) CheckSchema(ctx context.Context) error {
	stored, err := ing.store.Schema(ctx)
	if errors.Is(err, schema.ErrSchemaMissing) {
		return ing.store.SetSchema(ctx, ing.schema)
	}
	if err != nil {
		return err
	}
	if !stored.Equal(ing.schema) {
		return schema.ErrSchemaDiffer
	}
	return nil
}

// IngestCSVFile ingests the CSV file at path. See IngestCSV.
func (ing *Ingester) IngestCSVFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return ing.IngestCSV(ctx, f)
}

// IngestCSV ingests CSV records from r. The first row holds the attribute
// names; each following row becomes one document, committed to the store and
// index in groups. Malformed records are logged and skipped. Records with an
// empty identifier get a generated one. Returns the number of documents
// ingested.
func (ing *Ingester) IngestCSV(ctx context.Context, r io.Reader) (int, error) {
	if err := ing.CheckSchema(ctx); err != nil {
		return 0, err
	}

	rdr := csv.NewReader(r)
	header, err := rdr.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	idColumn := -1
	for i, name := range header {
		if name == ing.schema.Identifier {
			idColumn = i
		}
	}

	var (
		batch    = make([]*models.Document, 0, ing.groupSize)
		total    = 0
		updateID = 0
	)
	for {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ing.logger != nil {
				ing.logger.Warn("skipping malformed record", zap.Error(err))
			}
			continue
		}

		doc := &models.Document{Fields: make([]models.Field, 0, len(header))}
		for i, name := range header {
			if i < len(record) {
				doc.Fields = append(doc.Fields, models.Field{Name: name, Value: record[i]})
			}
		}
		if idColumn >= 0 && idColumn < len(record) && record[idColumn] != "" {
			doc.ID = record[idColumn]
		} else {
			doc.ID = uuid.New().String()
			doc.Set(ing.schema.Identifier, doc.ID)
		}

		batch = append(batch, doc)
		total++

		if len(batch) == ing.groupSize {
			updateID++
			if err := ing.commit(ctx, batch, updateID); err != nil {
				return total - len(batch), err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		updateID++
		if err := ing.commit(ctx, batch, updateID); err != nil {
			return total - len(batch), err
		}
	}

	if ing.logger != nil {
		ing.logger.Info("ingestion finished",
			zap.Int("documents", total),
			zap.Int("updates", updateID),
		)
	}
	return total, nil
}

func (ing *Ingester) commit(ctx context.Context, batch []*models.Document, updateID int) error {
	if err := ing.store.UpsertDocuments(ctx, batch); err != nil {
		return fmt.Errorf("failed to store update %d: %w", updateID, err)
	}
	if err := ing.index.IndexBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to index update %d: %w", updateID, err)
	}
	if ing.logger != nil {
		ing.logger.Info("committed update",
			zap.Int("update_id", updateID),
			zap.Int("documents", len(batch)),
		)
	}
	return nil
}
