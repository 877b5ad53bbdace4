// Package index provides the Bleve implementation of Index.
package index

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index  bleve.Index
	schema *schema.Schema
}

// NewBleveIndex creates or opens a Bleve index at path, with one text field
// per indexed schema attribute. If the path already exists the existing index
// is opened and reused; remove the index directory to force a full re-index
// after a schema change.
func NewBleveIndex(path string, sc *schema.Schema) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index, schema: sc}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer (lowercase + tokenize, no stemming) keeps term
	// locations aligned with the source text words
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.IncludeTermVectors = true
	for _, name := range sc.IndexedAttributes() {
		docMapping.AddFieldMappingsAt(name, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, schema: sc}, nil
}

// NewMemBleveIndex creates an in-memory index, used in tests.
func NewMemBleveIndex(sc *schema.Schema) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.IncludeTermVectors = true
	for _, name := range sc.IndexedAttributes() {
		docMapping.AddFieldMappingsAt(name, textFieldMapping)
	}
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
	}
	return &BleveIndex{index: index, schema: sc}, nil
}

// indexable returns the searchable view of doc: its indexed attributes only.
func (b *BleveIndex) indexable(doc *models.Document) map[string]string {
	fields := make(map[string]string)
	for _, name := range b.schema.IndexedAttributes() {
		if value, ok := doc.Get(name); ok {
			fields[name] = value
		}
	}
	return fields
}

// IndexDocument indexes one document.
func (b *BleveIndex) IndexDocument(ctx context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, b.indexable(doc))
}

// IndexBatch indexes docs in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, docs []*models.Document) error {
	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, b.indexable(doc)); err != nil {
			return fmt.Errorf("failed to batch %s: %w", doc.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search runs a per-attribute match query and converts each hit's term
// locations into char-offset highlights. One match query per indexed
// attribute keeps the reported locations keyed by the real field name.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	fields := b.schema.IndexedAttributes()
	queries := make([]blevequery.Query, 0, len(fields))
	for _, name := range fields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(name)
		queries = append(queries, mq)
	}
	q := bleve.NewDisjunctionQuery(queries...)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}
	req.IncludeLocations = true

	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*models.SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		result := &models.SearchResult{ID: hit.ID, Score: hit.Score}
		for field, terms := range hit.Locations {
			attr, ok := b.schema.Attribute(field)
			if !ok {
				continue
			}
			text, _ := hit.Fields[field].(string)
			for _, locations := range terms {
				for _, loc := range locations {
					charIndex, charLength := byteToCharRange(text, int(loc.Start), int(loc.End))
					result.Highlights = append(result.Highlights, models.Highlight{
						Attribute:  uint16(attr),
						CharIndex:  charIndex,
						CharLength: charLength,
					})
				}
			}
		}
		out = append(out, result)
	}
	return out, nil
}

// byteToCharRange converts a [byteStart, byteEnd) range of text into a
// (charIndex, charLength) pair, the inverse of the display-side char-to-byte
// mapping. Offsets past the end of text are clamped.
func byteToCharRange(text string, byteStart, byteEnd int) (uint32, uint32) {
	if byteStart > len(text) {
		byteStart = len(text)
	}
	if byteEnd > len(text) {
		byteEnd = len(text)
	}
	if byteEnd < byteStart {
		byteEnd = byteStart
	}
	charIndex := utf8.RuneCountInString(text[:byteStart])
	charLength := utf8.RuneCountInString(text[byteStart:byteEnd])
	return uint32(charIndex), uint32(charLength)
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
