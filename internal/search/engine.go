// Package search glues the index, store, and highlight core together: it
// resolves hits into documents and prepares each displayed attribute for
// rendering (cropped text, remapped highlights, boundary areas).
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmachatschek/meilisearch/internal/highlight"
	"github.com/mmachatschek/meilisearch/internal/index"
	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
	"github.com/mmachatschek/meilisearch/internal/store"
)

// Options holds per-query settings.
type Options struct {
	// Limit is the number of returned results.
	Limit int `json:"limit"`
	// CharContext is the number of chars kept before and after the first
	// match when cropping each displayed attribute.
	CharContext int `json:"char_context"`
	// Filter restricts results to documents whose named boolean attribute is
	// "true"; a leading "!" inverts the condition. Empty means no filter.
	Filter string `json:"filter"`
	// DisplayedFields restricts which attributes appear in the result views.
	// Empty means all attributes the schema marks as displayed.
	DisplayedFields []string `json:"displayed_fields"`
}

// AttributeView is one displayed attribute of a hit, ready for rendering:
// Text is cropped around the first match, Highlights are remapped into Text's
// char coordinates, and Areas is the byte boundary list over Text.
type AttributeView struct {
	Name       string             `json:"name"`
	Text       string             `json:"text"`
	Highlights []models.Highlight `json:"highlights"`
	Areas      []int              `json:"areas"`
}

// DocumentView is one search hit resolved into its displayable attributes.
type DocumentView struct {
	ID         string          `json:"id"`
	Score      float64         `json:"score"`
	Attributes []AttributeView `json:"attributes"`
	// MatchingIn lists the distinct attribute names with at least one match,
	// in schema order.
	MatchingIn []string `json:"matching_in"`
}

// Response is the result of one query.
type Response struct {
	Results []*DocumentView `json:"results"`
	Total   int             `json:"total"`
	// QueryTime is the total query duration in milliseconds.
	QueryTime int64 `json:"query_time_ms"`
	// RetrieveTime is the portion spent fetching documents, in milliseconds.
	RetrieveTime int64  `json:"retrieve_time_ms"`
	Query        string `json:"query"`
}

// filterOverFetch is how many times the result limit a filtered query
// requests from the index before post-filtering.
const filterOverFetch = 10

// Engine runs queries against the index and prepares results for display.
type Engine struct {
	store  store.Store
	index  index.Index
	schema *schema.Schema
	logger *zap.Logger // optional
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for diagnostics (hits whose document is missing, etc.).
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(st store.Store, idx index.Index, sc *schema.Schema, opts ...EngineOption) *Engine {
	e := &Engine{store: st, index: idx, schema: sc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs one query. Hits whose document cannot be retrieved are skipped;
// hits excluded by the filter are not counted.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	startTotal := time.Now()
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	filterAttr, filterPositive := parseFilter(opts.Filter)

	// The index cannot evaluate the attribute filter, so filtered queries
	// fetch a deeper window and truncate to the limit after filtering;
	// otherwise top-ranked filtered-out hits would eat into the limit.
	fetchLimit := opts.Limit
	if filterAttr != "" {
		fetchLimit = opts.Limit * filterOverFetch
	}

	hits, err := e.index.Search(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}

	var retrieve time.Duration
	results := make([]*DocumentView, 0, len(hits))
	for _, hit := range hits {
		models.SortHighlights(hit.Highlights)

		startRetrieve := time.Now()
		doc, err := e.store.GetDocument(ctx, hit.ID)
		retrieve += time.Since(startRetrieve)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("missing document", zap.String("id", hit.ID), zap.Error(err))
			}
			continue
		}

		if filterAttr != "" {
			value, _ := doc.Get(filterAttr)
			if (value == "true") != filterPositive {
				continue
			}
		}

		view := &DocumentView{ID: hit.ID, Score: hit.Score}
		for _, field := range doc.Fields {
			if !e.displayed(field.Name, opts.DisplayedFields) {
				continue
			}
			attr, ok := e.schema.Attribute(field.Name)
			if !ok {
				continue
			}
			matches := models.FilterByAttribute(hit.Highlights, uint16(attr))
			cropped, remapped := highlight.Crop(field.Value, matches, opts.CharContext)
			areas := highlight.BuildAreas(cropped, remapped)
			view.Attributes = append(view.Attributes, AttributeView{
				Name:       field.Name,
				Text:       cropped,
				Highlights: remapped,
				Areas:      areas,
			})
		}
		view.MatchingIn = e.matchingAttributes(hit.Highlights)
		results = append(results, view)
		if len(results) == opts.Limit {
			break
		}
	}

	return &Response{
		Results:      results,
		Total:        len(results),
		QueryTime:    time.Since(startTotal).Milliseconds(),
		RetrieveTime: retrieve.Milliseconds(),
		Query:        query,
	}, nil
}

// displayed reports whether the named attribute should appear, honoring the
// per-query restriction first and the schema flags otherwise.
func (e *Engine) displayed(name string, restriction []string) bool {
	if len(restriction) > 0 {
		for _, f := range restriction {
			if f == name {
				return true
			}
		}
		return false
	}
	attr, ok := e.schema.Attribute(name)
	if !ok {
		return false
	}
	return e.schema.Attributes[attr].Displayed
}

// matchingAttributes returns the distinct attribute names the highlights
// touch, in schema order.
func (e *Engine) matchingAttributes(highlights []models.Highlight) []string {
	seen := make(map[uint16]struct{})
	for _, h := range highlights {
		seen[h.Attribute] = struct{}{}
	}
	var names []string
	for i := range e.schema.Attributes {
		if _, ok := seen[uint16(i)]; ok {
			names = append(names, e.schema.Attributes[i].Name)
		}
	}
	return names
}

// parseFilter splits a filter string into its attribute name and polarity:
// "adult" keeps documents where adult is "true", "!adult" the opposite.
func parseFilter(filter string) (string, bool) {
	if filter == "" {
		return "", true
	}
	if strings.HasPrefix(filter, "!") {
		return filter[1:], false
	}
	return filter, true
}
