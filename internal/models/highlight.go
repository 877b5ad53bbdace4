// Package models defines core data structures for documents, highlights, and search results.
package models

import "sort"

// Highlight is a single match reported by the search index: it starts at
// character offset CharIndex within the full text of the attribute and spans
// CharLength characters. Offsets count Unicode code points, not bytes.
type Highlight struct {
	Attribute  uint16 `json:"attribute"`
	CharIndex  uint32 `json:"char_index"`
	CharLength uint32 `json:"char_length"`
}

// SortHighlights sorts highlights in place by (CharIndex, CharLength)
// ascending. Crop and BuildAreas require this ordering.
func SortHighlights(highlights []Highlight) {
	sort.Slice(highlights, func(i, j int) bool {
		if highlights[i].CharIndex != highlights[j].CharIndex {
			return highlights[i].CharIndex < highlights[j].CharIndex
		}
		return highlights[i].CharLength < highlights[j].CharLength
	})
}

// FilterByAttribute returns the highlights belonging to attr, preserving order.
func FilterByAttribute(highlights []Highlight, attr uint16) []Highlight {
	out := make([]Highlight, 0, len(highlights))
	for _, h := range highlights {
		if h.Attribute == attr {
			out = append(out, h)
		}
	}
	return out
}
