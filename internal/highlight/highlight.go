// Package highlight turns char-offset match highlights into byte-offset
// display areas: mapping char ranges to byte ranges, merging highlights into
// an ordered boundary list, and cropping long text around the first match.
package highlight

import (
	"sort"
	"unicode/utf8"

	"github.com/mmachatschek/meilisearch/internal/models"
)

// CharToByteRange converts a (charIndex, charLength) range of text, counted
// in Unicode code points, into a (byteOffset, byteLength) range. The scan
// stops as soon as the end of the range is reached. When the range runs past
// the end of text it returns (0, 0); callers that need to tell that apart
// from a match at offset 0 should use charToByteRangeOK.
func CharToByteRange(charIndex, charLength int, text string) (int, int) {
	off, length, ok := charToByteRangeOK(charIndex, charLength, text)
	if !ok {
		return 0, 0
	}
	return off, length
}

// charToByteRangeOK is CharToByteRange with an explicit ok result: ok is
// false when charIndex+charLength exceeds the char count of text.
func charToByteRangeOK(charIndex, charLength int, text string) (byteOffset, byteLength int, ok bool) {
	n := 0
	for i, r := range text {
		if n == charIndex {
			byteOffset = i
		}
		if n+1 == charIndex+charLength {
			byteLength = i - byteOffset + utf8.RuneLen(r)
			return byteOffset, byteLength, true
		}
		n++
	}
	return 0, 0, false
}

// BuildAreas builds the boundary list for text: an ordered sequence of byte
// offsets starting at 0 and ending at len(text), where consecutive boundaries
// delimit alternating plain/highlighted spans (the first span is plain).
// Highlights must be sorted by (CharIndex, CharLength).
//
// Highlights sharing a byte start collapse to the longest one. Highlights
// with different starts whose ranges interleave are emitted as separate
// boundary pairs and are not merged; the rendered alternation is then off by
// one span for the overlapping region. This matches the behavior search
// clients already depend on, so it is kept rather than replaced with a true
// interval merge.
func BuildAreas(text string, highlights []models.Highlight) []int {
	byteIndexes := make(map[int]int, len(highlights))
	for _, h := range highlights {
		off, length := CharToByteRange(int(h.CharIndex), int(h.CharLength), text)
		if cur, seen := byteIndexes[off]; !seen || cur < length {
			byteIndexes[off] = length
		}
	}

	areas := make([]int, 0, 2*len(byteIndexes)+2)
	areas = append(areas, 0)
	for off, length := range byteIndexes {
		areas = append(areas, off, off+length)
	}
	areas = append(areas, len(text))
	sort.Ints(areas)
	return areas
}

// Crop returns a window of at most 2*context chars of text around the first
// highlight, together with the highlights remapped into the window's char
// coordinates. Highlights must be sorted by (CharIndex, CharLength); the
// window starts context chars before the first highlight (or at 0 when the
// slice is empty).
//
// Highlights are consumed as a contiguous prefix: the first highlight whose
// end exceeds the window stops the scan and discards itself and everything
// after it, even when a later highlight would fit on its own. A kept
// highlight's end may still exceed the cropped text when text itself is
// shorter than the nominal window.
func Crop(text string, highlights []models.Highlight, context int) (string, []models.Highlight) {
	anchor := 0
	if len(highlights) > 0 {
		anchor = int(highlights[0].CharIndex)
	}
	start := anchor - context
	if start < 0 {
		start = 0
	}
	cropped := charWindow(text, start, 2*context)

	kept := make([]models.Highlight, 0, len(highlights))
	for _, h := range highlights {
		if int(h.CharIndex)+int(h.CharLength) > start+2*context {
			break
		}
		h.CharIndex -= uint32(start)
		kept = append(kept, h)
	}
	return cropped, kept
}

// charWindow returns the substring of text starting at char offset start and
// spanning at most count chars. The result shares text's backing array.
func charWindow(text string, start, count int) string {
	n := 0
	from := len(text)
	for i := range text {
		if n == start {
			from = i
		}
		if n == start+count {
			return text[from:i]
		}
		n++
	}
	if n <= start {
		return ""
	}
	return text[from:]
}
