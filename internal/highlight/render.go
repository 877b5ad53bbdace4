package highlight

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used when rendering spans.
type Styles struct {
	Plain     lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default rendering styles: plain text unstyled,
// matches in yellow.
func DefaultStyles() Styles {
	return Styles{
		Plain:     lipgloss.NewStyle(),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// RenderSpans writes text to w span by span, walking consecutive boundary
// pairs of areas and toggling between plain and highlighted styling, starting
// plain. Boundaries outside [0, len(text)] are clamped.
func RenderSpans(w io.Writer, text string, areas []int, styles Styles) error {
	highlighted := false
	for i := 0; i+1 < len(areas); i++ {
		start, end := areas[i], areas[i+1]
		if end > len(text) {
			end = len(text)
		}
		if start > end {
			start = end
		}
		span := text[start:end]
		if highlighted {
			span = styles.Highlight.Render(span)
		} else {
			span = styles.Plain.Render(span)
		}
		if _, err := io.WriteString(w, span); err != nil {
			return err
		}
		highlighted = !highlighted
	}
	return nil
}
