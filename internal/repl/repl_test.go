package repl

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmachatschek/meilisearch/internal/index"
	"github.com/mmachatschek/meilisearch/internal/models"
	"github.com/mmachatschek/meilisearch/internal/schema"
	"github.com/mmachatschek/meilisearch/internal/search"
	"github.com/mmachatschek/meilisearch/internal/store"
)

const testSchema = `
identifier: id
attributes:
  - name: id
    displayed: true
  - name: title
    displayed: true
    indexed: true
  - name: overview
    displayed: true
    indexed: true
`

func newTestREPL(t *testing.T, opts Options) (*REPL, *strings.Builder) {
	t.Helper()
	sc, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	idx, err := index.NewMemBleveIndex(sc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	ctx := context.Background()
	docs := []*models.Document{
		{ID: "1", Fields: []models.Field{
			{Name: "id", Value: "1"},
			{Name: "title", Value: "hello world"},
			{Name: "overview", Value: "a long overview about the world and other things"},
		}},
		{ID: "2", Fields: []models.Field{
			{Name: "id", Value: "2"},
			{Name: "title", Value: "another film"},
			{Name: "overview", Value: "nothing matching here"},
		}},
	}
	for _, d := range docs {
		if err := st.UpsertDocument(ctx, d); err != nil {
			t.Fatal(err)
		}
		if err := idx.IndexDocument(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	var out strings.Builder
	r := New(search.NewEngine(st, idx, sc), opts, &out, &out)
	return r, &out
}

func TestRunQueryPrintsMatches(t *testing.T) {
	r, out := newTestREPL(t, Options{Search: search.Options{Limit: 10, CharContext: 35}})
	if err := r.RunQuery(context.Background(), "world"); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "raw-id: 1") {
		t.Errorf("output missing raw-id line: %q", got)
	}
	if !strings.Contains(got, "title: hello world") {
		t.Errorf("output missing title: %q", got)
	}
	if !strings.Contains(got, "matching in: [title overview]") {
		t.Errorf("output missing matching attributes: %q", got)
	}
	if !strings.Contains(got, "Found 1 results") {
		t.Errorf("output missing result count: %q", got)
	}
}

func TestRunQueryCropsLongAttributes(t *testing.T) {
	r, out := newTestREPL(t, Options{Search: search.Options{Limit: 10, CharContext: 5}})
	if err := r.RunQuery(context.Background(), "overview"); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	// the match starts at char 7 of the overview text; a 5-char context
	// keeps a 10-char window starting at char 2
	if !strings.Contains(got, "overview: long overv\n") {
		t.Errorf("output missing cropped overview: %q", got)
	}
}

func TestRunLoopAndHistory(t *testing.T) {
	histPath := filepath.Join(t.TempDir(), "query-history.txt")
	r, out := newTestREPL(t, Options{
		Search:      search.Options{Limit: 10, CharContext: 35},
		HistoryPath: histPath,
	})

	in := strings.NewReader("world\n\nfilm\n")
	if err := r.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Searching for: ") {
		t.Errorf("missing prompt: %q", out.String())
	}

	history := loadHistory(histPath)
	if len(history) != 2 || history[0] != "world" || history[1] != "film" {
		t.Errorf("history = %v, want [world film]", history)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query-history.txt")
	if got := loadHistory(path); got != nil {
		t.Errorf("missing history file should load empty, got %v", got)
	}
	if err := saveHistory(path, []string{"first", "second"}); err != nil {
		t.Fatal(err)
	}
	got := loadHistory(path)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("history = %v", got)
	}
}
