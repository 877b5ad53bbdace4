// Package repl provides the interactive search loop: it reads queries,
// searches the index, and prints each matching document's displayed
// attributes cropped around the first match with the matches highlighted.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mmachatschek/meilisearch/internal/highlight"
	"github.com/mmachatschek/meilisearch/internal/search"
)

// Options holds per-session settings.
type Options struct {
	Search search.Options
	// HistoryPath is the query history file. Empty disables history.
	HistoryPath string
}

// REPL is an interactive search session.
type REPL struct {
	engine *search.Engine
	opts   Options
	styles highlight.Styles
	out    io.Writer
	errOut io.Writer
}

// New creates a search session writing results to out and diagnostics to errOut.
func New(engine *search.Engine, opts Options, out, errOut io.Writer) *REPL {
	return &REPL{
		engine: engine,
		opts:   opts,
		styles: highlight.DefaultStyles(),
		out:    out,
		errOut: errOut,
	}
}

// Run reads queries from in until EOF, running each one. Query history is
// loaded from and saved to the history file when one is configured.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	history := loadHistory(r.opts.HistoryPath)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "Searching for: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		history = append(history, query)
		if err := r.RunQuery(ctx, query); err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
	}

	if err := saveHistory(r.opts.HistoryPath, history); err != nil {
		return err
	}
	return scanner.Err()
}

// RunQuery runs one query and prints its results.
func (r *REPL) RunQuery(ctx context.Context, query string) error {
	response, err := r.engine.Search(ctx, query, r.opts.Search)
	if err != nil {
		return err
	}

	for _, result := range response.Results {
		fmt.Fprintf(r.out, "raw-id: %s\n", result.ID)
		for _, attr := range result.Attributes {
			fmt.Fprintf(r.out, "%s: ", attr.Name)
			if err := highlight.RenderSpans(r.out, attr.Text, attr.Areas, r.styles); err != nil {
				return err
			}
			fmt.Fprintln(r.out)
		}
		fmt.Fprintf(r.out, "matching in: %v\n\n", result.MatchingIn)
	}

	fmt.Fprintf(r.errOut, "whole documents fields retrieve took %v\n",
		time.Duration(response.RetrieveTime)*time.Millisecond)
	fmt.Fprintf(r.errOut, "===== Found %d results in %v =====\n",
		response.Total, time.Duration(response.QueryTime)*time.Millisecond)
	return nil
}

func loadHistory(path string) []string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var history []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" {
			history = append(history, line)
		}
	}
	return history
}

func saveHistory(path string, history []string) error {
	if path == "" || len(history) == 0 {
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(history, "\n")+"\n"), 0600)
}
