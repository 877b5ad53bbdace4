// Package main is the meilisearch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmachatschek/meilisearch/internal/config"
	"github.com/mmachatschek/meilisearch/internal/index"
	"github.com/mmachatschek/meilisearch/internal/ingest"
	"github.com/mmachatschek/meilisearch/internal/repl"
	"github.com/mmachatschek/meilisearch/internal/schema"
	"github.com/mmachatschek/meilisearch/internal/search"
	"github.com/mmachatschek/meilisearch/internal/server"
	"github.com/mmachatschek/meilisearch/internal/store"
	"github.com/mmachatschek/meilisearch/internal/watcher"
	"github.com/mmachatschek/meilisearch/pkg/utils"
)

var version = "dev"

const historyFile = "query-history.txt"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "serve":
		runServe()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("meilisearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: meilisearch <command> [flags]

Commands:
  index    ingest a csv file into a database
  search   interactive search over a database
  serve    run the HTTP search API
  watch    reingest a csv file whenever it changes
  version  print the version
  help     print this help

Run "meilisearch <command> -h" for command flags.
`)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func newLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func openStore(dbPath string) *store.SQLiteStore {
	st, err := store.NewSQLiteStore(filepath.Join(dbPath, "documents.db"))
	if err != nil {
		fatalf("Failed to open document store: %v", err)
	}
	return st
}

func openIndex(dbPath string, sc *schema.Schema) *index.BleveIndex {
	idx, err := index.NewBleveIndex(filepath.Join(dbPath, "index.bleve"), sc)
	if err != nil {
		fatalf("Failed to open search index: %v", err)
	}
	return idx
}

// storedSchema loads the schema a database was created with.
func storedSchema(ctx context.Context, st store.Store) *schema.Schema {
	sc, err := st.Schema(ctx)
	if errors.Is(err, schema.ErrSchemaMissing) {
		fatalf("Database has no schema; run \"meilisearch index\" first")
	}
	if err != nil {
		fatalf("Failed to load schema: %v", err)
	}
	return sc
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dbPath := fs.String("db", "./data", "database directory")
	schemaPath := fs.String("schema", "", "schema file (required)")
	groupSize := fs.Int("update-group-size", 0, "documents per update group")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fatalf("Usage: meilisearch index --schema <file> [flags] <csv>")
	}
	if *schemaPath == "" {
		fatalf("--schema is required")
	}

	logger := newLogger(*debug)
	defer logger.Sync()

	sc, err := schema.Load(*schemaPath)
	if err != nil {
		fatalf("Failed to load schema: %v", err)
	}

	st := openStore(*dbPath)
	defer st.Close()
	idx := openIndex(*dbPath, sc)
	defer idx.Close()

	opts := []ingest.Option{ingest.WithLogger(logger)}
	if *groupSize > 0 {
		opts = append(opts, ingest.WithGroupSize(*groupSize))
	}
	ing := ingest.NewIngester(st, idx, sc, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := ing.IngestCSVFile(ctx, fs.Arg(0))
	if err != nil {
		if errors.Is(err, schema.ErrSchemaDiffer) {
			fatalf("Schema differs from the database schema; use a fresh database or the original schema")
		}
		fatalf("Ingestion failed: %v", err)
	}
	logger.Info("database updated",
		zap.String("path", *dbPath),
		zap.Int("documents", n),
	)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	dbPath := fs.String("db", "./data", "database directory")
	numberResults := fs.Int("number-results", 10, "number of returned results")
	charContext := fs.Int("context", 35, "characters kept before and after the first match")
	filter := fs.String("filter", "", "boolean attribute filter, e.g. adult or !adult")
	_ = fs.Parse(os.Args[2:])

	st := openStore(*dbPath)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc := storedSchema(ctx, st)
	idx := openIndex(*dbPath, sc)
	defer idx.Close()

	engine := search.NewEngine(st, idx, sc)
	session := repl.New(engine, repl.Options{
		Search: search.Options{
			Limit:           *numberResults,
			CharContext:     *charContext,
			Filter:          *filter,
			DisplayedFields: fs.Args(),
		},
		HistoryPath: historyFile,
	}, os.Stdout, os.Stderr)

	if err := session.Run(ctx, os.Stdin); err != nil {
		fatalf("Search session failed: %v", err)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "./data", "database directory")
	configPath := fs.String("config", "", "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger := newLogger(cfg.Debug || *debug)
	defer logger.Sync()

	st := openStore(*dbPath)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc := storedSchema(ctx, st)
	idx := openIndex(*dbPath, sc)
	defer idx.Close()

	engine := search.NewEngine(st, idx, sc, search.WithLogger(logger))
	srv := server.NewServer(engine, st, idx, &cfg.Server, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := srv.Stop(context.Background()); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dbPath := fs.String("db", "./data", "database directory")
	schemaPath := fs.String("schema", "", "schema file (required)")
	groupSize := fs.Int("update-group-size", 0, "documents per update group")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fatalf("Usage: meilisearch watch --schema <file> [flags] <csv>")
	}
	if *schemaPath == "" {
		fatalf("--schema is required")
	}

	logger := newLogger(*debug)
	defer logger.Sync()

	sc, err := schema.Load(*schemaPath)
	if err != nil {
		fatalf("Failed to load schema: %v", err)
	}

	st := openStore(*dbPath)
	defer st.Close()
	idx := openIndex(*dbPath, sc)
	defer idx.Close()

	opts := []ingest.Option{ingest.WithLogger(logger)}
	if *groupSize > 0 {
		opts = append(opts, ingest.WithGroupSize(*groupSize))
	}
	ing := ingest.NewIngester(st, idx, sc, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	csvPath := fs.Arg(0)
	if _, err := ing.IngestCSVFile(ctx, csvPath); err != nil {
		fatalf("Initial ingestion failed: %v", err)
	}

	w := watcher.NewWatcher([]string{csvPath}, func(path string) {
		n, err := ing.IngestCSVFile(context.Background(), path)
		if err != nil {
			logger.Warn("reingestion failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("reingested", zap.String("path", path), zap.Int("documents", n))
	}, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	logger.Info("watching", zap.String("path", csvPath))
	<-ctx.Done()
}
