// Command export dumps an owner's catalog as CSV to stdout or a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bookshelf/internal/catalog"
	"bookshelf/internal/exporter"
	"bookshelf/internal/storage"

	_ "bookshelf/internal/storage/all"
)

func main() {
	_ = godotenv.Load()

	var (
		owner       = flag.Int64("owner", 1, "owner id to export")
		storageKind = flag.String("storage", "", "storage backend (env STORAGE_KIND)")
		dsn         = flag.String("dsn", "", "storage DSN (env STORAGE_DSN)")
		out         = flag.String("out", "", "output file (empty writes stdout)")
	)
	flag.Parse()

	if err := run(context.Background(), *owner, *storageKind, *dsn, *out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, owner int64, kind, dsn, out string) error {
	schema := catalog.DefaultSchema()
	repo, err := storage.Open(ctx, storage.Config{
		Kind:   fallback(kind, os.Getenv("STORAGE_KIND"), "sqlite"),
		DSN:    fallback(dsn, os.Getenv("STORAGE_DSN"), "books.db"),
		Schema: schema,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	books, err := repo.ListBooks(ctx, owner)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return exporter.WriteCSV(w, books, schema)
}

func fallback(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
