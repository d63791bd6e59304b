// Command stats prints chart aggregates and collection facts for one owner
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bookshelf/internal/catalog"
	"bookshelf/internal/stats"
	"bookshelf/internal/storage"

	_ "bookshelf/internal/storage/all"
)

type output struct {
	Charts   stats.Report `json:"charts"`
	FunFacts []string     `json:"fun_facts"`
}

func main() {
	_ = godotenv.Load()

	var (
		owner       = flag.Int64("owner", 1, "owner id to report on")
		storageKind = flag.String("storage", "", "storage backend (env STORAGE_KIND)")
		dsn         = flag.String("dsn", "", "storage DSN (env STORAGE_DSN)")
	)
	flag.Parse()

	if err := run(context.Background(), *owner, *storageKind, *dsn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, owner int64, kind, dsn string) error {
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

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Charts:   stats.Collect(books, schema),
		FunFacts: stats.FunFacts(books),
	})
}

func fallback(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
