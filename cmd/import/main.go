// Command import ingests a CSV file (or stdin) into the book catalog for one
// owner. Storage backend, DSN, and metrics backend come from flags with
// environment fallbacks; a .env file is honored when present.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"bookshelf/internal/catalog"
	"bookshelf/internal/importer"
	"bookshelf/internal/metrics"
	"bookshelf/internal/metrics/datadog"
	"bookshelf/internal/metrics/prompush"
	"bookshelf/internal/storage"

	// register all backends with the storage factory.
	_ "bookshelf/internal/storage/all"
)

// importRunner is the slice of *importer.Importer the CLI needs. Tests swap
// in a fake.
type importRunner interface {
	ImportFile(ctx context.Context, path string, opts importer.Options) (importer.ImportResult, error)
	ImportStream(ctx context.Context, src io.Reader, opts importer.Options) (importer.ImportResult, error)
}

// appDeps are the side-effect seams of runMain.
type appDeps struct {
	openRepo    func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	newRunner   func(repo storage.Repository, schema catalog.Schema, logger importer.Logger) importRunner
	initMetrics func(ctx context.Context, backend, gatewayURL string) (cleanup func(), err error)
	stdin       io.Reader
	getenv      func(string) string
}

func defaultDeps() appDeps {
	return appDeps{
		openRepo: storage.Open,
		newRunner: func(repo storage.Repository, schema catalog.Schema, logger importer.Logger) importRunner {
			return &importer.Importer{Repo: repo, Schema: schema, Logger: logger}
		},
		initMetrics: initMetrics,
		stdin:       os.Stdin,
		getenv:      os.Getenv,
	}
}

func main() {
	_ = godotenv.Load()
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		file        = fs.String("file", "", "CSV file to import (empty reads stdin)")
		owner       = fs.Int64("owner", 1, "owner id the batch belongs to")
		overwrite   = fs.Bool("overwrite", false, "replace the owner's whole catalog instead of merging")
		storageKind = fs.String("storage", "", "storage backend (sqlite, postgres, mssql; env STORAGE_KIND)")
		dsn         = fs.String("dsn", "", "storage DSN (env STORAGE_DSN)")
		metricsFlg  = fs.String("metrics-backend", "", "metrics backend (pushgateway, datadog, none; env METRICS_BACKEND)")
		gatewayURL  = fs.String("pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
		verbose     = fs.Bool("v", false, "enable stage logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *owner <= 0 {
		fmt.Fprintln(stderr, "usage: import -owner must be positive")
		return 2
	}

	kind := fallback(*storageKind, deps.getenv("STORAGE_KIND"), "sqlite")
	dataSource := fallback(*dsn, deps.getenv("STORAGE_DSN"), "books.db")
	metricsName := fallback(*metricsFlg, deps.getenv("METRICS_BACKEND"), "none")

	cleanup, err := deps.initMetrics(ctx, metricsName, fallback(*gatewayURL, deps.getenv("PUSHGATEWAY_URL"), "http://localhost:9091"))
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	repo, err := deps.openRepo(ctx, storage.Config{
		Kind:   kind,
		DSN:    dataSource,
		Schema: catalog.DefaultSchema(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "open storage: %v\n", err)
		return 1
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(stderr, "ensure schema: %v\n", err)
		return 1
	}

	var logger importer.Logger
	var verboseLog *log.Logger
	if *verbose {
		verboseLog = log.New(stderr, "", log.LstdFlags)
		logger = verboseLog
	}

	runner := deps.newRunner(repo, catalog.DefaultSchema(), logger)
	opts := importer.Options{OwnerID: *owner, Overwrite: *overwrite}

	start := time.Now()
	var res importer.ImportResult
	if *file == "" {
		res, err = runner.ImportStream(ctx, deps.stdin, opts)
	} else {
		res, err = runner.ImportFile(ctx, *file, opts)
	}
	if err != nil {
		fmt.Fprintf(stderr, "import: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s (encoding=%s inserted=%d skipped=%d)\n", res.Message, res.Encoding, res.Inserted, res.Skipped)
	if *verbose {
		verboseLog.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return 0
}

// fallback returns the first non-blank value.
func fallback(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// initMetrics wires the process-wide metrics backend and returns its
// shutdown func. Unknown names disable metrics rather than fail the import.
func initMetrics(ctx context.Context, backend, gatewayURL string) (func(), error) {
	switch backend {
	case "pushgateway":
		b, err := prompush.NewBackend("bookshelf_import", gatewayURL)
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}, nil

	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    "bookshelf_import",
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}, nil

	case "", "none":
		return func() {}, nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backend)
		return func() {}, nil
	}
}
