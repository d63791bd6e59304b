// Package importer runs the CSV ingestion pipeline: decode, parse,
// normalize, sanitize, dedupe, reconcile-and-write. One call processes one
// uploaded file synchronously; there are no background workers.
package importer

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/metrics"
	csvparser "bookshelf/internal/parser/csv"
	"bookshelf/internal/storage"
	"bookshelf/internal/textenc"
)

// Logger is the minimal logging interface the importer uses. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Importer wires the pipeline stages to a repository. The zero value is not
// usable; Repo must be set.
type Importer struct {
	Repo   storage.Repository
	Schema catalog.Schema

	// Logger receives stage logs. Nil means silent.
	Logger Logger

	// Metrics receives pipeline counters. Nil means the process-wide
	// backend (metrics.Default).
	Metrics metrics.Backend

	// now is a clock seam for deterministic AddedAt defaults in tests.
	now func() time.Time
}

// Options select the owner scope and ingestion policy for one call.
type Options struct {
	// OwnerID is the account the batch belongs to. Ignored when the schema
	// is not owner-scoped.
	OwnerID int64

	// Overwrite selects the destructive policy: delete all of the owner's
	// records, then insert the batch. When false and the owner already has
	// records, the batch is merged incrementally (only new (title, isbn)
	// identities are inserted).
	Overwrite bool
}

// ImportResult is the single per-attempt summary surfaced to the caller.
// Message is human-readable; callers wanting localization should format
// Inserted/Skipped themselves.
type ImportResult struct {
	Success  bool
	Message  string
	Inserted int
	Skipped  int
	// Encoding is the candidate that decoded the input (textenc constants).
	Encoding string
}

// ImportStream ingests an uploaded CSV byte stream for one owner.
func (im *Importer) ImportStream(ctx context.Context, src io.Reader, opts Options) (ImportResult, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return im.fail(fmt.Errorf("read upload: %w", err))
	}
	return im.run(ctx, raw, opts)
}

// ImportFile ingests a CSV file from disk (seed loads, CLI usage). Same
// pipeline as ImportStream; only the byte source differs.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (ImportResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return im.fail(fmt.Errorf("read csv file: %w", err))
	}
	return im.run(ctx, raw, opts)
}

func (im *Importer) run(ctx context.Context, raw []byte, opts Options) (ImportResult, error) {
	logf := im.logger()
	mb := im.metrics()
	start := time.Now()

	defer func() {
		mb.ObserveHistogram(metrics.ImportDurationSeconds, time.Since(start).Seconds(), nil)
	}()

	text, encoding, err := textenc.Resolve(raw)
	if err != nil {
		mb.IncCounter(metrics.ImportBatchesTotal, 1, metrics.Labels{"status": "failure"})
		return im.fail(err)
	}
	logf("stage=decode ok encoding=%s duration=%s", encoding, durMS(start))

	parseStart := time.Now()
	delim := csvparser.DetectDelimiter(text)
	header, rows, err := csvparser.ReadRecords(text, delim)
	if err != nil {
		mb.IncCounter(metrics.ImportBatchesTotal, 1, metrics.Labels{"status": "failure"})
		return im.fail(err)
	}
	mb.IncCounter(metrics.ImportRowsTotal, float64(len(rows)), metrics.Labels{"kind": "parsed"})
	logf("stage=parse ok delimiter=%q rows=%d duration=%s", delim, len(rows), durMS(parseStart))

	canon, err := catalog.NormalizeColumns(header)
	if err != nil {
		// Structural problem: abort before any data row is considered.
		mb.IncCounter(metrics.ImportBatchesTotal, 1, metrics.Labels{"status": "failure"})
		return im.fail(err)
	}

	books, substituted := catalog.BuildBooks(canon, rows, im.clock()(), im.Schema)
	if substituted > 0 {
		mb.IncCounter(metrics.ImportRowsTotal, float64(substituted), metrics.Labels{"kind": "substituted"})
		logf("stage=sanitize ok substituted=%d", substituted)
	}

	unique := catalog.DedupeBooks(books)
	if dropped := len(books) - len(unique); dropped > 0 {
		mb.IncCounter(metrics.ImportRowsTotal, float64(dropped), metrics.Labels{"kind": "deduped"})
		logf("stage=dedupe ok dropped=%d kept=%d", dropped, len(unique))
	}

	writeStart := time.Now()
	res, err := im.reconcile(ctx, unique, opts)
	if err != nil {
		mb.IncCounter(metrics.ImportBatchesTotal, 1, metrics.Labels{"status": "failure"})
		return im.fail(err)
	}
	res.Encoding = encoding

	mb.IncCounter(metrics.ImportRowsTotal, float64(res.Inserted), metrics.Labels{"kind": "inserted"})
	mb.IncCounter(metrics.ImportRowsTotal, float64(res.Skipped), metrics.Labels{"kind": "skipped"})
	mb.IncCounter(metrics.ImportBatchesTotal, 1, metrics.Labels{"status": "success"})
	logf("stage=write ok inserted=%d skipped=%d duration=%s", res.Inserted, res.Skipped, durMS(writeStart))

	return res, nil
}

// reconcile picks one of the three ingestion policies and performs its
// writes inside a single transaction, so a mid-batch failure leaves the
// store untouched.
func (im *Importer) reconcile(ctx context.Context, unique []catalog.Book, opts Options) (ImportResult, error) {
	var res ImportResult

	err := im.Repo.ImportTx(ctx, func(tx storage.BatchTx) error {
		existing, err := tx.Count(ctx, opts.OwnerID)
		if err != nil {
			return err
		}

		if opts.Overwrite && existing > 0 {
			if err := tx.DeleteAll(ctx, opts.OwnerID); err != nil {
				return err
			}
			existing = 0
		}

		if existing == 0 {
			for _, b := range unique {
				if err := tx.Insert(ctx, opts.OwnerID, b); err != nil {
					return err
				}
			}
			res = ImportResult{
				Success:  true,
				Message:  fmt.Sprintf("imported %d books", len(unique)),
				Inserted: len(unique),
			}
			return nil
		}

		// Incremental merge: only identities the owner does not have yet.
		for _, b := range unique {
			exists, err := tx.Exists(ctx, opts.OwnerID, b.Title, b.ISBN)
			if err != nil {
				return err
			}
			if exists {
				res.Skipped++
				continue
			}
			if err := tx.Insert(ctx, opts.OwnerID, b); err != nil {
				return err
			}
			res.Inserted++
		}

		res.Success = true
		if res.Inserted == 0 {
			res.Message = "no new books to add"
		} else {
			res.Message = fmt.Sprintf("added %d new books", res.Inserted)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import batch: %w", err)
	}
	return res, nil
}

// fail packages an error as the per-attempt summary. The error is also
// returned so programmatic callers can inspect its type.
func (im *Importer) fail(err error) (ImportResult, error) {
	return ImportResult{Success: false, Message: "import failed: " + err.Error()}, err
}

func (im *Importer) logger() func(format string, v ...any) {
	if im.Logger == nil {
		l := log.New(io.Discard, "", 0)
		return l.Printf
	}
	return im.Logger.Printf
}

func (im *Importer) metrics() metrics.Backend {
	if im.Metrics == nil {
		return metrics.Default()
	}
	return im.Metrics
}

func (im *Importer) clock() func() time.Time {
	if im.now == nil {
		return time.Now
	}
	return im.now
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }
