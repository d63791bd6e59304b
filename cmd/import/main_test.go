package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"bookshelf/internal/catalog"
	"bookshelf/internal/importer"
	"bookshelf/internal/storage"
)

// fakeRunner records import calls and returns a canned result.
type fakeRunner struct {
	res importer.ImportResult
	err error

	calls atomic.Int64

	mu       sync.Mutex
	lastPath string
	lastOpts importer.Options
}

func (r *fakeRunner) ImportFile(ctx context.Context, path string, opts importer.Options) (importer.ImportResult, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.lastPath = path
	r.lastOpts = opts
	r.mu.Unlock()
	return r.res, r.err
}

func (r *fakeRunner) ImportStream(ctx context.Context, src io.Reader, opts importer.Options) (importer.ImportResult, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.lastPath = "<stdin>"
	r.lastOpts = opts
	r.mu.Unlock()
	return r.res, r.err
}

// fakeRepo satisfies just enough of storage.Repository for the CLI flow.
type fakeRepo struct {
	storage.Repository
	ensureErr error
	closed    atomic.Int64
}

func (r *fakeRepo) EnsureSchema(ctx context.Context) error { return r.ensureErr }
func (r *fakeRepo) Close()                                 { r.closed.Add(1) }

func testDeps(runner *fakeRunner, repo *fakeRepo) appDeps {
	return appDeps{
		openRepo: func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			return repo, nil
		},
		newRunner: func(storage.Repository, catalog.Schema, importer.Logger) importRunner {
			return runner
		},
		initMetrics: func(context.Context, string, string) (func(), error) {
			return func() {}, nil
		},
		stdin:  strings.NewReader(""),
		getenv: func(string) string { return "" },
	}
}

func TestRunMainUsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		args          []string
		wantStderrSub string
	}{
		{"unknown_flag", []string{"-nope"}, "flag provided but not defined"},
		{"zero_owner", []string{"-owner", "0"}, "-owner must be positive"},
		{"negative_owner", []string{"-owner", "-3"}, "-owner must be positive"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer

			deps := testDeps(&fakeRunner{}, &fakeRepo{})
			deps.openRepo = func(context.Context, storage.Config) (storage.Repository, error) {
				t.Fatal("openRepo must not be called on usage errors")
				return nil, nil
			}

			code := runMain(context.Background(), tc.args, &stdout, &stderr, deps)
			if code != 2 {
				t.Fatalf("exit code = %d, want 2; stderr=%q", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr = %q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
		})
	}
}

func TestRunMainFileFlow(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	runner := &fakeRunner{res: importer.ImportResult{
		Success: true, Message: "imported 2 books", Inserted: 2, Encoding: "utf-8-sig",
	}}
	repo := &fakeRepo{}

	code := runMain(context.Background(),
		[]string{"-file", "books.csv", "-owner", "7", "-overwrite"},
		&stdout, &stderr, testDeps(runner, repo))

	if code != 0 {
		t.Fatalf("exit code = %d; stderr=%q", code, stderr.String())
	}
	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("runner calls = %d, want 1", got)
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.lastPath != "books.csv" {
		t.Errorf("path = %q", runner.lastPath)
	}
	if runner.lastOpts.OwnerID != 7 || !runner.lastOpts.Overwrite {
		t.Errorf("opts = %+v", runner.lastOpts)
	}
	if !strings.Contains(stdout.String(), "imported 2 books") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if repo.closed.Load() != 1 {
		t.Errorf("repo closed %d times, want 1", repo.closed.Load())
	}
}

func TestRunMainStdinWhenNoFile(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	runner := &fakeRunner{res: importer.ImportResult{Success: true, Message: "imported 0 books"}}
	code := runMain(context.Background(), nil, &stdout, &stderr, testDeps(runner, &fakeRepo{}))

	if code != 0 {
		t.Fatalf("exit code = %d; stderr=%q", code, stderr.String())
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.lastPath != "<stdin>" {
		t.Errorf("expected stream import, got path %q", runner.lastPath)
	}
}

func TestRunMainErrorPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mutate        func(*appDeps, *fakeRunner, *fakeRepo)
		wantStderrSub string
		wantRunCalls  int64
	}{
		{
			name: "open_repo_error",
			mutate: func(d *appDeps, _ *fakeRunner, _ *fakeRepo) {
				d.openRepo = func(context.Context, storage.Config) (storage.Repository, error) {
					return nil, errors.New("bad dsn")
				}
			},
			wantStderrSub: "open storage:",
		},
		{
			name: "ensure_schema_error",
			mutate: func(d *appDeps, _ *fakeRunner, repo *fakeRepo) {
				repo.ensureErr = errors.New("table locked")
			},
			wantStderrSub: "ensure schema:",
		},
		{
			name: "init_metrics_error",
			mutate: func(d *appDeps, _ *fakeRunner, _ *fakeRepo) {
				d.initMetrics = func(context.Context, string, string) (func(), error) {
					return nil, errors.New("gateway down")
				}
			},
			wantStderrSub: "init metrics:",
		},
		{
			name: "import_error",
			mutate: func(_ *appDeps, r *fakeRunner, _ *fakeRepo) {
				r.err = errors.New("disk on fire")
			},
			wantStderrSub: "import:",
			wantRunCalls:  1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer

			runner := &fakeRunner{res: importer.ImportResult{Success: true}}
			repo := &fakeRepo{}
			deps := testDeps(runner, repo)
			tc.mutate(&deps, runner, repo)

			code := runMain(context.Background(), nil, &stdout, &stderr, deps)
			if code != 1 {
				t.Fatalf("exit code = %d, want 1; stderr=%q", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantStderrSub) {
				t.Fatalf("stderr = %q, want contains %q", stderr.String(), tc.wantStderrSub)
			}
			if got := runner.calls.Load(); got != tc.wantRunCalls {
				t.Errorf("runner calls = %d, want %d", got, tc.wantRunCalls)
			}
		})
	}
}

func TestRunMainVerboseLogsToStderrWriter(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	runner := &fakeRunner{res: importer.ImportResult{Success: true, Message: "imported 1 books"}}
	code := runMain(context.Background(), []string{"-v"}, &stdout, &stderr, testDeps(runner, &fakeRepo{}))

	if code != 0 {
		t.Fatalf("exit code = %d; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "completed in") {
		t.Errorf("completion line missing from stderr: %q", stderr.String())
	}
	if strings.Contains(stdout.String(), "completed in") {
		t.Errorf("completion line leaked to stdout: %q", stdout.String())
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	if got := fallback("", "  ", "env", "default"); got != "env" {
		t.Errorf("fallback = %q, want env", got)
	}
	if got := fallback("", ""); got != "" {
		t.Errorf("fallback = %q, want empty", got)
	}
}
