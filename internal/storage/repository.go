// Package storage defines the backend-agnostic catalog repository and the
// factory registry backends attach to. Backend packages (sqlite, postgres,
// mssql) register themselves from init() and are selected by Config.Kind.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookshelf/internal/catalog"
)

// ErrNotFound is returned by lookups for ids that do not exist within the
// requested owner's scope.
var ErrNotFound = errors.New("storage: book not found")

// Config selects and configures a backend.
type Config struct {
	// Kind is a registered backend kind ("sqlite", "postgres", "mssql").
	Kind string
	// DSN is passed through to the backend; validation is backend-specific.
	DSN string
	// Schema is the deployment variant the store must materialize
	// (owner scoping, purchase-country column).
	Schema catalog.Schema
}

// BatchTx is the transactional surface the import reconciler runs against.
// Everything executed through a BatchTx commits or rolls back as one unit.
type BatchTx interface {
	Count(ctx context.Context, ownerID int64) (int64, error)
	DeleteAll(ctx context.Context, ownerID int64) error
	Exists(ctx context.Context, ownerID int64, title, isbn string) (bool, error)
	Insert(ctx context.Context, ownerID int64, b catalog.Book) error
}

// Repository is the catalog store. All operations are scoped by owner id
// when the schema is owner-scoped; in single-tenant deployments the owner id
// is ignored by backends.
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureSchema creates tables as needed (create-if-not-exists semantics,
	// safe to call at every startup).
	EnsureSchema(ctx context.Context) error

	CountBooks(ctx context.Context, ownerID int64) (int64, error)
	ListBooks(ctx context.Context, ownerID int64) ([]catalog.Book, error)
	SearchBooks(ctx context.Context, ownerID int64, f Filter) ([]catalog.Book, error)
	GetBook(ctx context.Context, ownerID, id int64) (catalog.Book, error)
	InsertBook(ctx context.Context, ownerID int64, b catalog.Book) (int64, error)
	UpdateBook(ctx context.Context, ownerID int64, b catalog.Book) error
	DeleteBook(ctx context.Context, ownerID, id int64) error

	// ImportTx runs fn inside one store transaction. A non-nil error from fn
	// (or from commit) rolls back every write fn performed; the import
	// pipeline relies on this for its all-or-nothing batch semantics.
	ImportTx(ctx context.Context, fn func(tx BatchTx) error) error
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() function in
// the backend package. Registering the same kind twice panics: ambiguous
// backend selection should fail fast at startup.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open constructs a Repository using the registered backend factory.
func Open(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
