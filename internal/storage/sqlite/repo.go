// Package sqlite implements storage.Repository on SQLite via the pure-Go
// modernc driver. It is the default backend: a personal catalog fits in one
// file-backed database and needs no server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"bookshelf/internal/catalog"
	"bookshelf/internal/storage"
)

type Repo struct {
	db     *sql.DB
	schema catalog.Schema
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, schema: cfg.Schema}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureSchema creates the books table and its lookup index. SQLite has no
// strict typing; price gets REAL affinity, counts INTEGER, the rest TEXT.
// added_at is stored as TEXT in catalog.TimeFormat.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS books (\n")
	b.WriteString("  id INTEGER PRIMARY KEY AUTOINCREMENT")
	if r.schema.OwnerScoped {
		b.WriteString(",\n  owner_id INTEGER NOT NULL")
	}
	for _, col := range storage.BookColumns(r.schema) {
		b.WriteString(",\n  ")
		b.WriteString(col)
		switch col {
		case catalog.FieldPrice:
			b.WriteString(" REAL")
		case catalog.FieldPageCount, catalog.FieldSeriesNumber:
			b.WriteString(" INTEGER")
		default:
			b.WriteString(" TEXT")
		}
	}
	b.WriteString("\n)")

	if _, err := r.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table books: %w", err)
	}

	idxCols := "title, isbn"
	if r.schema.OwnerScoped {
		idxCols = "owner_id, " + idxCols
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS books_identity ON books (%s)", idxCols)
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index books_identity: %w", err)
	}
	return nil
}

// querier abstracts *sql.DB and *sql.Tx so the statement helpers serve both
// the repository methods and BatchTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) ownerWhere(args *[]any, ownerID int64) string {
	if !r.schema.OwnerScoped {
		return "1=1"
	}
	*args = append(*args, ownerID)
	return "owner_id = ?"
}

func (r *Repo) count(ctx context.Context, q querier, ownerID int64) (int64, error) {
	var args []any
	query := "SELECT COUNT(*) FROM books WHERE " + r.ownerWhere(&args, ownerID)
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (r *Repo) insert(ctx context.Context, q querier, ownerID int64, b catalog.Book) (int64, error) {
	cols := storage.BookColumns(r.schema)
	args := storage.BookValues(r.schema, b)
	if r.schema.OwnerScoped {
		cols = append([]string{"owner_id"}, cols...)
		args = append([]any{ownerID}, args...)
	}

	query := fmt.Sprintf(
		"INSERT INTO books (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.TrimRight(strings.Repeat("?, ", len(cols)), ", "),
	)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) selectBooks(ctx context.Context, q querier, query string, args []any) ([]catalog.Book, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Book
	for rows.Next() {
		var b catalog.Book
		if err := rows.Scan(storage.BookScanDest(r.schema, &b)...); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) selectList() string {
	return "SELECT id, " + strings.Join(storage.BookColumns(r.schema), ", ") + " FROM books"
}

const orderBy = " ORDER BY genre ASC, author_last_name ASC, series_number ASC"

func (r *Repo) CountBooks(ctx context.Context, ownerID int64) (int64, error) {
	return r.count(ctx, r.db, ownerID)
}

func (r *Repo) ListBooks(ctx context.Context, ownerID int64) ([]catalog.Book, error) {
	var args []any
	query := r.selectList() + " WHERE " + r.ownerWhere(&args, ownerID) + orderBy
	books, err := r.selectBooks(ctx, r.db, query, args)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return r.stampOwner(books, ownerID), nil
}

func (r *Repo) SearchBooks(ctx context.Context, ownerID int64, f storage.Filter) ([]catalog.Book, error) {
	var args []any
	clauses := []string{r.ownerWhere(&args, ownerID)}

	for _, p := range f.TextClauses(r.schema) {
		clauses = append(clauses, p[0]+" LIKE ?")
		args = append(args, "%"+p[1]+"%")
	}
	if f.SeriesNumber != nil {
		clauses = append(clauses, "series_number = ?")
		args = append(args, *f.SeriesNumber)
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.MinPages != nil {
		clauses = append(clauses, "page_count >= ?")
		args = append(args, *f.MinPages)
	}
	if f.MaxPages != nil {
		clauses = append(clauses, "page_count <= ?")
		args = append(args, *f.MaxPages)
	}

	query := r.selectList() + " WHERE " + strings.Join(clauses, " AND ") + orderBy
	books, err := r.selectBooks(ctx, r.db, query, args)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return r.stampOwner(books, ownerID), nil
}

func (r *Repo) GetBook(ctx context.Context, ownerID, id int64) (catalog.Book, error) {
	var args []any
	query := r.selectList() + " WHERE " + r.ownerWhere(&args, ownerID) + " AND id = ?"
	args = append(args, id)

	books, err := r.selectBooks(ctx, r.db, query, args)
	if err != nil {
		return catalog.Book{}, fmt.Errorf("get book: %w", err)
	}
	if len(books) == 0 {
		return catalog.Book{}, storage.ErrNotFound
	}
	return r.stampOwner(books, ownerID)[0], nil
}

func (r *Repo) InsertBook(ctx context.Context, ownerID int64, b catalog.Book) (int64, error) {
	return r.insert(ctx, r.db, ownerID, b)
}

func (r *Repo) UpdateBook(ctx context.Context, ownerID int64, b catalog.Book) error {
	cols := storage.BookColumns(r.schema)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	args := storage.BookValues(r.schema, b)

	var ownerArgs []any
	where := r.ownerWhere(&ownerArgs, ownerID)
	args = append(args, ownerArgs...)
	args = append(args, b.ID)

	query := "UPDATE books SET " + strings.Join(sets, ", ") + " WHERE " + where + " AND id = ?"
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteBook(ctx context.Context, ownerID, id int64) error {
	var args []any
	query := "DELETE FROM books WHERE " + r.ownerWhere(&args, ownerID) + " AND id = ?"
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ImportTx wraps fn in a single transaction so a mid-batch failure rolls
// back rows inserted earlier in the same call.
func (r *Repo) ImportTx(ctx context.Context, fn func(tx storage.BatchTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}

	if err := fn(&batchTx{repo: r, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}

func (r *Repo) stampOwner(books []catalog.Book, ownerID int64) []catalog.Book {
	if !r.schema.OwnerScoped {
		return books
	}
	for i := range books {
		books[i].OwnerID = ownerID
	}
	return books
}

type batchTx struct {
	repo *Repo
	tx   *sql.Tx
}

func (t *batchTx) Count(ctx context.Context, ownerID int64) (int64, error) {
	return t.repo.count(ctx, t.tx, ownerID)
}

func (t *batchTx) DeleteAll(ctx context.Context, ownerID int64) error {
	var args []any
	query := "DELETE FROM books WHERE " + t.repo.ownerWhere(&args, ownerID)
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete all books: %w", err)
	}
	return nil
}

func (t *batchTx) Exists(ctx context.Context, ownerID int64, title, isbn string) (bool, error) {
	var args []any
	query := "SELECT COUNT(*) FROM books WHERE " + t.repo.ownerWhere(&args, ownerID) + " AND title = ? AND isbn = ?"
	args = append(args, title, isbn)

	var n int64
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("book exists: %w", err)
	}
	return n > 0, nil
}

func (t *batchTx) Insert(ctx context.Context, ownerID int64, b catalog.Book) error {
	_, err := t.repo.insert(ctx, t.tx, ownerID, b)
	return err
}
