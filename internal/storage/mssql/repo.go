// Package mssql implements storage.Repository on SQL Server.
//
// Differences from the other backends are confined to placeholders (@pN),
// identity retrieval (OUTPUT INSERTED.id) and DDL (OBJECT_ID guard instead
// of IF NOT EXISTS).
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"bookshelf/internal/catalog"
	"bookshelf/internal/storage"
)

type Repo struct {
	db     *sql.DB
	schema catalog.Schema
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

func (r *Repo) EnsureSchema(ctx context.Context) error {
	var defs strings.Builder
	defs.WriteString("id BIGINT IDENTITY(1,1) PRIMARY KEY")
	if r.schema.OwnerScoped {
		defs.WriteString(", owner_id BIGINT NOT NULL")
	}
	for _, col := range storage.BookColumns(r.schema) {
		defs.WriteString(", ")
		defs.WriteString(col)
		switch col {
		case catalog.FieldPrice:
			defs.WriteString(" FLOAT NOT NULL DEFAULT 0")
		case catalog.FieldPageCount, catalog.FieldSeriesNumber:
			defs.WriteString(" INT NOT NULL DEFAULT 0")
		case catalog.FieldTitle, catalog.FieldISBN:
			// Kept indexable: NVARCHAR(MAX) cannot participate in an index key.
			defs.WriteString(" NVARCHAR(450) NOT NULL DEFAULT ''")
		default:
			defs.WriteString(" NVARCHAR(MAX) NOT NULL DEFAULT ''")
		}
	}

	// OBJECT_ID guard keeps this idempotent; SQL Server has no
	// CREATE TABLE IF NOT EXISTS.
	create := fmt.Sprintf(
		"IF OBJECT_ID(N'books', N'U') IS NULL BEGIN CREATE TABLE books (%s); END;",
		defs.String(),
	)
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table books: %w", err)
	}

	idxCols := "title, isbn"
	if r.schema.OwnerScoped {
		idxCols = "owner_id, " + idxCols
	}
	idx := fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'books_identity' AND object_id = OBJECT_ID(N'books')) BEGIN CREATE INDEX books_identity ON books (%s); END;",
		idxCols,
	)
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index books_identity: %w", err)
	}
	return nil
}

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
	return fmt.Sprintf("owner_id = @p%d", len(*args))
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

	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("@p%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO books (%s) OUTPUT INSERTED.id VALUES (%s)",
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)

	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return id, nil
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

	add := func(expr string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}

	for _, p := range f.TextClauses(r.schema) {
		add(p[0]+" LIKE @p%d", "%"+p[1]+"%")
	}
	if f.SeriesNumber != nil {
		add("series_number = @p%d", *f.SeriesNumber)
	}
	if f.MinPrice != nil {
		add("price >= @p%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= @p%d", *f.MaxPrice)
	}
	if f.MinPages != nil {
		add("page_count >= @p%d", *f.MinPages)
	}
	if f.MaxPages != nil {
		add("page_count <= @p%d", *f.MaxPages)
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
	where := r.ownerWhere(&args, ownerID)
	args = append(args, id)
	query := fmt.Sprintf("%s WHERE %s AND id = @p%d", r.selectList(), where, len(args))

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
	args := storage.BookValues(r.schema, b)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = @p%d", c, i+1)
	}

	where := r.ownerWhere(&args, ownerID)
	args = append(args, b.ID)
	query := fmt.Sprintf(
		"UPDATE books SET %s WHERE %s AND id = @p%d",
		strings.Join(sets, ", "), where, len(args),
	)

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
	where := r.ownerWhere(&args, ownerID)
	args = append(args, id)
	query := fmt.Sprintf("DELETE FROM books WHERE %s AND id = @p%d", where, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

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
	where := t.repo.ownerWhere(&args, ownerID)
	args = append(args, title, isbn)
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM books WHERE %s AND title = @p%d AND isbn = @p%d",
		where, len(args)-1, len(args),
	)

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
