// Package postgres implements storage.Repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookshelf/internal/catalog"
	"bookshelf/internal/storage"
)

type Repo struct {
	pool   *pgxpool.Pool
	schema catalog.Schema
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool, schema: cfg.Schema}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS books (\n")
	b.WriteString("  id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY")
	if r.schema.OwnerScoped {
		b.WriteString(",\n  owner_id BIGINT NOT NULL")
	}
	for _, col := range storage.BookColumns(r.schema) {
		b.WriteString(",\n  ")
		b.WriteString(col)
		switch col {
		case catalog.FieldPrice:
			b.WriteString(" DOUBLE PRECISION NOT NULL DEFAULT 0")
		case catalog.FieldPageCount, catalog.FieldSeriesNumber:
			b.WriteString(" INTEGER NOT NULL DEFAULT 0")
		default:
			b.WriteString(" TEXT NOT NULL DEFAULT ''")
		}
	}
	b.WriteString("\n)")

	if _, err := r.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("create table books: %w", err)
	}

	idxCols := "title, isbn"
	if r.schema.OwnerScoped {
		idxCols = "owner_id, " + idxCols
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS books_identity ON books (%s)", idxCols)
	if _, err := r.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("create index books_identity: %w", err)
	}
	return nil
}

// querier is the read/insert surface shared by *pgxpool.Pool and pgx.Tx, so
// the statement helpers serve both the repository methods and BatchTx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) ownerWhere(args *[]any, ownerID int64) string {
	if !r.schema.OwnerScoped {
		return "1=1"
	}
	*args = append(*args, ownerID)
	return fmt.Sprintf("owner_id = $%d", len(*args))
}

func (r *Repo) count(ctx context.Context, q querier, ownerID int64) (int64, error) {
	var args []any
	query := "SELECT COUNT(*) FROM books WHERE " + r.ownerWhere(&args, ownerID)
	var n int64
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
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
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO books (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return id, nil
}

func (r *Repo) selectBooks(ctx context.Context, q querier, query string, args []any) ([]catalog.Book, error) {
	rows, err := q.Query(ctx, query, args...)
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
	return r.count(ctx, r.pool, ownerID)
}

func (r *Repo) ListBooks(ctx context.Context, ownerID int64) ([]catalog.Book, error) {
	var args []any
	query := r.selectList() + " WHERE " + r.ownerWhere(&args, ownerID) + orderBy
	books, err := r.selectBooks(ctx, r.pool, query, args)
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
		add(p[0]+" ILIKE $%d", "%"+p[1]+"%")
	}
	if f.SeriesNumber != nil {
		add("series_number = $%d", *f.SeriesNumber)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.MinPages != nil {
		add("page_count >= $%d", *f.MinPages)
	}
	if f.MaxPages != nil {
		add("page_count <= $%d", *f.MaxPages)
	}

	query := r.selectList() + " WHERE " + strings.Join(clauses, " AND ") + orderBy
	books, err := r.selectBooks(ctx, r.pool, query, args)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return r.stampOwner(books, ownerID), nil
}

func (r *Repo) GetBook(ctx context.Context, ownerID, id int64) (catalog.Book, error) {
	var args []any
	where := r.ownerWhere(&args, ownerID)
	args = append(args, id)
	query := fmt.Sprintf("%s WHERE %s AND id = $%d", r.selectList(), where, len(args))

	books, err := r.selectBooks(ctx, r.pool, query, args)
	if err != nil {
		return catalog.Book{}, fmt.Errorf("get book: %w", err)
	}
	if len(books) == 0 {
		return catalog.Book{}, storage.ErrNotFound
	}
	return r.stampOwner(books, ownerID)[0], nil
}

func (r *Repo) InsertBook(ctx context.Context, ownerID int64, b catalog.Book) (int64, error) {
	return r.insert(ctx, r.pool, ownerID, b)
}

func (r *Repo) UpdateBook(ctx context.Context, ownerID int64, b catalog.Book) error {
	cols := storage.BookColumns(r.schema)
	args := storage.BookValues(r.schema, b)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	where := r.ownerWhere(&args, ownerID)
	args = append(args, b.ID)
	query := fmt.Sprintf(
		"UPDATE books SET %s WHERE %s AND id = $%d",
		strings.Join(sets, ", "), where, len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteBook(ctx context.Context, ownerID, id int64) error {
	var args []any
	where := r.ownerWhere(&args, ownerID)
	args = append(args, id)
	query := fmt.Sprintf("DELETE FROM books WHERE %s AND id = $%d", where, len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repo) ImportTx(ctx context.Context, fn func(tx storage.BatchTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}

	if err := fn(&batchTx{repo: r, tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
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
	tx   pgx.Tx
}

func (t *batchTx) Count(ctx context.Context, ownerID int64) (int64, error) {
	return t.repo.count(ctx, t.tx, ownerID)
}

func (t *batchTx) DeleteAll(ctx context.Context, ownerID int64) error {
	var args []any
	query := "DELETE FROM books WHERE " + t.repo.ownerWhere(&args, ownerID)
	if _, err := t.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete all books: %w", err)
	}
	return nil
}

func (t *batchTx) Exists(ctx context.Context, ownerID int64, title, isbn string) (bool, error) {
	var args []any
	where := t.repo.ownerWhere(&args, ownerID)
	args = append(args, title, isbn)
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM books WHERE %s AND title = $%d AND isbn = $%d",
		where, len(args)-1, len(args),
	)

	var n int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("book exists: %w", err)
	}
	return n > 0, nil
}

func (t *batchTx) Insert(ctx context.Context, ownerID int64, b catalog.Book) error {
	_, err := t.repo.insert(ctx, t.tx, ownerID, b)
	return err
}
