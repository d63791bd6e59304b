package storage

import "bookshelf/internal/catalog"

// Shared column plumbing for the SQL backends. Keeping the column order and
// the value/scan alignment in one place means a schema change cannot drift
// between sqlite, postgres, and mssql.

// BookColumns returns the data columns of the books table in storage order
// (excluding id and owner_id). added_at is always last.
func BookColumns(schema catalog.Schema) []string {
	return append(schema.ExpectedColumns(), catalog.FieldAddedAt)
}

// BookValues returns b's values aligned to BookColumns(schema).
func BookValues(schema catalog.Schema, b catalog.Book) []any {
	vals := []any{
		b.Title,
		b.AuthorFirstName,
		b.AuthorLastName,
		b.Genre,
		b.Price,
		b.PageCount,
		b.Binding,
		b.Edition,
		b.ISBN,
		b.SeriesNumber,
		b.Publisher,
		b.Series,
		b.Condition,
		b.Language,
		b.Signed,
		b.ReadStatus,
	}
	if schema.HasCountry {
		vals = append(vals, b.PurchaseCountry)
	}
	return append(vals, b.AddedAt)
}

// BookScanDest returns scan destinations for a SELECT of id followed by
// BookColumns(schema), pointing into b.
func BookScanDest(schema catalog.Schema, b *catalog.Book) []any {
	dest := []any{
		&b.ID,
		&b.Title,
		&b.AuthorFirstName,
		&b.AuthorLastName,
		&b.Genre,
		&b.Price,
		&b.PageCount,
		&b.Binding,
		&b.Edition,
		&b.ISBN,
		&b.SeriesNumber,
		&b.Publisher,
		&b.Series,
		&b.Condition,
		&b.Language,
		&b.Signed,
		&b.ReadStatus,
	}
	if schema.HasCountry {
		dest = append(dest, &b.PurchaseCountry)
	}
	return append(dest, &b.AddedAt)
}
