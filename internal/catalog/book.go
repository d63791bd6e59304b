// Package catalog defines the book record model and the pure stages of the
// CSV import pipeline: column normalization, row sanitization, and batch
// deduplication. Nothing in this package touches storage.
package catalog

// TimeFormat is the storage format for AddedAt timestamps.
const TimeFormat = "2006-01-02 15:04:05"

// Canonical field names. CSV columns are normalized to these regardless of
// the original header spelling or language.
const (
	FieldTitle           = "title"
	FieldAuthorFirstName = "author_first_name"
	FieldAuthorLastName  = "author_last_name"
	FieldGenre           = "genre"
	FieldPrice           = "price"
	FieldPageCount       = "page_count"
	FieldBinding         = "binding"
	FieldEdition         = "edition"
	FieldISBN            = "isbn"
	FieldSeriesNumber    = "series_number"
	FieldPublisher       = "publisher"
	FieldSeries          = "series"
	FieldCondition       = "condition"
	FieldLanguage        = "language"
	FieldSigned          = "signed"
	FieldReadStatus      = "read_status"
	FieldPurchaseCountry = "purchase_country"
	FieldAddedAt         = "added_at"
)

// Book is one catalog entry. Title is the only field that is ever required;
// everything else defaults to the zero value of its type.
//
// AddedAt is kept as a formatted string (TimeFormat) rather than a time.Time:
// it is set once at creation, passed through verbatim on edits, and never
// computed with.
type Book struct {
	ID              int64
	OwnerID         int64
	Title           string
	AuthorFirstName string
	AuthorLastName  string
	Genre           string
	Price           float64
	PageCount       int
	Binding         string
	Edition         string
	ISBN            string
	SeriesNumber    int
	Publisher       string
	Series          string
	Condition       string
	Language        string
	Signed          string
	ReadStatus      string
	PurchaseCountry string
	AddedAt         string
}

// Key is the natural duplicate identity of a record within one owner's
// scope. Values are compared verbatim; empty ISBNs are legal and two books
// with the same title and no ISBN are duplicates.
func (b Book) Key() string {
	return b.Title + "\x1f" + b.ISBN
}

// Schema describes a deployment variant of the catalog. Historically the
// application existed as several near-identical copies (single-tenant vs
// multi-tenant, with or without a purchase-country column); a Schema value
// parameterizes one pipeline instead.
type Schema struct {
	// OwnerScoped toggles per-account record isolation. When false the store
	// has no owner column and every operation acts on the single implicit
	// owner.
	OwnerScoped bool

	// HasCountry toggles the purchase_country column.
	HasCountry bool
}

// DefaultSchema is the superset variant: multi-tenant with purchase country.
func DefaultSchema() Schema {
	return Schema{OwnerScoped: true, HasCountry: true}
}

// ExpectedColumns returns the canonical fields every normalized batch must
// carry under this schema, in storage column order. AddedAt is not listed:
// it is synthesized by the sanitizer when absent.
func (s Schema) ExpectedColumns() []string {
	cols := []string{
		FieldTitle,
		FieldAuthorFirstName,
		FieldAuthorLastName,
		FieldGenre,
		FieldPrice,
		FieldPageCount,
		FieldBinding,
		FieldEdition,
		FieldISBN,
		FieldSeriesNumber,
		FieldPublisher,
		FieldSeries,
		FieldCondition,
		FieldLanguage,
		FieldSigned,
		FieldReadStatus,
	}
	if s.HasCountry {
		cols = append(cols, FieldPurchaseCountry)
	}
	return cols
}
