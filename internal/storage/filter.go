package storage

import "bookshelf/internal/catalog"

// Filter describes a catalog search. Text fields are substring matches
// (LIKE '%v%'); nil numeric bounds are unconstrained. Empty strings mean
// "no constraint".
type Filter struct {
	Title           string
	AuthorFirstName string
	AuthorLastName  string
	Genre           string
	Publisher       string
	ISBN            string
	Series          string
	Condition       string
	Language        string
	Signed          string
	ReadStatus      string
	Binding         string
	Edition         string
	PurchaseCountry string

	SeriesNumber *int
	MinPrice     *float64
	MaxPrice     *float64
	MinPages     *int
	MaxPages     *int
}

// TextClauses returns (column, value) pairs for every non-empty text filter,
// in a fixed order so backends generate deterministic SQL.
func (f Filter) TextClauses(schema catalog.Schema) [][2]string {
	pairs := [][2]string{
		{catalog.FieldTitle, f.Title},
		{catalog.FieldAuthorFirstName, f.AuthorFirstName},
		{catalog.FieldAuthorLastName, f.AuthorLastName},
		{catalog.FieldGenre, f.Genre},
		{catalog.FieldPublisher, f.Publisher},
		{catalog.FieldISBN, f.ISBN},
		{catalog.FieldSeries, f.Series},
		{catalog.FieldCondition, f.Condition},
		{catalog.FieldLanguage, f.Language},
		{catalog.FieldSigned, f.Signed},
		{catalog.FieldReadStatus, f.ReadStatus},
		{catalog.FieldBinding, f.Binding},
		{catalog.FieldEdition, f.Edition},
	}
	if schema.HasCountry {
		pairs = append(pairs, [2]string{catalog.FieldPurchaseCountry, f.PurchaseCountry})
	}

	out := pairs[:0]
	for _, p := range pairs {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}
