package catalog

import (
	"strconv"
	"strings"
	"time"
)

// ParsePrice coerces a currency-formatted cell into a decimal. The euro sign
// is stripped and a comma decimal separator is converted to a dot before
// parsing. Unparseable or missing input yields 0. Negative values are not
// rejected; the reference behavior is to accept them silently.
func ParsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount coerces a cell into a non-fractional count. Plain integers are
// taken as-is; decimal notation ("412.0") is truncated, matching the loose
// numeric coercion of the original importer. Unparseable or missing input
// yields 0.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// BuildBooks turns normalized records into typed Book values.
//
// canon holds the canonical field name per column index (NormalizeColumns
// output). Fields absent from the input get their type-appropriate default,
// so every returned Book has the full fixed shape regardless of what the
// file carried. AddedAt is the one special case: when the input has no
// added_at column it is set to now in TimeFormat; when present the cell is
// passed through unchanged (preserving original timestamps on re-imports).
//
// The second return value counts cells that were non-empty but failed
// numeric coercion and were replaced by a default. Substitutions never fail
// the import; the count feeds metrics only.
func BuildBooks(canon []string, rows [][]string, now time.Time, schema Schema) ([]Book, int) {
	idx := make(map[string]int, len(canon))
	for i, name := range canon {
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	_, hasAddedAt := idx[FieldAddedAt]
	defaultAddedAt := now.Format(TimeFormat)

	cell := func(rec []string, field string) string {
		i, ok := idx[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	substituted := 0
	books := make([]Book, 0, len(rows))
	for _, rec := range rows {
		var b Book

		b.Title = cell(rec, FieldTitle)
		b.AuthorFirstName = cell(rec, FieldAuthorFirstName)
		b.AuthorLastName = cell(rec, FieldAuthorLastName)
		b.Genre = cell(rec, FieldGenre)
		b.Binding = cell(rec, FieldBinding)
		b.Edition = cell(rec, FieldEdition)
		b.ISBN = cell(rec, FieldISBN)
		b.Publisher = cell(rec, FieldPublisher)
		b.Series = cell(rec, FieldSeries)
		b.Condition = cell(rec, FieldCondition)
		b.Language = cell(rec, FieldLanguage)
		b.Signed = cell(rec, FieldSigned)
		b.ReadStatus = cell(rec, FieldReadStatus)
		if schema.HasCountry {
			b.PurchaseCountry = cell(rec, FieldPurchaseCountry)
		}

		var ok bool
		if b.Price, ok = ParsePrice(cell(rec, FieldPrice)); !ok {
			substituted++
		}
		if b.PageCount, ok = ParseCount(cell(rec, FieldPageCount)); !ok {
			substituted++
		}
		if b.SeriesNumber, ok = ParseCount(cell(rec, FieldSeriesNumber)); !ok {
			substituted++
		}

		if hasAddedAt {
			b.AddedAt = cell(rec, FieldAddedAt)
		} else {
			b.AddedAt = defaultAddedAt
		}

		books = append(books, b)
	}

	return books, substituted
}
