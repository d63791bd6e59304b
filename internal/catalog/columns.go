package catalog

import (
	"fmt"
	"strings"
)

// MissingColumnError reports a required column absent from the input after
// normalization. The import aborts before any data row is parsed.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("catalog: required column %q missing from input", e.Column)
}

// columnSynonyms maps known header spellings to canonical field names. The
// table is bilingual (the original exports carry Dutch headers) and lists
// differently-cased and differently-punctuated variants explicitly because
// the first lookup is case-sensitive.
var columnSynonyms = map[string]string{
	"Titel": FieldTitle,
	"titel": FieldTitle,
	"Title": FieldTitle,
	"title": FieldTitle,

	"Auteur voornaam":   FieldAuthorFirstName,
	"Auteur_voornaam":   FieldAuthorFirstName,
	"auteur voornaam":   FieldAuthorFirstName,
	"auteur_voornaam":   FieldAuthorFirstName,
	"Author first name": FieldAuthorFirstName,
	"author_first_name": FieldAuthorFirstName,

	"Auteur achternaam": FieldAuthorLastName,
	"Auteur_achternaam": FieldAuthorLastName,
	"auteur achternaam": FieldAuthorLastName,
	"auteur_achternaam": FieldAuthorLastName,
	"Author last name":  FieldAuthorLastName,
	"author_last_name":  FieldAuthorLastName,

	"Genre": FieldGenre,
	"genre": FieldGenre,

	"Prijs": FieldPrice,
	"prijs": FieldPrice,
	"Price": FieldPrice,
	"price": FieldPrice,

	"Pagina's":   FieldPageCount,
	"pagina's":   FieldPageCount,
	"paginas":    FieldPageCount,
	"Pages":      FieldPageCount,
	"pages":      FieldPageCount,
	"page_count": FieldPageCount,

	"Bindwijze": FieldBinding,
	"bindwijze": FieldBinding,
	"Binding":   FieldBinding,
	"binding":   FieldBinding,

	"Edition": FieldEdition,
	"edition": FieldEdition,
	"Editie":  FieldEdition,
	"editie":  FieldEdition,

	"ISBN": FieldISBN,
	"isbn": FieldISBN,
	"Isbn": FieldISBN,

	"Reeks nr":      FieldSeriesNumber,
	"Reeks_nr":      FieldSeriesNumber,
	"reeks nr":      FieldSeriesNumber,
	"reeks_nr":      FieldSeriesNumber,
	"Series number": FieldSeriesNumber,
	"series_number": FieldSeriesNumber,

	"Uitgeverij": FieldPublisher,
	"uitgeverij": FieldPublisher,
	"Publisher":  FieldPublisher,
	"publisher":  FieldPublisher,

	"Serie":  FieldSeries,
	"serie":  FieldSeries,
	"Series": FieldSeries,
	"series": FieldSeries,

	"Staat":     FieldCondition,
	"staat":     FieldCondition,
	"Condition": FieldCondition,
	"condition": FieldCondition,

	"Taal":     FieldLanguage,
	"taal":     FieldLanguage,
	"Language": FieldLanguage,
	"language": FieldLanguage,

	"Gesigneerd": FieldSigned,
	"gesigneerd": FieldSigned,
	"Signed":     FieldSigned,
	"signed":     FieldSigned,

	"Gelezen":     FieldReadStatus,
	"gelezen":     FieldReadStatus,
	"Read":        FieldReadStatus,
	"read":        FieldReadStatus,
	"read_status": FieldReadStatus,

	"Land":             FieldPurchaseCountry,
	"land":             FieldPurchaseCountry,
	"Aankoopland":      FieldPurchaseCountry,
	"aankoopland":      FieldPurchaseCountry,
	"Country":          FieldPurchaseCountry,
	"country":          FieldPurchaseCountry,
	"purchase_country": FieldPurchaseCountry,

	"Toegevoegd": FieldAddedAt,
	"toegevoegd": FieldAddedAt,
	"Added date": FieldAddedAt,
	"added_date": FieldAddedAt,
	"added_at":   FieldAddedAt,
}

// NormalizeColumns maps raw CSV headers to canonical field names.
//
// Each header is cleaned (leading BOM artifact removed, surrounding
// whitespace trimmed) and looked up case-sensitively in the synonym table.
// Headers not in the table are lower-cased and passed through as their own
// canonical name: unknown columns survive, they are just never required and
// never persisted.
//
// Returns a *MissingColumnError when no header maps to the title field; in
// that case the whole import must abort before any write.
func NormalizeColumns(headers []string) ([]string, error) {
	canon := make([]string, len(headers))
	hasTitle := false

	for i, h := range headers {
		h = strings.ReplaceAll(h, "\uFEFF", "")
		h = strings.TrimSpace(h)

		if mapped, ok := columnSynonyms[h]; ok {
			canon[i] = mapped
		} else {
			canon[i] = strings.ToLower(h)
		}
		if canon[i] == FieldTitle {
			hasTitle = true
		}
	}

	if !hasTitle {
		return nil, &MissingColumnError{Column: FieldTitle}
	}
	return canon, nil
}
