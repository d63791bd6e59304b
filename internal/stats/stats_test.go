package stats

import (
	"strings"
	"testing"

	"bookshelf/internal/catalog"
)

func sample() []catalog.Book {
	return []catalog.Book{
		{Title: "Dune", AuthorFirstName: "Frank", AuthorLastName: "Herbert", Genre: "SF", Price: 12.99, PageCount: 412, Language: "English", ReadStatus: "yes", PurchaseCountry: "US"},
		{Title: "Dune Messiah", AuthorFirstName: "Frank", AuthorLastName: "Herbert", Genre: "SF", Price: 9.50, PageCount: 256, Language: "English", ReadStatus: "no", PurchaseCountry: "US"},
		{Title: "Earthsea", AuthorFirstName: "Ursula", AuthorLastName: "Le Guin", Genre: "Fantasy", Price: 8.00, PageCount: 183, Language: "Dutch", ReadStatus: "yes", PurchaseCountry: ""},
	}
}

func TestCollectEmpty(t *testing.T) {
	t.Parallel()
	r := Collect(nil, catalog.DefaultSchema())
	if len(r.Genres.Labels) != 0 || len(r.Pages.Labels) != 0 {
		t.Errorf("empty input produced charts: %+v", r)
	}
}

func TestCollectGenres(t *testing.T) {
	t.Parallel()
	r := Collect(sample(), catalog.DefaultSchema())

	if len(r.Genres.Labels) != 2 {
		t.Fatalf("genre labels = %v", r.Genres.Labels)
	}
	// Most frequent first.
	if r.Genres.Labels[0] != "SF" || r.Genres.Data[0] != 2 {
		t.Errorf("genres = %v / %v", r.Genres.Labels, r.Genres.Data)
	}
}

func TestCollectTopAuthors(t *testing.T) {
	t.Parallel()
	r := Collect(sample(), catalog.DefaultSchema())

	if r.TopAuthors.Labels[0] != "Frank Herbert" || r.TopAuthors.Data[0] != 2 {
		t.Errorf("top authors = %v / %v", r.TopAuthors.Labels, r.TopAuthors.Data)
	}
}

func TestCollectAvgPrice(t *testing.T) {
	t.Parallel()
	r := Collect(sample(), catalog.DefaultSchema())

	// Alphabetical genre order, cent-rounded means.
	if r.AvgPriceByGenre.Labels[0] != "Fantasy" || r.AvgPriceByGenre.Data[0] != 8.00 {
		t.Errorf("avg price = %v / %v", r.AvgPriceByGenre.Labels, r.AvgPriceByGenre.Data)
	}
	if r.AvgPriceByGenre.Labels[1] != "SF" || r.AvgPriceByGenre.Data[1] != 11.25 {
		t.Errorf("avg price = %v / %v", r.AvgPriceByGenre.Labels, r.AvgPriceByGenre.Data)
	}
}

func TestCollectCountriesRespectSchema(t *testing.T) {
	t.Parallel()

	with := Collect(sample(), catalog.Schema{OwnerScoped: true, HasCountry: true})
	if len(with.Countries.Labels) != 1 || with.Countries.Labels[0] != "US" {
		t.Errorf("countries = %v, want blank values dropped", with.Countries.Labels)
	}

	without := Collect(sample(), catalog.Schema{OwnerScoped: true, HasCountry: false})
	if len(without.Countries.Labels) != 0 {
		t.Errorf("countries populated without country column: %v", without.Countries.Labels)
	}
}

func TestPageHistogram(t *testing.T) {
	t.Parallel()
	r := Collect(sample(), catalog.DefaultSchema())

	if len(r.Pages.Labels) != pageBins {
		t.Fatalf("bins = %d, want %d", len(r.Pages.Labels), pageBins)
	}
	var total float64
	for _, n := range r.Pages.Data {
		total += n
	}
	if total != 3 {
		t.Errorf("histogram total = %v, want 3", total)
	}
	// Max lands in the last bin.
	if r.Pages.Data[pageBins-1] != 1 {
		t.Errorf("last bin = %v, want 1", r.Pages.Data[pageBins-1])
	}
}

func TestPageHistogramUniform(t *testing.T) {
	t.Parallel()
	books := []catalog.Book{{PageCount: 200}, {PageCount: 200}}
	r := Collect(books, catalog.DefaultSchema())

	if len(r.Pages.Labels) != 1 || r.Pages.Labels[0] != "200-200" || r.Pages.Data[0] != 2 {
		t.Errorf("uniform histogram = %v / %v", r.Pages.Labels, r.Pages.Data)
	}
}

func TestFunFacts(t *testing.T) {
	t.Parallel()
	facts := FunFacts(sample())

	want := []string{
		"Your thickest book is 'Dune' with 412 pages.",
		"The most expensive book is 'Dune' at €12.99.",
		"You have books in 2 different languages!",
		"Total number of books in your collection: 3.",
	}
	if len(facts) != len(want) {
		t.Fatalf("facts = %v", facts)
	}
	for i := range want {
		if facts[i] != want[i] {
			t.Errorf("fact %d = %q, want %q", i, facts[i], want[i])
		}
	}
}

func TestFunFactsSingleLanguage(t *testing.T) {
	t.Parallel()
	facts := FunFacts([]catalog.Book{{Title: "Solo", Language: "English", PageCount: 100}})

	for _, f := range facts {
		if strings.Contains(f, "different languages") {
			t.Errorf("language fact present for single language: %q", f)
		}
	}
}

func TestFunFactsEmpty(t *testing.T) {
	t.Parallel()
	if facts := FunFacts(nil); facts != nil {
		t.Errorf("facts for empty collection = %v", facts)
	}
}
