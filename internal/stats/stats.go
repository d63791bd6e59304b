// Package stats computes chart aggregates and collection facts over an
// owner's books. Everything is computed in memory; callers fetch the slice
// once via the repository and hand it over.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"bookshelf/internal/catalog"
)

// Chart is a label/value series shaped for pie and bar chart consumers.
type Chart struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Report bundles every chart the collection page renders. Charts with no
// underlying data have empty Labels.
type Report struct {
	Genres          Chart `json:"genres"`
	ReadStatus      Chart `json:"read_status"`
	Languages       Chart `json:"languages"`
	Pages           Chart `json:"pages"`
	TopAuthors      Chart `json:"top_authors"`
	AvgPriceByGenre Chart `json:"avg_price_by_genre"`
	Countries       Chart `json:"countries"`
}

const (
	pageBins   = 20
	authorTopN = 10
)

// Collect builds the chart report for one owner's books. Countries is only
// populated when the schema carries a purchase country column.
func Collect(books []catalog.Book, schema catalog.Schema) Report {
	var r Report
	if len(books) == 0 {
		return r
	}

	r.Genres = countValues(books, func(b catalog.Book) string { return b.Genre }, false, 0)
	r.ReadStatus = countValues(books, func(b catalog.Book) string { return b.ReadStatus }, false, 0)
	r.Languages = countValues(books, func(b catalog.Book) string { return b.Language }, false, 0)
	r.Pages = pageHistogram(books)
	r.TopAuthors = countValues(books, fullAuthor, true, authorTopN)
	r.AvgPriceByGenre = avgPriceByGenre(books)
	if schema.HasCountry {
		r.Countries = countValues(books, func(b catalog.Book) string { return b.PurchaseCountry }, true, 0)
	}
	return r
}

// FunFacts returns human-readable one-liners about the collection. Empty
// input yields no facts at all, not even the total.
func FunFacts(books []catalog.Book) []string {
	if len(books) == 0 {
		return nil
	}
	var facts []string

	thickest := books[0]
	priciest := books[0]
	languages := map[string]struct{}{}
	for _, b := range books {
		if b.PageCount > thickest.PageCount {
			thickest = b
		}
		if b.Price > priciest.Price {
			priciest = b
		}
		if b.Language != "" {
			languages[b.Language] = struct{}{}
		}
	}

	facts = append(facts, fmt.Sprintf("Your thickest book is '%s' with %d pages.", thickest.Title, thickest.PageCount))
	facts = append(facts, fmt.Sprintf("The most expensive book is '%s' at €%g.", priciest.Title, round2(priciest.Price)))
	if len(languages) > 1 {
		facts = append(facts, fmt.Sprintf("You have books in %d different languages!", len(languages)))
	}
	facts = append(facts, fmt.Sprintf("Total number of books in your collection: %d.", len(books)))
	return facts
}

// countValues tallies key(b) over the books, most frequent first (ties break
// alphabetically so output is stable). skipEmpty drops blank keys; topN > 0
// truncates the series.
func countValues(books []catalog.Book, key func(catalog.Book) string, skipEmpty bool, topN int) Chart {
	counts := map[string]int{}
	for _, b := range books {
		k := key(b)
		if skipEmpty && k == "" {
			continue
		}
		counts[k]++
	}

	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if topN > 0 && len(labels) > topN {
		labels = labels[:topN]
	}

	c := Chart{Labels: labels, Data: make([]float64, len(labels))}
	for i, l := range labels {
		c.Data[i] = float64(counts[l])
	}
	return c
}

// pageHistogram buckets page counts into pageBins equal-width ranges across
// the observed min..max.
func pageHistogram(books []catalog.Book) Chart {
	min, max := books[0].PageCount, books[0].PageCount
	for _, b := range books {
		if b.PageCount < min {
			min = b.PageCount
		}
		if b.PageCount > max {
			max = b.PageCount
		}
	}

	if min == max {
		return Chart{
			Labels: []string{fmt.Sprintf("%d-%d", min, max)},
			Data:   []float64{float64(len(books))},
		}
	}

	width := float64(max-min) / pageBins
	c := Chart{Labels: make([]string, pageBins), Data: make([]float64, pageBins)}
	for i := 0; i < pageBins; i++ {
		left := float64(min) + float64(i)*width
		right := float64(min) + float64(i+1)*width
		c.Labels[i] = fmt.Sprintf("%d-%d", int(left), int(right))
	}
	for _, b := range books {
		idx := int(float64(b.PageCount-min) / width)
		if idx >= pageBins {
			idx = pageBins - 1
		}
		c.Data[idx]++
	}
	return c
}

// avgPriceByGenre averages price per genre, genres in alphabetical order,
// values rounded to cents.
func avgPriceByGenre(books []catalog.Book) Chart {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, b := range books {
		sums[b.Genre] += b.Price
		counts[b.Genre]++
	}

	labels := make([]string, 0, len(sums))
	for g := range sums {
		labels = append(labels, g)
	}
	sort.Strings(labels)

	c := Chart{Labels: labels, Data: make([]float64, len(labels))}
	for i, g := range labels {
		c.Data[i] = round2(sums[g] / float64(counts[g]))
	}
	return c
}

func fullAuthor(b catalog.Book) string {
	return strings.TrimSpace(b.AuthorFirstName + " " + b.AuthorLastName)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
