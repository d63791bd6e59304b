package exporter

import (
	"bytes"
	"testing"
	"time"

	"bookshelf/internal/catalog"
	csvparser "bookshelf/internal/parser/csv"
	"bookshelf/internal/textenc"
)

func TestWriteCSVHasBOM(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, catalog.DefaultSchema()); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("output missing UTF-8 BOM")
	}
}

// An exported file must come back through the full import path unchanged.
func TestRoundTrip(t *testing.T) {
	t.Parallel()
	schema := catalog.DefaultSchema()
	orig := []catalog.Book{
		{
			Title: "Café Europa", AuthorFirstName: "Slavenka", AuthorLastName: "Drakulić",
			Genre: "Essays", Price: 12.99, PageCount: 213, ISBN: "9780140277722",
			Language: "English", ReadStatus: "yes", AddedAt: "2024-03-01 12:00:00",
		},
		{
			Title: "Dune", AuthorLastName: "Herbert", Genre: "SF",
			Price: 9.5, PageCount: 412, SeriesNumber: 1,
			AddedAt: "2024-03-01 12:00:00",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, orig, schema); err != nil {
		t.Fatal(err)
	}

	text, encoding, err := textenc.Resolve(buf.Bytes())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if encoding != textenc.EncodingUTF8Sig {
		t.Errorf("encoding = %q, want %q", encoding, textenc.EncodingUTF8Sig)
	}

	header, rows, err := csvparser.ReadRecords(text, csvparser.DetectDelimiter(text))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	canon, err := catalog.NormalizeColumns(header)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	books, substituted := catalog.BuildBooks(canon, rows, time.Now(), schema)
	if substituted != 0 {
		t.Errorf("round trip substituted %d values", substituted)
	}
	if len(books) != len(orig) {
		t.Fatalf("round trip produced %d books, want %d", len(books), len(orig))
	}
	for i := range orig {
		if books[i] != orig[i] {
			t.Errorf("book %d changed: %+v vs %+v", i, books[i], orig[i])
		}
	}
}
