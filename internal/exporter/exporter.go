// Package exporter writes a catalog back out as CSV. The header uses the
// canonical column names, so an exported file re-imports without any synonym
// mapping.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"bookshelf/internal/catalog"
	"bookshelf/internal/storage"
)

// utf8BOM prefixes the output so spreadsheet tools pick UTF-8 and the
// encoding resolver takes its BOM path on re-import.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the books as comma-separated UTF-8 with a byte-order mark.
func WriteCSV(w io.Writer, books []catalog.Book, schema catalog.Schema) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cols := storage.BookColumns(schema)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range books {
		row := make([]string, len(cols))
		for i, v := range storage.BookValues(schema, b) {
			row[i] = formatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
