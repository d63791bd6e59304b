// Package csv reads decoded catalog uploads into header and data records.
//
// The delimiter is auto-detected from the header line rather than fixed to a
// comma: exports from Dutch-locale spreadsheet tools routinely use semicolons.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var candidateDelims = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the most plausible field delimiter by counting
// candidate runes outside quoted sections of the first non-empty line.
// Returns ',' when nothing else scores.
func DetectDelimiter(text string) rune {
	line := firstLine(text)

	counts := map[rune]int{}
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, d := range candidateDelims {
			if r == d {
				counts[d]++
			}
		}
	}

	best := ','
	bestCount := 0
	for _, d := range candidateDelims {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// ReadRecords parses decoded CSV text into a header row and data records.
//
// Reading is deliberately tolerant of human-produced input:
//   - records may have a field count different from the header
//   - quotes are lazy
//   - every cell is whitespace-trimmed
//
// Ragged records are returned as-is; downstream stages index into them
// defensively.
func ReadRecords(text string, delim rune) ([]string, [][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, rows, fmt.Errorf("csv read: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}

	return header, rows, nil
}
