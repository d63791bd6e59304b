package csv

import (
	"reflect"
	"testing"
)

func TestDetectDelimiter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want rune
	}{
		{"comma", "Titel,Prijs,Pagina's\nDune,12,412\n", ','},
		{"semicolon", "Titel;Prijs;Pagina's\nDune;12,99;412\n", ';'},
		{"tab", "Titel\tPrijs\nDune\t12\n", '\t'},
		{"pipe", "Titel|Prijs\nDune|12\n", '|'},
		{"quoted commas ignored", `Titel;"Prijs, in euro";Genre` + "\n", ';'},
		{"single column defaults to comma", "Titel\nDune\n", ','},
		{"leading blank lines", "\n\nTitel;Prijs\n", ';'},
		{"empty", "", ','},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectDelimiter(tc.in); got != tc.want {
				t.Fatalf("DetectDelimiter = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReadRecords(t *testing.T) {
	t.Parallel()

	header, rows, err := ReadRecords("Titel;Prijs\n Dune ;\"12,99\"\n1984;8,50\n", ';')
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if !reflect.DeepEqual(header, []string{"Titel", "Prijs"}) {
		t.Fatalf("header = %v", header)
	}
	want := [][]string{{"Dune", "12,99"}, {"1984", "8,50"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestReadRecords_RaggedRowsSurvive(t *testing.T) {
	t.Parallel()

	header, rows, err := ReadRecords("a,b,c\n1,2\n1,2,3,4\n", ',')
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(header) != 3 {
		t.Fatalf("header = %v", header)
	}
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 4 {
		t.Fatalf("rows = %v", rows)
	}
}

func TestReadRecords_Empty(t *testing.T) {
	t.Parallel()

	header, rows, err := ReadRecords("", ',')
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if header != nil || rows != nil {
		t.Fatalf("expected empty result, got header=%v rows=%v", header, rows)
	}
}
