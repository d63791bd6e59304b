// Package textenc resolves the text encoding of uploaded catalog files.
//
// Human-exported CSV files arrive in whatever encoding the spreadsheet tool
// of the day produced. Rather than guessing statistically, Resolve tries a
// fixed candidate list in priority order and accepts the first encoding that
// decodes the bytes without error. Decodability is the only criterion; no
// semantic validation is attempted.
package textenc

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Candidate encoding names, in resolution order.
const (
	EncodingUTF8Sig     = "utf-8-sig"
	EncodingLatin1      = "iso-8859-1"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingError reports that no candidate encoding decoded the input.
type EncodingError struct {
	Tried []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("textenc: no suitable encoding found (tried %v)", e.Tried)
}

// Resolve decodes raw into a UTF-8 string and reports which candidate
// encoding was used.
//
// Candidates are tried in a fixed order: UTF-8 (with optional BOM, which is
// stripped), ISO-8859-1, Windows-1252.
//
// IMPORTANT: ISO-8859-1 assigns a code point to every byte value, so it never
// fails and acts as a safety net: Resolve can only return an error on an
// internal decoder failure, and Windows-1252 is effectively unreachable. This
// is intentional and mirrors how the import has always behaved, but it also
// means a file that is *not* valid UTF-8 is silently read as Latin-1 even
// when that was not the producer's encoding.
func Resolve(raw []byte) (string, string, error) {
	if trimmed, ok := bytes.CutPrefix(raw, utf8BOM); ok {
		if utf8.Valid(trimmed) {
			return string(trimmed), EncodingUTF8Sig, nil
		}
	} else if utf8.Valid(raw) {
		return string(raw), EncodingUTF8Sig, nil
	}

	tried := []string{EncodingUTF8Sig}
	for _, c := range []struct {
		name string
		cm   *charmap.Charmap
	}{
		{EncodingLatin1, charmap.ISO8859_1},
		{EncodingWindows1252, charmap.Windows1252},
	} {
		decoded, err := c.cm.NewDecoder().Bytes(raw)
		if err == nil {
			return string(decoded), c.name, nil
		}
		tried = append(tried, c.name)
	}

	return "", "", &EncodingError{Tried: tried}
}
