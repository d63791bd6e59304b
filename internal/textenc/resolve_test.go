package textenc

import (
	"strings"
	"testing"
)

func TestResolve_UTF8WithBOM(t *testing.T) {
	t.Parallel()

	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Titel,Prijs\nDune,\"12,99\"\n")...)

	text, enc, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if enc != EncodingUTF8Sig {
		t.Fatalf("encoding = %q, want %q", enc, EncodingUTF8Sig)
	}
	if strings.HasPrefix(text, "\uFEFF") {
		t.Fatalf("BOM not stripped: %q", text[:6])
	}
	if !strings.HasPrefix(text, "Titel,") {
		t.Fatalf("unexpected text prefix: %q", text[:6])
	}
}

func TestResolve_PlainUTF8(t *testing.T) {
	t.Parallel()

	text, enc, err := Resolve([]byte("titel\nCafé\n"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if enc != EncodingUTF8Sig {
		t.Fatalf("encoding = %q, want %q", enc, EncodingUTF8Sig)
	}
	if !strings.Contains(text, "Café") {
		t.Fatalf("text mangled: %q", text)
	}
}

func TestResolve_Windows1252FallsBackToLatin1(t *testing.T) {
	t.Parallel()

	// "é" as the single byte 0xE9 is invalid UTF-8 but decodes identically
	// under ISO-8859-1 and Windows-1252. Latin-1 wins by candidate order.
	raw := []byte{'C', 'a', 'f', 0xE9}

	text, enc, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if enc != EncodingLatin1 {
		t.Fatalf("encoding = %q, want %q", enc, EncodingLatin1)
	}
	if text != "Café" {
		t.Fatalf("text = %q, want %q", text, "Café")
	}
}

func TestResolve_NeverErrorsOnArbitraryBytes(t *testing.T) {
	t.Parallel()

	// Latin-1 maps every byte value, so any byte soup resolves.
	raw := []byte{0x00, 0xFF, 0x81, 0x9D, 0xFE}
	if _, _, err := Resolve(raw); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestResolve_BOMWithInvalidTailIsLatin1(t *testing.T) {
	t.Parallel()

	raw := append([]byte{0xEF, 0xBB, 0xBF}, 0xE9)
	_, enc, err := Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if enc != EncodingLatin1 {
		t.Fatalf("encoding = %q, want %q", enc, EncodingLatin1)
	}
}
