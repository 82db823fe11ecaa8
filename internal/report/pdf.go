package report

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PDFWriter renders text with a core PDF font. Core fonts only cover
// ISO-8859-1, so text is transliterated first and the loss is reported in
// Stats.
type PDFWriter struct {
	FontFamily string
	FontSize   float64
	LineHeight float64
}

func NewPDFWriter() *PDFWriter {
	return &PDFWriter{FontFamily: "Arial", FontSize: 12, LineHeight: 6}
}

func (w *PDFWriter) Ext() string { return ".pdf" }

func (w *PDFWriter) Write(text, path string) (Stats, error) {
	latin, replaced := Transliterate(text)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(w.FontFamily, "", w.FontSize)
	pdf.MultiCell(0, w.LineHeight, latin, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Stats{}, fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return Stats{}, err
	}
	return Stats{Replaced: replaced}, nil
}

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", "\"", "”", "\"", "„", "\"", "‟", "\"",
	"–", "-", "—", "-", "―", "-", "−", "-",
	"…", "...", "•", "*", "‣", "*", "⁃", "-",
	"\u00a0", " ", "\u2009", " ", "\u200a", " ", "\u202f", " ",
	"\u200b", "", "\ufeff", "",
	"←", "<-", "→", "->", "≤", "<=", "≥", ">=", "≠", "!=",
	"✓", "v", "✔", "v", "✗", "x", "✘", "x",
)

// Transliterate converts text into an ISO-8859-1 byte string. Typographic
// punctuation becomes its ASCII form, letters with diacritics outside
// Latin-1 lose the diacritic, and anything else becomes '?'. It returns the
// encoded text and the number of '?' replacements.
func Transliterate(text string) (string, int) {
	text = typographic.Replace(norm.NFC.String(text))

	var out []byte
	replaced := 0
	for _, r := range text {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		if folded, ok := fold(r); ok {
			out = append(out, folded...)
			continue
		}
		out = append(out, '?')
		replaced++
	}
	return string(out), replaced
}

// fold strips combining marks from the compatibility decomposition of r and
// returns the result if it is fully Latin-1.
func fold(r rune) ([]byte, bool) {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(t, string(r))
	if err != nil || s == "" {
		return nil, false
	}
	var out []byte
	for _, c := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(c)
		if !ok {
			return nil, false
		}
		out = append(out, b)
	}
	return out, true
}
