package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/gradefactory/internal/orchestrator"
)

func sampleResult() *orchestrator.GradingResult {
	return &orchestrator.GradingResult{
		GraderA: orchestrator.Evaluation{Role: orchestrator.RoleGraderA, Text: "**Score: 7/10** from A"},
		GraderB: orchestrator.Evaluation{Role: orchestrator.RoleGraderB, Text: "Score: 8/10 from B"},
		Final:   orchestrator.Evaluation{Role: orchestrator.RoleModerator, Text: "Final score: 7.5/10"},
	}
}

func TestCompose_Order(t *testing.T) {
	got := Compose(sampleResult(), false)

	a := strings.Index(got, "--- Agent 1 Evaluation ---")
	b := strings.Index(got, "--- Agent 2 Evaluation ---")
	m := strings.Index(got, "--- Final Moderator Evaluation ---")
	if a < 0 || b < 0 || m < 0 {
		t.Fatalf("missing section header in %q", got)
	}
	if !(a < b && b < m) {
		t.Errorf("sections out of order: %d %d %d", a, b, m)
	}
	if !strings.Contains(got, "**Score: 7/10** from A") {
		t.Error("expected grader A text verbatim")
	}
	if !strings.Contains(got, "--- End of Final Moderator Evaluation ---") {
		t.Error("expected closing marker for moderator section")
	}
}

func TestCompose_Plain(t *testing.T) {
	got := Compose(sampleResult(), true)
	if strings.Contains(got, "**") {
		t.Errorf("expected markdown to be flattened, got %q", got)
	}
	if !strings.Contains(got, "Score: 7/10 from A") {
		t.Errorf("expected score text to survive, got %q", got)
	}
}

func TestTransliterate(t *testing.T) {
	got, replaced := Transliterate("café — naïve “quote” Ő 日")

	want := "caf\xe9 - na\xefve \"quote\" O ?"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if replaced != 1 {
		t.Errorf("expected 1 replacement, got %d", replaced)
	}
}

func TestTransliterate_ASCII(t *testing.T) {
	in := "Total: 14/20\nGood work."
	got, replaced := Transliterate(in)
	if got != in || replaced != 0 {
		t.Errorf("expected ASCII untouched, got %q (%d)", got, replaced)
	}
}

func TestPDFWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "essay.pdf")

	stats, err := NewPDFWriter().Write(Compose(sampleResult(), false)+"\n日本", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Replaced != 2 {
		t.Errorf("expected 2 replacements, got %d", stats.Replaced)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("expected PDF header, got %q", data[:min(len(data), 8)])
	}
}

func TestTextWriter_Lossless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	text := "Оцінка: 9/10 —日本"

	stats, err := (&TextWriter{}).Write(text, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Replaced != 0 {
		t.Errorf("expected no replacements, got %d", stats.Replaced)
	}
	data, _ := os.ReadFile(path)
	if string(data) != text {
		t.Errorf("expected %q, got %q", text, data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left, got %d entries", len(entries))
	}
}

func TestNewWriter(t *testing.T) {
	for format, ext := range map[string]string{"pdf": ".pdf", "": ".pdf", "TXT": ".txt"} {
		w, err := NewWriter(format)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", format, err)
		}
		if w.Ext() != ext {
			t.Errorf("%q: expected %s, got %s", format, ext, w.Ext())
		}
	}
	if _, err := NewWriter("docx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
