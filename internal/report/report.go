// Package report renders a GradingResult into the output artifact of a paper.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/gradefactory/internal/markdown"
	"github.com/valpere/gradefactory/internal/orchestrator"
)

// Stats describes what a writer had to change to fit the output format.
type Stats struct {
	// Replaced counts characters that could not be represented and were
	// written as '?'.
	Replaced int
}

// Writer persists the composed evaluation text at path.
type Writer interface {
	Write(text, path string) (Stats, error)
	// Ext is the file extension the writer produces, including the dot.
	Ext() string
}

// NewWriter returns the writer for format ("pdf" or "txt").
func NewWriter(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "pdf":
		return NewPDFWriter(), nil
	case "txt", "text":
		return &TextWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use pdf or txt)", format)
	}
}

// Compose lays out the three evaluations in grader A, grader B, moderator
// order. With plain set, markdown markup is flattened first.
func Compose(res *orchestrator.GradingResult, plain bool) string {
	text := func(s string) string {
		if plain {
			return markdown.ToPlainText(s)
		}
		return s
	}

	var sb strings.Builder
	writeSection(&sb, "Agent 1 Evaluation", text(res.GraderA.Text))
	sb.WriteString("\n")
	writeSection(&sb, "Agent 2 Evaluation", text(res.GraderB.Text))
	sb.WriteString("\n")
	writeSection(&sb, "Final Moderator Evaluation", text(res.Final.Text))
	return sb.String()
}

func writeSection(sb *strings.Builder, title, body string) {
	fmt.Fprintf(sb, "--- %s ---\n%s\n--- End of %s ---\n", title, body, title)
}

// TextWriter writes lossless UTF-8 text.
type TextWriter struct{}

func (w *TextWriter) Ext() string { return ".txt" }

func (w *TextWriter) Write(text, path string) (Stats, error) {
	return Stats{}, writeFileAtomic(path, []byte(text))
}

// writeFileAtomic writes through a temporary file so a failed write never
// leaves a partial artifact behind.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
