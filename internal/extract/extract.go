// Package extract pulls plain text out of PDF documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction matches every error returned by Extract.
var ErrExtraction = errors.New("text extraction failed")

// NotFoundError is returned when the document does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrExtraction }

// ReadError is returned when the document exists but cannot be parsed.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading PDF file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrExtraction }

// PDFExtractor reads text page by page.
type PDFExtractor struct{}

func New() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the concatenated text of every page of the PDF at path.
func (x *PDFExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return "", &NotFoundError{Path: path}
		}
		return "", &ReadError{Path: path, Err: statErr}
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ReadError{Path: path, Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return "", &ReadError{Path: path, Err: openErr}
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", &ReadError{Path: path, Err: err}
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			return "", &ReadError{Path: path, Err: fmt.Errorf("page %d: %w", i, pageErr)}
		}
		sb.WriteString(pageText)
		if !strings.HasSuffix(pageText, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
