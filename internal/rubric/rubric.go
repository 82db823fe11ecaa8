// Package rubric loads grading criteria from PDF or JSON files.
package rubric

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Spec is the grading criteria for a batch: rubric text, optionally paired
// with the question and its model answers.
type Spec struct {
	Text           string   `json:"rubric"`
	Question       string   `json:"question,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
}

// Fingerprint returns a stable hash of the rubric contents, used to key the
// grading history.
func (s *Spec) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Text))
	h.Write([]byte{0})
	h.Write([]byte(s.Question))
	for _, a := range s.CorrectAnswers {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TextExtractor pulls plain text out of a PDF file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// UnsupportedFormatError is returned for a rubric file that is neither
// .pdf nor .json.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported rubric file format %q (%s): use a .pdf or .json file", e.Ext, e.Path)
}

// ParseError is returned for malformed or empty rubric files.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid rubric file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when the rubric file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rubric file not found: %s", e.Path)
}

var errEmptyRubric = errors.New("rubric text is empty")

// Load resolves the rubric at path. The extension decides the format and is
// checked before any file I/O.
func Load(ctx context.Context, path string, ext TextExtractor) (*Spec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(ctx, path, ext)
	case ".json":
		return loadJSON(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: filepath.Ext(path)}
	}
}

func loadPDF(ctx context.Context, path string, ext TextExtractor) (*Spec, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Path: path}
	}
	text, err := ext.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Path: path, Err: errEmptyRubric}
	}
	return &Spec{Text: text}, nil
}

func loadJSON(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric: %w", err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	spec.Text = strings.TrimSpace(spec.Text)
	spec.Question = strings.TrimSpace(spec.Question)
	if spec.Text == "" {
		return nil, &ParseError{Path: path, Err: errEmptyRubric}
	}

	answers := spec.CorrectAnswers[:0]
	for _, a := range spec.CorrectAnswers {
		if a = strings.TrimSpace(a); a != "" {
			answers = append(answers, a)
		}
	}
	if len(answers) == 0 {
		answers = nil
	}
	spec.CorrectAnswers = answers

	return &spec, nil
}
