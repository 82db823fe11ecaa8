// Package batch grades every paper of an input folder.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/gradefactory/internal"
	"github.com/valpere/gradefactory/internal/orchestrator"
	"github.com/valpere/gradefactory/internal/report"
	"github.com/valpere/gradefactory/internal/rubric"
	"github.com/valpere/gradefactory/internal/store"
)

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Evaluator grades one paper. Signature names the backends, models and
// temperatures behind Evaluate and is part of the history key.
type Evaluator interface {
	Evaluate(ctx context.Context, spec *rubric.Spec, paper string) (*orchestrator.GradingResult, error)
	Signature() string
}

// History records finished papers and serves earlier results. *store.Store
// implements it.
type History interface {
	StartRun(ctx context.Context, run *internal.GradingRun) error
	FinishRun(ctx context.Context, run *internal.GradingRun) error
	Lookup(ctx context.Context, key string) (*store.PaperResult, bool, error)
	SaveResult(ctx context.Context, r *store.PaperResult) error
	SaveFailure(ctx context.Context, runID, paper string, cause error) error
}

type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Runner wires the per-paper pipeline. History and Sink are optional.
type Runner struct {
	Extractor Extractor
	Evaluator Evaluator
	Writer    report.Writer
	History   History
	Sink      Uploader
	Out       io.Writer
	Err       io.Writer

	mu sync.Mutex
}

type Options struct {
	InputDir  string
	OutputDir string
	Rubric    *rubric.Spec
	// Format selects the writer when Runner.Writer is nil.
	Format      string
	Plain       bool
	Concurrency int
	Force       bool
}

var ErrSameFolder = errors.New("input folder and output folder cannot be the same")

type Summary struct {
	RunID    string
	Total    int
	Graded   int
	Cached   int
	Failed   int
	Failures map[string]error
}

// Run grades every *.pdf in opts.InputDir. A failing paper is reported and
// skipped; the returned error covers only run-level problems such as a
// missing input folder or cancellation.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.Err == nil {
		r.Err = io.Discard
	}
	if opts.Rubric == nil {
		return nil, errors.New("rubric is required")
	}
	if r.Writer == nil {
		w, err := report.NewWriter(opts.Format)
		if err != nil {
			return nil, err
		}
		r.Writer = w
	}

	info, err := os.Stat(opts.InputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("input folder not found: %s", opts.InputDir)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}
	// Compared by identity so relative, dotted and symlinked spellings of
	// the input folder are all caught.
	outInfo, err := os.Stat(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output folder: %w", err)
	}
	if os.SameFile(info, outInfo) {
		return nil, ErrSameFolder
	}

	papers, err := listPapers(opts.InputDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(r.Out, "--- Starting Grading Process ---")

	summary := &Summary{Total: len(papers), Failures: make(map[string]error)}
	run := &internal.GradingRun{
		InputDir:   opts.InputDir,
		OutputDir:  opts.OutputDir,
		Backends:   r.Evaluator.Signature(),
		RubricHash: opts.Rubric.Fingerprint(),
		Total:      len(papers),
	}
	history := r.History
	if history != nil {
		if err := history.StartRun(ctx, run); err != nil {
			fmt.Fprintf(r.Err, "Warning: grading history disabled: %v\n", err)
			history = nil
		} else {
			summary.RunID = run.ID
		}
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for _, name := range papers {
		g.Go(func() error {
			cached, err := r.gradePaper(ctx, history, run, name, opts)

			r.mu.Lock()
			defer r.mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Failures[name] = err
			case cached:
				summary.Cached++
			default:
				summary.Graded++
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintln(r.Out, "\n--- Grading Process Complete ---")
	fmt.Fprintf(r.Out, "Papers: %d, graded: %d, from history: %d, failed: %d\n",
		summary.Total, summary.Graded, summary.Cached, summary.Failed)

	if history != nil {
		run.Graded, run.Cached, run.Failed = summary.Graded, summary.Cached, summary.Failed
		if err := history.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			fmt.Fprintf(r.Err, "Warning: failed to record run: %v\n", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("grading interrupted: %w", err)
	}
	return summary, nil
}

func (r *Runner) gradePaper(ctx context.Context, history History, run *internal.GradingRun, name string, opts Options) (cached bool, err error) {
	paperPath := filepath.Join(opts.InputDir, name)
	outputPath := filepath.Join(opts.OutputDir, strings.TrimSuffix(name, filepath.Ext(name))+r.Writer.Ext())

	r.printf(r.Out, "\nGrading %s...\n", paperPath)

	defer func() {
		if err == nil {
			return
		}
		r.printf(r.Err, "Error evaluating %s: %v\n", paperPath, err)
		if history != nil {
			if herr := history.SaveFailure(context.WithoutCancel(ctx), run.ID, name, err); herr != nil {
				r.printf(r.Err, "Warning: failed to record failure: %v\n", herr)
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	text, err := r.Extractor.Extract(ctx, paperPath)
	if err != nil {
		return false, err
	}

	key := store.CacheKey(text, run.RubricHash, run.Backends)
	var result *orchestrator.GradingResult
	if history != nil && !opts.Force {
		prev, found, lerr := history.Lookup(ctx, key)
		if lerr != nil {
			r.printf(r.Err, "Warning: history lookup failed for %s: %v\n", name, lerr)
		} else if found {
			r.printf(r.Err, "Using stored evaluation for %s\n", name)
			result = &prev.Result
			cached = true
		}
	}
	if result == nil {
		result, err = r.Evaluator.Evaluate(ctx, opts.Rubric, text)
		if err != nil {
			return false, err
		}
	}

	stats, err := r.Writer.Write(report.Compose(result, opts.Plain), outputPath)
	if err != nil {
		return false, err
	}
	if stats.Replaced > 0 {
		r.printf(r.Err, "Warning: %d character(s) in %s could not be represented in the PDF font and were replaced with '?'; use --format txt for lossless output\n",
			stats.Replaced, filepath.Base(outputPath))
	}
	r.printf(r.Out, "  - Saved evaluation to %s\n", outputPath)

	if history != nil {
		rec := &store.PaperResult{
			RunID:      run.ID,
			Paper:      name,
			CacheKey:   key,
			OutputPath: outputPath,
			Cached:     cached,
			Result:     *result,
		}
		if herr := history.SaveResult(context.WithoutCancel(ctx), rec); herr != nil {
			r.printf(r.Err, "Warning: failed to record result for %s: %v\n", name, herr)
		}
	}

	if r.Sink != nil {
		ref, err := r.Sink.Upload(ctx, outputPath)
		if err != nil {
			return cached, err
		}
		r.printf(r.Out, "  - Uploaded to %s\n", ref)
	}

	return cached, nil
}

func (r *Runner) printf(w io.Writer, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

// listPapers returns the *.pdf file names of dir (case-insensitive) in
// lexical order.
func listPapers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
