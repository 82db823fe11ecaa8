// Package orchestrator runs the two-grader-plus-moderator evaluation of a
// single paper.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/gradefactory/internal/backend"
	"github.com/valpere/gradefactory/internal/prompt"
	"github.com/valpere/gradefactory/internal/rubric"
)

type Role string

const (
	RoleGraderA   Role = "grader-a"
	RoleGraderB   Role = "grader-b"
	RoleModerator Role = "moderator"

	// StagePrecondition marks failures detected before any call was made.
	StagePrecondition Role = "precondition"
)

// Evaluation is the text one backend call produced for a role.
type Evaluation struct {
	Role    Role          `json:"role"`
	Text    string        `json:"text"`
	Backend string        `json:"backend"`
	Model   string        `json:"model"`
	Latency time.Duration `json:"latency"`
}

// GradingResult holds the three evaluations of one paper. It is either
// complete or not returned at all.
type GradingResult struct {
	GraderA Evaluation `json:"grader_a"`
	GraderB Evaluation `json:"grader_b"`
	Final   Evaluation `json:"final"`
}

type Config struct {
	// Timeout bounds all three calls of one paper together.
	Timeout              time.Duration
	TemperatureA         float64
	TemperatureB         float64
	ModeratorTemperature float64
}

// DefaultConfig returns the conservative / exploratory / decisive
// temperature split.
func DefaultConfig() Config {
	return Config{
		Timeout:              5 * time.Minute,
		TemperatureA:         0.4,
		TemperatureB:         0.8,
		ModeratorTemperature: 0.7,
	}
}

var (
	ErrEmptyPaper      = errors.New("paper text is empty")
	ErrEmptyEvaluation = errors.New("backend returned an empty evaluation")
)

// Orchestrator is stateless after construction and safe for concurrent use.
type Orchestrator struct {
	graderA   backend.Backend
	graderB   backend.Backend
	moderator backend.Backend
	config    Config
}

// New wires the backends for the three roles. A nil graderB or moderator
// falls back to graderA.
func New(graderA, graderB, moderator backend.Backend, config Config) *Orchestrator {
	if graderB == nil {
		graderB = graderA
	}
	if moderator == nil {
		moderator = graderA
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Orchestrator{
		graderA:   graderA,
		graderB:   graderB,
		moderator: moderator,
		config:    config,
	}
}

// Signature identifies everything besides the rubric and the paper that
// shapes a result: backend, model and temperature of each role, e.g.
// "xai:grok-4@0.4/xai:grok-4@0.8/gemini:gemini-2.5-flash@0.7".
func (o *Orchestrator) Signature() string {
	roles := []struct {
		b    backend.Backend
		temp float64
	}{
		{o.graderA, o.config.TemperatureA},
		{o.graderB, o.config.TemperatureB},
		{o.moderator, o.config.ModeratorTemperature},
	}
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.b == nil {
			parts = append(parts, "none")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s@%s", r.b.Name(), r.b.Model(), strconv.FormatFloat(r.temp, 'g', -1, 64)))
	}
	return strings.Join(parts, "/")
}

// Validate checks configuration and credentials without any network I/O.
func (o *Orchestrator) Validate() error {
	if o.graderA == nil {
		return &ConfigurationError{Reason: "no backend configured"}
	}
	temps := map[string]float64{
		"grader A":  o.config.TemperatureA,
		"grader B":  o.config.TemperatureB,
		"moderator": o.config.ModeratorTemperature,
	}
	for who, t := range temps {
		if t < 0 || t > 1 {
			return &ConfigurationError{Reason: fmt.Sprintf("%s temperature %.2f is outside [0,1]", who, t)}
		}
	}
	if o.config.TemperatureA == o.config.TemperatureB {
		return &ConfigurationError{Reason: "grader A and grader B must use different temperatures"}
	}
	for _, b := range []backend.Backend{o.graderA, o.graderB, o.moderator} {
		if err := b.Ready(); err != nil {
			return &ConfigurationError{Reason: fmt.Sprintf("backend %s is not usable", b.Name()), Err: err}
		}
	}
	return nil
}

// Evaluate grades one paper: graders A and B run concurrently on the same
// prompt, then the moderator reconciles both. Any call failure aborts the
// paper with an *EvaluationError; configuration problems are reported as
// *ConfigurationError before any call is made.
func (o *Orchestrator) Evaluate(ctx context.Context, spec *rubric.Spec, paper string) (*GradingResult, error) {
	if spec == nil || strings.TrimSpace(spec.Text) == "" {
		return nil, &ConfigurationError{Reason: "rubric text is empty"}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(paper) == "" {
		return nil, &EvaluationError{Stage: StagePrecondition, Err: ErrEmptyPaper}
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	gradingPrompt := prompt.Grading(spec, paper)

	var evalA, evalB Evaluation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evalA, err = o.call(gctx, RoleGraderA, o.graderA, gradingPrompt, o.config.TemperatureA)
		return err
	})
	g.Go(func() error {
		var err error
		evalB, err = o.call(gctx, RoleGraderB, o.graderB, gradingPrompt, o.config.TemperatureB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	moderationPrompt := prompt.Moderation(spec, paper, evalA.Text, evalB.Text)
	final, err := o.call(ctx, RoleModerator, o.moderator, moderationPrompt, o.config.ModeratorTemperature)
	if err != nil {
		return nil, err
	}

	return &GradingResult{GraderA: evalA, GraderB: evalB, Final: final}, nil
}

func (o *Orchestrator) call(ctx context.Context, role Role, b backend.Backend, p string, temperature float64) (Evaluation, error) {
	start := time.Now()
	text, err := b.Evaluate(ctx, backend.Request{Prompt: p, Temperature: temperature})
	if err != nil {
		return Evaluation{}, &EvaluationError{Stage: role, Backend: b.Name(), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Evaluation{}, &EvaluationError{Stage: role, Backend: b.Name(), Err: ErrEmptyEvaluation}
	}
	return Evaluation{
		Role:    role,
		Text:    text,
		Backend: b.Name(),
		Model:   b.Model(),
		Latency: time.Since(start),
	}, nil
}
