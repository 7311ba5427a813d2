package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bibbank/approval/pkg/approval"

// probabilityTolerance bounds how far p_reject + p_approve may stray from 1.
const probabilityTolerance = 1e-3

// StageResult records what happened at one rung of the ladder.
type StageResult struct {
	Strategy Strategy
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the stage answered the request.
func (s StageResult) Succeeded() bool {
	return !s.Skipped && s.Err == nil
}

// Pipeline tries the scaled model, then the unscaled model, then the rule
// engine, returning the first stage that succeeds.
type Pipeline struct {
	registry   *Registry
	schema     *Schema
	rules      *RuleEngine
	strategies Strategies
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithStageTimeout bounds every model stage. Zero disables the bound.
func WithStageTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithPipelineLogger sets the logger used for stage failures.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires a pipeline over a loaded registry.
func NewPipeline(registry *Registry, schema *Schema, rules *RuleEngine, strategies Strategies, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry:   registry,
		schema:     schema,
		rules:      rules,
		strategies: strategies,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the handles the pipeline predicts with.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Rules returns the terminal rule engine.
func (p *Pipeline) Rules() *RuleEngine {
	return p.rules
}

type stage struct {
	strategy Strategy
	ready    bool
	run      func(context.Context, Record) (Outcome, error)
}

// Run produces an outcome for the record. It never fails: the rule stage is
// terminal. The returned trail lists every stage considered, in order.
func (p *Pipeline) Run(ctx context.Context, r Record) (Outcome, []StageResult) {
	ctx, span := p.tracer.Start(ctx, "approval.pipeline")
	defer span.End()

	stages := []stage{
		{strategy: p.strategies.Scaled, ready: p.registry.ModelLoaded() && p.registry.ScalerLoaded(), run: p.runScaled},
		{strategy: p.strategies.Unscaled, ready: p.registry.ModelLoaded(), run: p.runUnscaled},
	}

	trail := make([]StageResult, 0, len(stages)+1)
	for _, st := range stages {
		if !st.ready {
			trail = append(trail, StageResult{Strategy: st.strategy, Skipped: true})
			continue
		}

		start := time.Now()
		out, err := p.attempt(ctx, st, r)
		res := StageResult{Strategy: st.strategy, Err: err, Duration: time.Since(start)}
		trail = append(trail, res)
		if err == nil {
			span.SetAttributes(attribute.String("approval.strategy", string(st.strategy)))
			return out, trail
		}
		p.logger.Warn("prediction stage failed, falling back",
			"stage", st.strategy,
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	start := time.Now()
	out := p.ruleOutcome(r)
	trail = append(trail, StageResult{Strategy: p.strategies.Rules, Duration: time.Since(start)})
	span.SetAttributes(attribute.String("approval.strategy", string(out.Strategy)))
	return out, trail
}

func (p *Pipeline) attempt(ctx context.Context, st stage, r Record) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "approval.stage", trace.WithAttributes(
		attribute.String("approval.stage", string(st.strategy)),
	))
	defer span.End()

	out, err := p.bounded(ctx, st.run, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	out.Strategy = st.strategy
	return out, nil
}

// bounded runs fn under the stage timeout. The call keeps running in its
// goroutine after a timeout; its result is discarded.
func (p *Pipeline) bounded(ctx context.Context, fn func(context.Context, Record) (Outcome, error), r Record) (Outcome, error) {
	if p.timeout <= 0 {
		return guarded(ctx, fn, r)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := guarded(ctx, fn, r)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return Outcome{}, fmt.Errorf("%w after %s: %v", ErrStageTimeout, p.timeout, ctx.Err())
	}
}

func guarded(ctx context.Context, fn func(context.Context, Record) (Outcome, error), r Record) (out Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panicked: %v", rec)
		}
	}()
	return fn(ctx, r)
}

func (p *Pipeline) runScaled(ctx context.Context, r Record) (Outcome, error) {
	scaler := p.registry.Scaler()
	model := p.registry.Model()

	in := p.schema.Assemble(r, scaler.Features())
	scaled, err := scaler.Transform(ctx, in)
	if err != nil {
		return Outcome{}, fmt.Errorf("scale features: %w", err)
	}
	// The model is fed the scaled values, not the raw ones. Features the
	// scaler does not cover keep their assembled value.
	v := p.schema.Assemble(r, model.Features()).Overlay(scaled)
	return classify(ctx, model, v)
}

func (p *Pipeline) runUnscaled(ctx context.Context, r Record) (Outcome, error) {
	model := p.registry.Model()
	return classify(ctx, model, p.schema.Assemble(r, model.Features()))
}

func (p *Pipeline) ruleOutcome(r Record) Outcome {
	prob := p.rules.Score(r)
	label := 0
	if p.rules.Approved(prob) {
		label = 1
	}
	return Outcome{
		Strategy:      p.strategies.Rules,
		Label:         label,
		Probabilities: [2]float64{1 - prob, prob},
	}
}

func classify(ctx context.Context, m Classifier, v FeatureVector) (Outcome, error) {
	label, err := m.Predict(ctx, v)
	if err != nil {
		return Outcome{}, fmt.Errorf("predict: %w", err)
	}

	proba, err := m.PredictProba(ctx, v)
	switch {
	case errors.Is(err, ErrNoProbabilities):
		proba = [2]float64{0.8, 0.2}
		if label == 1 {
			proba = [2]float64{0.2, 0.8}
		}
	case err != nil:
		return Outcome{}, fmt.Errorf("predict proba: %w", err)
	}

	if err := validateProbabilities(proba); err != nil {
		return Outcome{}, err
	}
	return Outcome{Label: label, Probabilities: proba}, nil
}

func validateProbabilities(p [2]float64) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidProbabilities, p)
		}
	}
	if math.Abs(p[0]+p[1]-1) > probabilityTolerance {
		return fmt.Errorf("%w: %v does not sum to 1", ErrInvalidProbabilities, p)
	}
	return nil
}
