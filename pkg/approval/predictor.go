package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Profile bundles everything that differs between the approval services:
// accepted fields, feature table, rule signals, stage tags and insights.
type Profile struct {
	Service    string
	Fields     FieldSet
	Schema     *Schema
	Signals    []Signal
	Strategies Strategies
	Insights   Insights
	// Summarize builds the service specific summary of a prediction.
	Summarize func(r Record, o Outcome) Summary
	// Rules is the default YAML rule table.
	Rules []byte
}

// Validate checks that the profile is complete.
func (p Profile) Validate() error {
	switch {
	case p.Service == "":
		return errors.New("profile: service name is required")
	case len(p.Fields) == 0:
		return errors.New("profile: no fields declared")
	case p.Schema == nil:
		return errors.New("profile: no feature schema")
	case p.Strategies.Scaled == "" || p.Strategies.Unscaled == "" || p.Strategies.Rules == "":
		return errors.New("profile: every stage needs a strategy tag")
	}
	return nil
}

// RuleSet parses the profile's embedded rule table.
func (p Profile) RuleSet() (RuleSet, error) {
	return ParseRuleSet(p.Rules)
}

// NewRuleEngine compiles the given rule table against the profile's fields
// and signals.
func (p Profile) NewRuleEngine(set RuleSet, logger *slog.Logger) (*RuleEngine, error) {
	return NewRuleEngine(set, p.Fields, p.Signals, logger)
}

// Predictor is the prediction use case: parse the request, run the pipeline,
// attach insights and notify subscribers.
type Predictor struct {
	profile   Profile
	pipeline  *Pipeline
	publisher EventPublisher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithPublisher publishes a PredictionCompleted event for every prediction.
func WithPublisher(pub EventPublisher) PredictorOption {
	return func(s *Predictor) { s.publisher = pub }
}

// WithMetrics records prediction metrics.
func WithMetrics(m *Metrics) PredictorOption {
	return func(s *Predictor) { s.metrics = m }
}

// WithLogger sets the predictor's logger.
func WithLogger(l *slog.Logger) PredictorOption {
	return func(s *Predictor) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PredictorOption {
	return func(s *Predictor) { s.now = now }
}

// NewPredictor creates the use case for a profile.
func NewPredictor(profile Profile, pipeline *Pipeline, opts ...PredictorOption) *Predictor {
	s := &Predictor{
		profile:  profile,
		pipeline: pipeline,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the service profile.
func (s *Predictor) Profile() Profile {
	return s.profile
}

// Pipeline returns the prediction pipeline.
func (s *Predictor) Pipeline() *Pipeline {
	return s.pipeline
}

// Predict validates a raw request and returns the prediction. Only client
// errors are returned; model failures are absorbed by the pipeline.
func (s *Predictor) Predict(ctx context.Context, raw map[string]any) (Prediction, error) {
	rec, err := s.profile.Fields.Parse(raw)
	if err != nil {
		return Prediction{}, err
	}
	return s.Evaluate(ctx, rec), nil
}

// Evaluate predicts for an already parsed record.
func (s *Predictor) Evaluate(ctx context.Context, rec Record) Prediction {
	start := time.Now()

	out, trail := s.pipeline.Run(ctx, rec)
	p := out.Probability()

	decision := Rejected
	if out.Approved() {
		decision = Approved
	}

	pred := Prediction{
		ID:              uuid.New(),
		Decision:        decision,
		Probability:     Round(p, 4),
		Confidence:      Round(Confidence(p), 4),
		PApprove:        Round(out.Probabilities[1], 4),
		PReject:         Round(out.Probabilities[0], 4),
		Strategy:        out.Strategy,
		RiskFactors:     s.profile.Insights.Risks(rec, p),
		Recommendations: s.profile.Insights.Recommendations(rec, p),
		Stages:          trail,
		CreatedAt:       s.now(),
	}
	if s.profile.Summarize != nil {
		pred.Summary = s.profile.Summarize(rec, out)
	}

	s.logger.Info("prediction served",
		"prediction_id", pred.ID,
		"strategy", pred.Strategy,
		"decision", pred.Decision,
		"probability", pred.Probability,
	)

	s.metrics.record(ctx, s.profile.Service, pred, time.Since(start))
	s.publish(ctx, pred)
	return pred
}

func (s *Predictor) publish(ctx context.Context, pred Prediction) {
	if s.publisher == nil {
		return
	}
	evt := PredictionCompleted{
		PredictionID: pred.ID,
		Service:      s.profile.Service,
		Decision:     pred.Decision,
		Probability:  pred.Probability,
		Strategy:     pred.Strategy,
		OccurredAt:   pred.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish prediction event", "prediction_id", pred.ID, "error", err)
	}
}
