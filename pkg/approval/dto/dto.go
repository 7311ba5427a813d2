// Package dto holds the wire representations shared by the HTTP and gRPC
// transports.
package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/bibbank/approval/pkg/approval"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// Probabilities is the class probability pair.
type Probabilities struct {
	Approved float64 `json:"approved"`
	Rejected float64 `json:"rejected"`
}

// PredictionResponse is the external representation of a prediction.
// Decision and strategy are written under both their current and their
// legacy keys so existing clients keep working.
type PredictionResponse struct {
	Status            string         `json:"status"`
	PredictionID      string         `json:"prediction_id"`
	Decision          string         `json:"decision"`
	Prediction        string         `json:"prediction"`
	Probability       float64        `json:"probability"`
	Confidence        float64        `json:"confidence"`
	Probabilities     Probabilities  `json:"probabilities"`
	StrategyUsed      string         `json:"strategy_used"`
	ModelUsed         string         `json:"model_used"`
	RiskFactors       []string       `json:"risk_factors"`
	Recommendations   []string       `json:"recommendations"`
	EstimatedLimit    *int64         `json:"estimated_limit,omitempty"`
	CreditScoreImpact string         `json:"credit_score_impact,omitempty"`
	ModelAccuracy     *float64       `json:"model_accuracy,omitempty"`
	Note              string         `json:"note,omitempty"`
	InputSummary      map[string]any `json:"input_summary,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// HealthResponse reports whether the service can serve trained predictions.
type HealthResponse struct {
	Status           string    `json:"status"`
	Service          string    `json:"service"`
	ModelLoaded      bool      `json:"model_loaded"`
	ScalerLoaded     bool      `json:"scaler_loaded"`
	HTMLFileExists   bool      `json:"html_file_exists"`
	StaticFolder     string    `json:"static_folder"`
	FeaturesExpected int       `json:"features_expected"`
	Timestamp        time.Time `json:"timestamp"`
}

// ModelStatusResponse describes the loaded handles and the feature table.
type ModelStatusResponse struct {
	Service          string    `json:"service"`
	ModelLoaded      bool      `json:"model_loaded"`
	ScalerLoaded     bool      `json:"scaler_loaded"`
	ModelType        string    `json:"model_type,omitempty"`
	ScalerType       string    `json:"scaler_type,omitempty"`
	ModelPath        string    `json:"model_path,omitempty"`
	ScalerPath       string    `json:"scaler_path,omitempty"`
	ModelFeatures    []string  `json:"model_features"`
	ScalerFeatures   []string  `json:"scaler_features"`
	ModelFeaturesIn  int       `json:"model_features_in"`
	ScalerFeaturesIn int       `json:"scaler_features_in"`
	NumFeatures      int       `json:"num_features"`
	FeatureColumns   []string  `json:"feature_columns"`
	Rules            []string  `json:"rules"`
	Timestamp        time.Time `json:"timestamp"`
}

// NotFoundResponse lists the routes the service does serve.
type NotFoundResponse struct {
	Status             string              `json:"status"`
	Message            string              `json:"message"`
	AvailableEndpoints map[string][]string `json:"available_endpoints"`
}

// ---------------------------------------------------------------------------
// Mappers
// ---------------------------------------------------------------------------

// FromPrediction maps a domain prediction to its response.
func FromPrediction(p approval.Prediction) PredictionResponse {
	return PredictionResponse{
		Status:       StatusSuccess,
		PredictionID: p.ID.String(),
		Decision:     string(p.Decision),
		Prediction:   string(p.Decision),
		Probability:  p.Probability,
		Confidence:   p.Confidence,
		Probabilities: Probabilities{
			Approved: p.PApprove,
			Rejected: p.PReject,
		},
		StrategyUsed:      string(p.Strategy),
		ModelUsed:         string(p.Strategy),
		RiskFactors:       p.RiskFactors,
		Recommendations:   p.Recommendations,
		EstimatedLimit:    p.Summary.EstimatedLimit,
		CreditScoreImpact: p.Summary.CreditScoreImpact,
		ModelAccuracy:     p.Summary.ModelAccuracy,
		Note:              p.Summary.Note,
		InputSummary:      p.Summary.Input,
		Timestamp:         p.CreatedAt,
	}
}

// Error builds an error body. A zero time omits the timestamp.
func Error(msg string, at time.Time) ErrorResponse {
	resp := ErrorResponse{Status: StatusError, Message: msg}
	if !at.IsZero() {
		resp.Timestamp = &at
	}
	return resp
}

// ModelStatus describes a predictor's registry and feature table.
func ModelStatus(svc *approval.Predictor, at time.Time) ModelStatusResponse {
	reg := svc.Pipeline().Registry()
	modelFeatures := reg.ModelFeatures()
	scalerFeatures := reg.ScalerFeatures()
	columns := svc.Profile().Schema.Names()

	var rules []string
	if engine := svc.Pipeline().Rules(); engine != nil {
		for _, r := range engine.RuleSet().Rules {
			rules = append(rules, r.Name)
		}
	}

	resp := ModelStatusResponse{
		Service:          svc.Profile().Service,
		ModelLoaded:      reg.ModelLoaded(),
		ScalerLoaded:     reg.ScalerLoaded(),
		ModelPath:        reg.ModelPath(),
		ScalerPath:       reg.ScalerPath(),
		ModelFeatures:    nonNil(modelFeatures.Names),
		ScalerFeatures:   nonNil(scalerFeatures.Names),
		ModelFeaturesIn:  modelFeatures.Len(),
		ScalerFeaturesIn: scalerFeatures.Len(),
		NumFeatures:      len(columns),
		FeatureColumns:   columns,
		Rules:            nonNil(rules),
		Timestamp:        at,
	}
	if m := reg.Model(); m != nil {
		resp.ModelType = TypeName(m)
	}
	if s := reg.Scaler(); s != nil {
		resp.ScalerType = TypeName(s)
	}
	return resp
}

// TypeName is the unqualified Go type name of a handle ("LogisticRegression").
func TypeName(v any) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
