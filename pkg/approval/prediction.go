package approval

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is the binary outcome of a prediction.
type Decision string

const (
	Approved Decision = "approved"
	Rejected Decision = "rejected"
)

// Strategy tags the pipeline stage that produced a prediction.
type Strategy string

// Strategies names the three stages for a service.
type Strategies struct {
	Scaled   Strategy
	Unscaled Strategy
	Rules    Strategy
}

// Outcome is what a single stage returns when it succeeds.
type Outcome struct {
	Strategy Strategy
	Label    int
	// Probabilities holds (p_reject, p_approve).
	Probabilities [2]float64
}

// Approved reports whether the stage voted to approve.
func (o Outcome) Approved() bool {
	return o.Label == 1
}

// Probability is the approval probability.
func (o Outcome) Probability() float64 {
	return o.Probabilities[1]
}

// Summary carries the service specific fields of a prediction.
type Summary struct {
	Input             map[string]any
	EstimatedLimit    *int64
	CreditScoreImpact string
	ModelAccuracy     *float64
	Note              string
}

// Prediction is the result of one request. It is never stored.
type Prediction struct {
	ID              uuid.UUID
	Decision        Decision
	Probability     float64
	Confidence      float64
	PApprove        float64
	PReject         float64
	Strategy        Strategy
	RiskFactors     []string
	Recommendations []string
	Summary         Summary
	Stages          []StageResult
	CreatedAt       time.Time
}

// Confidence maps a probability to clamp(|p-0.5|*2, 0, 1).
func Confidence(p float64) float64 {
	return math.Min(math.Max(math.Abs(p-0.5)*2, 0), 1)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
