package approval

import (
	"time"

	"github.com/google/uuid"
)

// EventPredictionCompleted is the event type of PredictionCompleted.
const EventPredictionCompleted = "approval.prediction.completed"

// PredictionCompleted notifies downstream consumers that a prediction was
// served. It carries the outcome only, never the applicant's input.
type PredictionCompleted struct {
	PredictionID uuid.UUID `json:"prediction_id"`
	Service      string    `json:"service"`
	Decision     Decision  `json:"decision"`
	Probability  float64   `json:"probability"`
	Strategy     Strategy  `json:"strategy"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventType implements the event naming used by the publisher.
func (e PredictionCompleted) EventType() string {
	return EventPredictionCompleted
}
