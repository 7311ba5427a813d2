package approval

import "context"

// Classifier is a loaded binary classifier.
type Classifier interface {
	// Predict returns the class label, 1 for approve and 0 for reject.
	Predict(ctx context.Context, v FeatureVector) (int, error)
	// PredictProba returns (p_reject, p_approve). Classifiers without
	// probability estimates return ErrNoProbabilities.
	PredictProba(ctx context.Context, v FeatureVector) ([2]float64, error)
	// Features is the ordered feature list the classifier expects.
	Features() FeatureSchema
}

// Scaler rescales a feature vector, keeping its names.
type Scaler interface {
	Transform(ctx context.Context, v FeatureVector) (FeatureVector, error)
	Features() FeatureSchema
}

// EventPublisher publishes prediction notifications.
type EventPublisher interface {
	Publish(ctx context.Context, events ...PredictionCompleted) error
}
