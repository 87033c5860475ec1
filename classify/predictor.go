package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/clearspeech/disfluency/feature"
)

// ErrUnavailable signals that the classifier capability is not loaded at
// all (as opposed to a per-segment inference failure).
var ErrUnavailable = errors.New("classifier unavailable")

// Prediction is the classifier's output for one segment: the top class,
// its confidence, and the full probability vector ordered per the
// vocabulary.
type Prediction struct {
	Class         string    `json:"class"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

// Predictor is the narrow contract this core expects from the external
// classifier capability. Model internals stay behind it; this package only
// validates the tensor-in/prediction-out exchange.
type Predictor interface {
	// Predict classifies one log-mel tensor. Implementations must honor
	// ctx cancellation; timeout and retry policy belong to the caller
	// side of this interface.
	Predict(ctx context.Context, tensor *feature.Tensor) (*Prediction, error)

	// Vocabulary returns the fixed class list predictions range over.
	Vocabulary() *Vocabulary

	// ModelVersion identifies the loaded model for result attribution.
	ModelVersion() string
}

// ValidatePrediction checks a prediction against the contract: known
// class, confidence in [0,1], probability vector matching the vocabulary.
func ValidatePrediction(v *Vocabulary, p *Prediction) error {
	if p == nil {
		return fmt.Errorf("nil prediction")
	}

	if v.Index(p.Class) < 0 {
		return fmt.Errorf("predicted class '%s' not in vocabulary", p.Class)
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", p.Confidence)
	}

	if len(p.Probabilities) != v.Len() {
		return fmt.Errorf("probability vector length %d, vocabulary has %d classes",
			len(p.Probabilities), v.Len())
	}

	return nil
}
