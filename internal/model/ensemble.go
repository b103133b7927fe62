package model

import (
	"errors"
	"log"
	"math"
	"time"

	"github.com/oculens/cataract-api/internal/preprocess"
)

// Threshold is the fixed decision boundary. It is deliberately 0.7 rather
// than 0.5, biasing the classifier towards cataract sensitivity; a mean
// score below it classifies as "Cataract". Treat as a domain constant.
const Threshold = 0.7

// ErrNoPredictions means every loaded model failed on this request. Distinct
// from an empty registry, which prevents startup entirely.
var ErrNoPredictions = errors.New("no models produced a prediction")

// Result is the outcome of one prediction. It is built per request and not
// persisted.
type Result struct {
	// Prediction is the averaged raw score, rounded to 4 decimal places.
	Prediction float64 `json:"prediction"`

	// ClassName is "Cataract" or "Normal".
	ClassName string `json:"className"`

	// Confidence is the percentage distance from the decision boundary,
	// rounded to 2 decimal places. Not a calibrated probability.
	Confidence float64 `json:"confidence"`

	// ModelsUsed lists the models that actually contributed a score.
	ModelsUsed []string `json:"modelsUsed"`

	// EnsembleMode is true when more than one model contributed.
	EnsembleMode bool `json:"ensembleMode"`

	// InferenceTime is the whole ensemble pass in seconds, 3 decimal places.
	InferenceTime float64 `json:"inferenceTime"`
}

// Ensemble runs every registered model against an image and averages the
// surviving scores. It allocates per-call tensors only; concurrent Predict
// calls share nothing but the read-only registry.
type Ensemble struct {
	registry *Registry
}

func NewEnsemble(registry *Registry) *Ensemble {
	return &Ensemble{registry: registry}
}

// Predict classifies raw image bytes. Each model gets its own preprocessing
// pass, since models may expect different input shapes. A single model's
// inference failure drops only that model's contribution; the request fails
// with ErrNoPredictions only when every model failed.
func (e *Ensemble) Predict(imageBytes []byte) (*Result, error) {
	start := time.Now()

	var scores []float64
	var used []string

	for _, handle := range e.registry.handles {
		tensor, err := preprocess.Image(imageBytes, handle.Height, handle.Width)
		if err != nil {
			if errors.Is(err, preprocess.ErrDecode) {
				// Undecodable bytes fail the same way for every model.
				return nil, err
			}
			log.Printf("Warning: preprocessing for %s failed: %v", handle.Name, err)
			continue
		}

		score, err := handle.Infer(tensor)
		if err != nil {
			log.Printf("Warning: %s inference failed: %v", handle.Name, err)
			continue
		}
		scores = append(scores, float64(score))
		used = append(used, handle.Name)
	}

	if len(scores) == 0 {
		return nil, ErrNoPredictions
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	className := "Normal"
	confidence := mean * 100
	if mean < Threshold {
		className = "Cataract"
		confidence = (1 - mean) * 100
	}

	return &Result{
		Prediction:    round(mean, 4),
		ClassName:     className,
		Confidence:    round(confidence, 2),
		ModelsUsed:    used,
		EnsembleMode:  len(used) > 1,
		InferenceTime: round(time.Since(start).Seconds(), 3),
	}, nil
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
