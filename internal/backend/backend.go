// Package backend provides the inference engines a model file can be loaded
// with. Backends are tried in a fixed preference order: the dedicated ONNX
// Runtime first, then the OpenCV DNN module when fallback is permitted.
package backend

import (
	"fmt"
	"strings"
)

// Session is one loaded model ready to run inference. Sessions are created
// once at startup and must be safe for concurrent Infer calls.
type Session interface {
	// InputShape returns the (height, width) the model expects, read once
	// at load time.
	InputShape() (height, width int)

	// Infer feeds a preprocessed (1, height, width, 3) float32 tensor and
	// returns the scalar from the model's first output.
	Infer(tensor []float32) (float32, error)

	Close()
}

// Backend loads model files into Sessions.
type Backend interface {
	Name() string

	// Load opens the model at path. inputSize is a preprocessing hint for
	// backends that cannot introspect the model's input shape; 0 means
	// "backend decides".
	Load(path string, inputSize int) (Session, error)
}

// Attempt records one backend's failure to load a model.
type Attempt struct {
	Backend string
	Err     error
}

// LoadError aggregates every backend's failure reason for a single model.
type LoadError struct {
	Model    string
	Attempts []Attempt
}

func (e *LoadError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return fmt.Sprintf("could not load model %q with any backend [%s]",
		e.Model, strings.Join(reasons, "; "))
}

// Open tries each backend in order and returns the first session that loads,
// along with the name of the backend that produced it. A backend that errors
// is treated as unavailable for this model and the next one is tried. If all
// fail, the individual reasons are aggregated into a *LoadError.
func Open(model, path string, inputSize int, backends []Backend) (Session, string, error) {
	attempts := make([]Attempt, 0, len(backends))
	for _, b := range backends {
		session, err := b.Load(path, inputSize)
		if err == nil {
			return session, b.Name(), nil
		}
		attempts = append(attempts, Attempt{Backend: b.Name(), Err: err})
	}
	return nil, "", &LoadError{Model: model, Attempts: attempts}
}
