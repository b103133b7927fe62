package model

import (
	"github.com/oculens/cataract-api/internal/backend"
)

// Spec describes one model to load, in configuration order.
type Spec struct {
	// Name identifies the model in results and logs, e.g. "ResNet50".
	Name string

	// Path is the model file location. A missing file is skipped, not an
	// error, so deployments can ship a subset of the artifacts.
	Path string

	// Required makes a load failure of this model fatal to the whole
	// registry instead of dropping just this model.
	Required bool

	// InputSize hints the square input resolution for backends that cannot
	// read it from the model file. 0 uses the backend default.
	InputSize int
}

// Handle is one loaded model. Handles are created during startup loading,
// never mutated afterwards, and closed only at shutdown.
type Handle struct {
	Name    string
	Backend string

	// Input shape, read once at load time. The preprocessor is driven by
	// these values, not a constant, since models may differ.
	Height int
	Width  int

	session backend.Session
}

// Infer runs the model on a preprocessed tensor and returns its raw score.
// Scores are nominally in [0, 1], closer to 1 meaning "Normal"; no clamping
// is applied.
func (h *Handle) Infer(tensor []float32) (float32, error) {
	return h.session.Infer(tensor)
}

func (h *Handle) Close() {
	h.session.Close()
}
