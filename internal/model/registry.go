package model

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/oculens/cataract-api/internal/backend"
)

// NoModelsLoadedError means the registry ended up empty after processing
// every configured model. The service must not begin serving in this state.
type NoModelsLoadedError struct {
	Attempted []string
}

func (e *NoModelsLoadedError) Error() string {
	return fmt.Sprintf("no models could be loaded (attempted: %s)",
		strings.Join(e.Attempted, ", "))
}

// Registry holds the models that loaded successfully, in configuration
// order. It is built once at startup and read-only afterwards, so it is safe
// to share across concurrent request handlers without locking.
type Registry struct {
	handles []*Handle
}

// Load processes specs in declaration order. Missing files are skipped with
// a log note. For existing files each backend is tried in order; if the
// whole chain fails the model is dropped unless it is marked required. An
// empty result is fatal.
func Load(specs []Spec, backends []backend.Backend) (*Registry, error) {
	var handles []*Handle
	var attempted []string

	for _, spec := range specs {
		attempted = append(attempted, spec.Path)

		if _, err := os.Stat(spec.Path); errors.Is(err, fs.ErrNotExist) {
			log.Printf("Model file %s not found, skipping %s", spec.Path, spec.Name)
			continue
		}

		session, backendName, err := backend.Open(spec.Name, spec.Path, spec.InputSize, backends)
		if err != nil {
			if spec.Required {
				closeAll(handles)
				return nil, fmt.Errorf("required model %s failed to load: %w", spec.Name, err)
			}
			log.Printf("Dropping model %s: %v", spec.Name, err)
			continue
		}

		height, width := session.InputShape()
		handles = append(handles, &Handle{
			Name:    spec.Name,
			Backend: backendName,
			Height:  height,
			Width:   width,
			session: session,
		})
		log.Printf("Loaded model %s from %s (%s, input %dx%d)",
			spec.Name, spec.Path, backendName, width, height)
	}

	if len(handles) == 0 {
		return nil, &NoModelsLoadedError{Attempted: attempted}
	}

	r := &Registry{handles: handles}
	if r.EnsembleMode() {
		log.Printf("Ensemble mode: %d models loaded (%s)", len(handles), strings.Join(r.ModelNames(), ", "))
	} else {
		log.Printf("Single model mode: only %s loaded", handles[0].Name)
	}
	return r, nil
}

// ModelNames returns the loaded model names in configuration order.
func (r *Registry) ModelNames() []string {
	names := make([]string, len(r.handles))
	for i, h := range r.handles {
		names[i] = h.Name
	}
	return names
}

// EnsembleMode reports whether more than one model is loaded.
func (r *Registry) EnsembleMode() bool {
	return len(r.handles) > 1
}

func (r *Registry) Close() {
	closeAll(r.handles)
}

func closeAll(handles []*Handle) {
	for _, h := range handles {
		h.Close()
	}
}
