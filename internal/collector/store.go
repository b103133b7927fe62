// Package collector implements the training-data collection service: it
// persists submitted eye images together with the prediction metadata the
// client recorded, for later retraining.
package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// requiredMetadataKeys must all be present in the client-supplied metadata.
var requiredMetadataKeys = []string{
	"prediction", "predictedClass", "className", "confidence", "timestamp",
}

// Store persists images and JSON metadata sidecars under a data directory:
// images/<id><ext> and metadata/<id>.json.
type Store struct {
	dataDir string
}

func NewStore(dataDir string) (*Store, error) {
	for _, sub := range []string{"images", "metadata"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("can't create data directory: %w", err)
		}
	}
	return &Store{dataDir: dataDir}, nil
}

// ParseMetadata validates the client metadata JSON: it must be an object
// containing every required key. Client fields are preserved as-is so the
// sidecar keeps whatever extra context the client recorded.
func ParseMetadata(raw string) (map[string]any, error) {
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	var missing []string
	for _, key := range requiredMetadataKeys {
		if _, ok := meta[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("metadata missing required keys: %s", strings.Join(missing, ", "))
	}
	return meta, nil
}

// Receipt identifies a stored submission.
type Receipt struct {
	SubmissionID string
	ImagePath    string
	MetadataPath string
}

// Save writes the image and its metadata sidecar under a fresh submission
// ID. Server-added fields (submissionId, receivedAt, paths) are merged into
// the sidecar alongside the client's metadata.
func (s *Store) Save(imageData []byte, ext string, meta map[string]any) (*Receipt, error) {
	id := uuid.New().String()
	imagePath := filepath.Join(s.dataDir, "images", id+ext)
	metadataPath := filepath.Join(s.dataDir, "metadata", id+".json")

	if err := os.WriteFile(imagePath, imageData, 0o644); err != nil {
		return nil, fmt.Errorf("can't save image: %w", err)
	}

	meta["submissionId"] = id
	meta["receivedAt"] = time.Now().UTC().Format(time.RFC3339)
	meta["imagePath"] = imagePath
	meta["metadataPath"] = metadataPath

	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		os.Remove(imagePath)
		return nil, fmt.Errorf("can't encode metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, sidecar, 0o644); err != nil {
		os.Remove(imagePath)
		return nil, fmt.Errorf("can't save metadata: %w", err)
	}

	return &Receipt{
		SubmissionID: id,
		ImagePath:    imagePath,
		MetadataPath: metadataPath,
	}, nil
}

// Stats summarizes everything persisted so far, rebuilt by scanning the
// metadata sidecars on every call.
type Stats struct {
	TotalSubmissions int            `json:"totalSubmissions"`
	TotalImages      int            `json:"totalImages"`
	ClassCounts      map[string]int `json:"classCounts"`
}

func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ClassCounts: make(map[string]int)}

	entries, err := os.ReadDir(filepath.Join(s.dataDir, "metadata"))
	if err != nil {
		return nil, fmt.Errorf("can't scan metadata directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stats.TotalSubmissions++

		data, err := os.ReadFile(filepath.Join(s.dataDir, "metadata", entry.Name()))
		if err != nil {
			continue
		}
		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		if className, ok := meta["className"].(string); ok {
			stats.ClassCounts[className]++
		}
	}

	images, err := os.ReadDir(filepath.Join(s.dataDir, "images"))
	if err != nil {
		return nil, fmt.Errorf("can't scan images directory: %w", err)
	}
	for _, entry := range images {
		if !entry.IsDir() {
			stats.TotalImages++
		}
	}

	return stats, nil
}
