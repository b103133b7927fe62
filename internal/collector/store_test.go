package collector

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

const validMetadata = `{
	"prediction": 0.1234,
	"predictedClass": 0,
	"className": "Cataract",
	"confidence": 87.66,
	"timestamp": "2026-08-23T10:00:00Z"
}`

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(validMetadata)
	if err != nil {
		t.Fatalf("ParseMetadata returned error: %v", err)
	}
	if meta["className"] != "Cataract" {
		t.Errorf("className = %v, want Cataract", meta["className"])
	}
}

func TestParseMetadataMissingKeys(t *testing.T) {
	_, err := ParseMetadata(`{"prediction": 0.5, "className": "Normal"}`)
	if err == nil {
		t.Fatal("ParseMetadata accepted metadata with missing keys")
	}
	for _, key := range []string{"predictedClass", "confidence", "timestamp"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name missing key %q", err, key)
		}
	}
}

func TestParseMetadataMalformedJSON(t *testing.T) {
	if _, err := ParseMetadata("{not json"); err == nil {
		t.Fatal("ParseMetadata accepted malformed JSON")
	}
}

func TestSaveWritesImageAndSidecar(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	meta, err := ParseMetadata(validMetadata)
	if err != nil {
		t.Fatalf("ParseMetadata returned error: %v", err)
	}

	receipt, err := store.Save([]byte("image bytes"), ".png", meta)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if receipt.SubmissionID == "" {
		t.Fatal("Save returned an empty submission ID")
	}

	imageData, err := os.ReadFile(receipt.ImagePath)
	if err != nil {
		t.Fatalf("reading stored image: %v", err)
	}
	if string(imageData) != "image bytes" {
		t.Errorf("stored image = %q", imageData)
	}

	sidecarData, err := os.ReadFile(receipt.MetadataPath)
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	var sidecar map[string]any
	if err := json.Unmarshal(sidecarData, &sidecar); err != nil {
		t.Fatalf("decoding sidecar: %v", err)
	}
	for _, key := range []string{"submissionId", "receivedAt", "imagePath", "metadataPath",
		"prediction", "predictedClass", "className", "confidence", "timestamp"} {
		if _, ok := sidecar[key]; !ok {
			t.Errorf("sidecar missing %q", key)
		}
	}
	if sidecar["submissionId"] != receipt.SubmissionID {
		t.Errorf("sidecar submissionId = %v, want %v", sidecar["submissionId"], receipt.SubmissionID)
	}
}

func TestStats(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	save := func(className string) {
		meta, err := ParseMetadata(validMetadata)
		if err != nil {
			t.Fatalf("ParseMetadata returned error: %v", err)
		}
		meta["className"] = className
		if _, err := store.Save([]byte("img"), ".jpg", meta); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}
	save("Cataract")
	save("Cataract")
	save("Normal")

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalSubmissions != 3 {
		t.Errorf("TotalSubmissions = %d, want 3", stats.TotalSubmissions)
	}
	if stats.TotalImages != 3 {
		t.Errorf("TotalImages = %d, want 3", stats.TotalImages)
	}
	if stats.ClassCounts["Cataract"] != 2 || stats.ClassCounts["Normal"] != 1 {
		t.Errorf("ClassCounts = %v", stats.ClassCounts)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalSubmissions != 0 || stats.TotalImages != 0 || len(stats.ClassCounts) != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
