package model

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/oculens/cataract-api/internal/backend"
)

// stubSession is a fake backend.Session with a fixed score.
type stubSession struct {
	height   int
	width    int
	score    float32
	inferErr error
	closed   bool
}

func (s *stubSession) InputShape() (int, int) { return s.height, s.width }

func (s *stubSession) Infer(tensor []float32) (float32, error) {
	if s.inferErr != nil {
		return 0, s.inferErr
	}
	return s.score, nil
}

func (s *stubSession) Close() { s.closed = true }

// stubBackend loads every path into the same stub session, or fails.
type stubBackend struct {
	name    string
	session *stubSession
	loadErr error
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Load(path string, inputSize int) (backend.Session, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.session, nil
}

func newStubBackend(score float32) *stubBackend {
	return &stubBackend{
		name:    "stub",
		session: &stubSession{height: 8, width: 8, score: score},
	}
}

var errBroken = errors.New("broken backend")

// testImage returns a small valid PNG.
func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}
