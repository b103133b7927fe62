package backend

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// OpenCV is the fallback backend, backed by the OpenCV DNN module. It is only
// consulted when the preferred runtime cannot load a model and fallback is
// permitted by configuration.
type OpenCV struct{}

func NewOpenCV() *OpenCV {
	return &OpenCV{}
}

func (b *OpenCV) Name() string { return "opencv-dnn" }

func (b *OpenCV) Load(path string, inputSize int) (Session, error) {
	// ReadNetFromONNX reports failure through an empty net, not an error.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open model file: %w", err)
	}
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("OpenCV could not parse %s as an ONNX network", path)
	}

	// The DNN module cannot introspect the expected input shape, so the
	// configured hint drives preprocessing here.
	size := inputSize
	if size <= 0 {
		size = defaultInputSize
	}

	return &cvSession{
		net:    net,
		height: size,
		width:  size,
	}, nil
}

type cvSession struct {
	// Forward is not reentrant on a gocv.Net, unlike an ONNX Runtime
	// session, so concurrent callers are serialized here.
	mu     sync.Mutex
	net    gocv.Net
	height int
	width  int
}

func (s *cvSession) InputShape() (int, int) {
	return s.height, s.width
}

func (s *cvSession) Infer(tensor []float32) (float32, error) {
	if len(tensor) != s.height*s.width*3 {
		return 0, fmt.Errorf("tensor has %d values, expected %d", len(tensor), s.height*s.width*3)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(
		[]int{1, 3, s.height, s.width}, gocv.MatTypeCV32F, nhwcToNCHWBytes(tensor, s.height, s.width))
	if err != nil {
		return 0, fmt.Errorf("failed to build input blob: %w", err)
	}
	defer blob.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.net.SetInput(blob, "")
	out := s.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return 0, fmt.Errorf("network produced an empty output")
	}
	return out.GetFloatAt(0, 0), nil
}

func (s *cvSession) Close() {
	s.net.Close()
}

// nhwcToNCHWBytes reorders a (1, h, w, 3) float32 tensor into the
// channel-first byte layout OpenCV blobs expect.
func nhwcToNCHWBytes(tensor []float32, height, width int) []byte {
	plane := height * width
	buf := make([]byte, 4*3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := y*width + x
			for c := 0; c < 3; c++ {
				v := tensor[pixel*3+c]
				offset := 4 * (c*plane + pixel)
				binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
			}
		}
	}
	return buf
}
