package backend

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// defaultInputSize is used when a model declares a dynamic (negative or zero)
// spatial dimension and no explicit hint is configured.
const defaultInputSize = 224

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXRuntime is the preferred backend. The runtime environment is
// initialized once, on first load, and lives for the process lifetime.
type ONNXRuntime struct{}

func NewONNXRuntime() *ONNXRuntime {
	return &ONNXRuntime{}
}

func (b *ONNXRuntime) Name() string { return "onnxruntime" }

func (b *ONNXRuntime) Load(path string, inputSize int) (Session, error) {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", ortInitErr)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model declares %d inputs and %d outputs, need at least one of each",
			len(inputs), len(outputs))
	}

	// The model is the single source of truth for its input shape, assumed
	// NHWC as exported. Dynamic dims fall back to the configured hint.
	height, width := defaultInputSize, defaultInputSize
	if inputSize > 0 {
		height, width = inputSize, inputSize
	}
	dims := inputs[0].Dimensions
	if len(dims) >= 3 {
		if dims[1] > 0 {
			height = int(dims[1])
		}
		if dims[2] > 0 {
			width = int(dims[2])
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ortSession{
		session: session,
		height:  height,
		width:   width,
	}, nil
}

// ortSession wraps a dynamic session so each Infer call allocates its own
// input and output tensors. Dynamic sessions are safe for concurrent Run
// calls, which keeps the registry shareable across request handlers.
type ortSession struct {
	session *ort.DynamicAdvancedSession
	height  int
	width   int
}

func (s *ortSession) InputShape() (int, int) {
	return s.height, s.width
}

func (s *ortSession) Infer(tensor []float32) (float32, error) {
	shape := ort.NewShape(1, int64(s.height), int64(s.width), 3)
	input, err := ort.NewTensor(shape, tensor)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	// Let the runtime allocate the output so we never assume a static
	// output shape.
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	result, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	data := result.GetData()
	if len(data) == 0 {
		return 0, fmt.Errorf("model produced an empty output tensor")
	}
	return data[0], nil
}

func (s *ortSession) Close() {
	s.session.Destroy()
}
