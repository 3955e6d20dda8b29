package detector

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-eval/metrics/metric"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes the ONNX Runtime environment once per process.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// ONNXDetector runs a detection model through ONNX Runtime.
type ONNXDetector struct {
	cfg     Config
	session *ort.DynamicAdvancedSession

	mu     sync.Mutex
	closed bool
}

// NewONNXDetector loads the model and creates an inference session.
func NewONNXDetector(cfg Config) (*ONNXDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "detector: model file %s", cfg.ModelPath)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, errors.Errorf("detector: invalid input shape %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if err := initORT(); err != nil {
		return nil, errors.Wrap(err, "detector: initializing ONNX Runtime")
	}

	inputName := cfg.InputName
	if inputName == "" {
		inputName = "images"
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = "output"
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "detector: creating session options")
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		options,
	)
	if err != nil {
		return nil, errors.Wrap(err, "detector: creating session")
	}

	return &ONNXDetector{cfg: cfg, session: session}, nil
}

// Detect preprocesses the image, runs one inference pass, and decodes
// the output into detections in original-image coordinates.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]metric.Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector: session is closed")
	}

	input := preprocess(img, d.cfg.InputWidth, d.cfg.InputHeight)
	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(d.cfg.InputHeight), int64(d.cfg.InputWidth)),
		input,
	)
	if err != nil {
		return nil, errors.Wrap(err, "detector: creating input tensor")
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := d.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, errors.Wrap(err, "detector: running inference")
	}
	if outputs[0] == nil {
		return nil, errors.New("detector: no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Errorf("detector: unexpected output tensor type %T", outputs[0])
	}

	shape := outTensor.GetShape()
	rows, cols, err := outputGrid(shape)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return decodeYOLO(outTensor.GetData(), rows, cols,
		bounds.Dx(), bounds.Dy(),
		d.cfg.ConfidenceThreshold, d.cfg.NMSThreshold)
}

// outputGrid interprets the output shape as [rows, cols], tolerating a
// leading batch dimension of one.
func outputGrid(shape ort.Shape) (rows, cols int, err error) {
	dims := make([]int64, 0, len(shape))
	for _, d := range shape {
		dims = append(dims, d)
	}
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 2 {
		return 0, 0, errors.Errorf("detector: unexpected output shape %v", shape)
	}
	return int(dims[0]), int(dims[1]), nil
}

// Close releases the session.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}
