package detector

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-eval/metrics/metric"
)

// DNNDetector runs a detection model through the OpenCV DNN module.
type DNNDetector struct {
	cfg Config

	mu     sync.Mutex
	net    gocv.Net
	closed bool
}

// NewDNNDetector loads the model with gocv.ReadNet.
func NewDNNDetector(cfg Config) (*DNNDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "detector: model file %s", cfg.ModelPath)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, errors.Errorf("detector: invalid input shape %dx%d", cfg.InputWidth, cfg.InputHeight)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, errors.Errorf("detector: failed to load model %s", cfg.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
		return nil, errors.Wrap(err, "detector: setting DNN backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, errors.Wrap(err, "detector: setting DNN target")
	}

	return &DNNDetector{cfg: cfg, net: net}, nil
}

// Detect converts the image to a blob, runs a forward pass, and decodes
// the output rows into detections.
func (d *DNNDetector) Detect(ctx context.Context, img image.Image) ([]metric.Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector: net is closed")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "detector: converting image")
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(d.cfg.InputWidth, d.cfg.InputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	flat, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "detector: reading output")
	}

	rows := out.Size()[len(out.Size())-2]
	cols := out.Size()[len(out.Size())-1]

	bounds := img.Bounds()
	return decodeYOLO(flat, rows, cols,
		bounds.Dx(), bounds.Dy(),
		d.cfg.ConfidenceThreshold, d.cfg.NMSThreshold)
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
