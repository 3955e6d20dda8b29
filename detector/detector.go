// Package detector - Detection producers that turn evaluation images
// into per-image prediction lists. The metric core treats these as
// black-box sources of Detection records.
package detector

import (
	"context"
	"image"

	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Backend identifies an inference backend.
type Backend string

const (
	// BackendONNX runs the model through ONNX Runtime.
	BackendONNX Backend = "onnx"
	// BackendDNN runs the model through the OpenCV DNN module.
	BackendDNN Backend = "dnn"
)

// Detector produces detections for one image.
type Detector interface {
	// Detect runs inference and returns the image's detections.
	Detect(ctx context.Context, img image.Image) ([]metric.Detection, error)
	// Close releases backend resources.
	Close() error
}

// Config holds construction parameters shared by the backends.
type Config struct {
	// ModelPath locates the ONNX model file.
	ModelPath string `json:"modelPath" yaml:"modelPath"`
	// InputWidth and InputHeight are the model input dimensions.
	InputWidth  int `json:"inputWidth"  yaml:"inputWidth"`
	InputHeight int `json:"inputHeight" yaml:"inputHeight"`
	// ConfidenceThreshold drops detections scoring below it.
	ConfidenceThreshold float32 `json:"confidenceThreshold" yaml:"confidenceThreshold"`
	// NMSThreshold is the IoU above which overlapping detections are
	// suppressed.
	NMSThreshold float32 `json:"nmsThreshold" yaml:"nmsThreshold"`
	// InputName and OutputName are the model's tensor names (ONNX
	// backend only).
	InputName  string `json:"inputName"  yaml:"inputName"`
	OutputName string `json:"outputName" yaml:"outputName"`
}

// New constructs the named backend.
func New(backend Backend, cfg Config) (Detector, error) {
	switch backend {
	case BackendONNX:
		return NewONNXDetector(cfg)
	case BackendDNN:
		return NewDNNDetector(cfg)
	default:
		return nil, errUnknownBackend(backend)
	}
}
