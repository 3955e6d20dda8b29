package harness

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detector"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Source produces the predictions for one evaluation sample.
type Source interface {
	// Detections returns the predictions for the sample.
	Detections(ctx context.Context, sample *dataset.Sample) ([]metric.Detection, error)
}

// PredictionSource serves stored model output from a prediction file.
type PredictionSource struct {
	set dataset.PredictionSet
}

// NewPredictionSource wraps a loaded prediction set.
func NewPredictionSource(set dataset.PredictionSet) *PredictionSource {
	return &PredictionSource{set: set}
}

// Detections returns the stored predictions for the sample's image.
func (s *PredictionSource) Detections(
	_ context.Context, sample *dataset.Sample,
) ([]metric.Detection, error) {
	return s.set.Detections(sample.Name), nil
}

// imageExtensions matches the formats dataset.LoadImageFiles accepts.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// DetectorSource runs live inference over the dataset's image files.
type DetectorSource struct {
	det      detector.Detector
	imageDir string
}

// NewDetectorSource pairs a detector with the directory holding the
// dataset's images.
func NewDetectorSource(det detector.Detector, imageDir string) *DetectorSource {
	return &DetectorSource{det: det, imageDir: imageDir}
}

// Detections decodes the sample's image and runs the detector on it.
func (s *DetectorSource) Detections(
	ctx context.Context, sample *dataset.Sample,
) ([]metric.Detection, error) {
	img, err := s.loadImage(sample.Name)
	if err != nil {
		return nil, err
	}
	return s.det.Detect(ctx, img)
}

// Close releases the underlying detector.
func (s *DetectorSource) Close() error {
	return s.det.Close()
}

func (s *DetectorSource) loadImage(name string) (image.Image, error) {
	for _, ext := range imageExtensions {
		path := filepath.Join(s.imageDir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "harness: reading image %s", path)
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(err, "harness: decoding image %s", path)
		}
		return img, nil
	}
	return nil, errors.Errorf("harness: no image found for sample %s in %s", name, s.imageDir)
}
