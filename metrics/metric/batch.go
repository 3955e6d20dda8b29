package metric

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/images"
)

// Detection is one predicted box for one image.
type Detection struct {
	// ClassID is the predicted class index.
	ClassID int
	// Score is the prediction confidence in [0,1].
	Score float32
	// Box is the predicted bounding box.
	Box images.Box
	// ImageIndex identifies the source image within the dataset pass.
	ImageIndex int
}

// GroundTruth is one annotated box for one image.
type GroundTruth struct {
	// ClassID is the annotated class index.
	ClassID int
	// Box is the annotated bounding box.
	Box images.Box
	// Difficult marks hard-to-detect instances that may be excluded
	// from scoring.
	Difficult bool
}

// Embedding is one identity feature vector for the ReID metric.
type Embedding struct {
	// Feature is the raw feature vector.
	Feature []float32
	// Identity is the annotated identity label; -1 marks an unlabeled
	// instance, which is skipped.
	Identity int
}

// Batch carries one image's worth of evaluation input.
type Batch struct {
	// ImageID identifies the image, used by the COCO result path.
	ImageID int
	// Detections are the model predictions for this image.
	Detections []Detection
	// GroundTruth is the annotation for this image.
	GroundTruth []GroundTruth
	// ScaleFactor is the optional per-image (height, width) factor used
	// to move pixel ground truth into normalized coordinates. Nil means
	// no scaling.
	ScaleFactor *ScaleFactor
	// Embeddings carry identity features for the ReID metric. Detection
	// metrics ignore them.
	Embeddings []Embedding
}

// ScaleFactor is a per-image (height, width) coordinate divisor.
type ScaleFactor struct {
	H, W float32
}

// NewDetectionBatch assembles a Batch from parallel prediction and
// ground-truth arrays, validating that they line up.
//
// Arguments:
//   - boxes, scores, labels: Per-prediction arrays of equal length.
//   - gtBoxes, gtLabels: Per-annotation arrays of equal length.
//   - difficult: Optional per-annotation flags; nil means none difficult.
//
// Returns:
//   - The assembled batch, or an error describing the length mismatch.
func NewDetectionBatch(
	boxes []images.Box, scores []float32, labels []int,
	gtBoxes []images.Box, gtLabels []int, difficult []bool,
) (*Batch, error) {
	if len(scores) != len(boxes) || len(labels) != len(boxes) {
		return nil, errors.Errorf(
			"prediction arrays disagree: %d boxes, %d scores, %d labels",
			len(boxes), len(scores), len(labels))
	}
	if len(gtLabels) != len(gtBoxes) {
		return nil, errors.Errorf(
			"ground-truth arrays disagree: %d boxes, %d labels",
			len(gtBoxes), len(gtLabels))
	}
	if difficult != nil && len(difficult) != len(gtBoxes) {
		return nil, errors.Errorf(
			"ground-truth arrays disagree: %d boxes, %d difficult flags",
			len(gtBoxes), len(difficult))
	}

	b := &Batch{
		Detections:  make([]Detection, len(boxes)),
		GroundTruth: make([]GroundTruth, len(gtBoxes)),
	}
	for i := range boxes {
		b.Detections[i] = Detection{ClassID: labels[i], Score: scores[i], Box: boxes[i]}
	}
	for i := range gtBoxes {
		gt := GroundTruth{ClassID: gtLabels[i], Box: gtBoxes[i]}
		if difficult != nil {
			gt.Difficult = difficult[i]
		}
		b.GroundTruth[i] = gt
	}
	return b, nil
}
