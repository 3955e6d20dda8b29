// Package metric - The evaluation metric contract shared by all metric
// implementations and the types that flow through it.
package metric

import "go.uber.org/zap"

// Name is the unique identifier of a metric implementation.
type Name string

const (
	// NameVOC is the Pascal VOC mean-average-precision metric.
	NameVOC Name = "voc"
	// NameCOCO is the COCO-style result accumulation metric.
	NameCOCO Name = "coco"
	// NameReID is the re-identification TPR@FAR metric.
	NameReID Name = "reid"
)

// MapType selects how a precision/recall curve is reduced to a scalar
// average precision.
type MapType string

const (
	// MapType11Point averages the maximum precision at the 11 recall
	// thresholds 0.0, 0.1, ..., 1.0.
	MapType11Point MapType = "11point"
	// MapTypeIntegral integrates the monotonic precision envelope over
	// every point where recall changes.
	MapTypeIntegral MapType = "integral"
)

// Config carries construction parameters for all metric types. Each
// implementation validates the fields it uses and ignores the rest.
// All fields are fixed at construction.
type Config struct {
	// NumClasses is the number of detection classes.
	NumClasses int `json:"numClasses" yaml:"numClasses"`
	// Categories names the class catalog used to map class indices to
	// dataset category ids ("voc" or "coco").
	Categories string `json:"categories" yaml:"categories"`
	// OverlapThresh is the IoU threshold at or above which a prediction
	// matches a ground-truth box. Must be in [0,1].
	OverlapThresh float32 `json:"overlapThresh" yaml:"overlapThresh"`
	// MapType selects the average-precision interpolation mode.
	MapType MapType `json:"mapType" yaml:"mapType"`
	// Normalized is true when box coordinates are already normalized
	// to [0,1].
	Normalized bool `json:"normalized" yaml:"normalized"`
	// EvaluateDifficult includes ground truth flagged difficult in
	// scoring.
	EvaluateDifficult bool `json:"evaluateDifficult" yaml:"evaluateDifficult"`
	// FARLevels are the false-acceptance rates at which the ReID metric
	// reports TPR. Empty selects the default levels.
	FARLevels []float64 `json:"farLevels" yaml:"farLevels"`
	// OutputPath is where the COCO metric writes its result file.
	OutputPath string `json:"outputPath" yaml:"outputPath"`
	// Bias is added to COCO box widths and heights during conversion.
	Bias float32 `json:"bias" yaml:"bias"`
}

// DefaultConfig returns the construction parameters used when a field is
// left unset by the caller.
func DefaultConfig() Config {
	return Config{
		OverlapThresh: 0.5,
		MapType:       MapType11Point,
	}
}

// Metric accumulates per-image evaluation results across a dataset pass
// and reduces them to scalar scores.
//
// The lifecycle per evaluation run is strict:
//
//	Reset -> Update* -> Accumulate -> (Results | Log)*
//
// Update after Accumulate without an intervening Reset fails with
// ErrAccumulated. A second Accumulate without intervening updates is a
// no-op that keeps the previously computed results.
//
// A Metric is not safe for concurrent use; callers parallelizing a
// dataset pass accumulate into per-worker state and merge before a
// single Accumulate (see the voc package's Merge).
type Metric interface {
	// Name returns the metric identifier.
	Name() Name
	// Reset clears all accumulated state and re-arms Update.
	Reset()
	// Update folds one image's predictions and ground truth into the
	// accumulated state.
	Update(batch *Batch) error
	// Accumulate finalizes the accumulated state into scores.
	Accumulate() error
	// Log writes a human-readable summary of the finalized scores.
	Log(log *zap.Logger)
	// Results returns the finalized scores keyed by stat name.
	Results() map[string]float64
}
