package dataset

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Prediction is one stored model detection.
type Prediction struct {
	// ClassID is the predicted class index.
	ClassID int `json:"class_id"`
	// Score is the prediction confidence.
	Score float32 `json:"score"`
	// Box is [xmin, ymin, xmax, ymax].
	Box [4]float32 `json:"box"`
}

// PredictionSet maps image names to their stored detections, letting
// the harness evaluate saved model output without running inference.
type PredictionSet map[string][]Prediction

// rawPrediction mirrors array-style dump formats: parallel boxes,
// scores and labels for one image.
type rawPrediction struct {
	Boxes  [][4]float32 `json:"boxes"`
	Scores []float32    `json:"scores"`
	Labels []int        `json:"labels"`
}

func (r rawPrediction) predictions() ([]Prediction, error) {
	boxes := make([]images.Box, len(r.Boxes))
	for i, b := range r.Boxes {
		boxes[i] = images.Box{XMin: b[0], YMin: b[1], XMax: b[2], YMax: b[3]}
	}

	batch, err := metric.NewDetectionBatch(boxes, r.Scores, r.Labels, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	preds := make([]Prediction, len(batch.Detections))
	for i, d := range batch.Detections {
		preds[i] = Prediction{
			ClassID: d.ClassID,
			Score:   d.Score,
			Box:     [4]float32{d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax},
		}
	}
	return preds, nil
}

// LoadPredictions reads a JSON prediction file. Two per-image layouts
// are accepted: a list of record objects, or parallel
// boxes/scores/labels arrays as written by array-dump tools. The
// parallel form is validated against length mismatches.
func LoadPredictions(path string) (PredictionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: reading predictions %s", path)
	}

	var rawSet map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSet); err != nil {
		return nil, errors.Wrapf(err, "dataset: parsing predictions %s", path)
	}

	set := make(PredictionSet, len(rawSet))
	for name, raw := range rawSet {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var preds []Prediction
			if err := json.Unmarshal(raw, &preds); err != nil {
				return nil, errors.Wrapf(err, "dataset: parsing predictions for %s", name)
			}
			set[name] = preds
			continue
		}

		var rp rawPrediction
		if err := json.Unmarshal(raw, &rp); err != nil {
			return nil, errors.Wrapf(err, "dataset: parsing predictions for %s", name)
		}
		preds, err := rp.predictions()
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: predictions for %s", name)
		}
		set[name] = preds
	}
	return set, nil
}

// Detections returns the stored detections for an image as metric
// records. An image with no stored predictions yields nil.
func (p PredictionSet) Detections(image string) []metric.Detection {
	preds := p[image]
	if len(preds) == 0 {
		return nil
	}

	dets := make([]metric.Detection, len(preds))
	for i, pr := range preds {
		dets[i] = metric.Detection{
			ClassID: pr.ClassID,
			Score:   pr.Score,
			Box: images.Box{
				XMin: pr.Box[0],
				YMin: pr.Box[1],
				XMax: pr.Box[2],
				YMax: pr.Box[3],
			},
		}
	}
	return dets
}
