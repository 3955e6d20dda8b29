// Package coco - COCO-style result accumulation. Detections are
// converted into COCO result records and written to a JSON result file;
// the actual COCO evaluation library is an external black box reached
// through the Evaluator interface.
package coco

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-eval/categories"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// DefaultOutputPath is where the result file is written when the
// configuration does not name a path.
const DefaultOutputPath = "bbox.json"

// Record is one detection in COCO result format: the box is
// [x, y, width, height] rather than corner coordinates.
type Record struct {
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	Bbox       [4]float32 `json:"bbox"`
	Score      float32    `json:"score"`
}

// Evaluator scores a written result file. Implementations wrap an
// external COCO evaluation library.
type Evaluator interface {
	Evaluate(resultFile string) (map[string]float64, error)
}

// Metric converts per-image detections to COCO records, accumulates
// them across a dataset pass, and at accumulate time writes the result
// file and invokes the evaluator if one is attached.
type Metric struct {
	classes    *categories.ClassSet
	outputPath string
	bias       float32
	evaluator  Evaluator

	records     []Record
	accumulated bool
	results     map[string]float64
}

// New builds a COCO metric. The category catalog defaults to COCO when
// the configuration does not name one.
func New(cfg metric.Config) (*Metric, error) {
	style := categories.Style(cfg.Categories)
	if style == "" {
		style = categories.StyleCOCO
	}
	classes, err := categories.ByStyle(style)
	if err != nil {
		return nil, err
	}

	out := cfg.OutputPath
	if out == "" {
		out = DefaultOutputPath
	}

	m := &Metric{
		classes:    classes,
		outputPath: out,
		bias:       cfg.Bias,
	}
	m.Reset()
	return m, nil
}

// WithEvaluator attaches an external evaluator and returns the metric.
func (m *Metric) WithEvaluator(e Evaluator) *Metric {
	m.evaluator = e
	return m
}

// Name returns the metric identifier.
func (m *Metric) Name() metric.Name { return metric.NameCOCO }

// Reset discards accumulated records and results.
func (m *Metric) Reset() {
	m.records = nil
	m.accumulated = false
	m.results = nil
}

// Update converts the batch's detections into result records. Corner
// coordinates become [x, y, w, h] with the configured bias added to
// widths and heights.
func (m *Metric) Update(batch *metric.Batch) error {
	if m.accumulated {
		return metric.ErrAccumulated
	}

	for _, det := range batch.Detections {
		catID, err := m.classes.CategoryID(det.ClassID)
		if err != nil {
			return err
		}
		m.records = append(m.records, Record{
			ImageID:    batch.ImageID,
			CategoryID: catID,
			Bbox: [4]float32{
				det.Box.XMin,
				det.Box.YMin,
				det.Box.XMax - det.Box.XMin + m.bias,
				det.Box.YMax - det.Box.YMin + m.bias,
			},
			Score: det.Score,
		})
	}
	return nil
}

// Accumulate writes the result file and runs the attached evaluator.
// With no records nothing is written. Calling it again keeps the
// previously computed results.
func (m *Metric) Accumulate() error {
	if m.accumulated {
		return nil
	}

	m.results = map[string]float64{
		"num_detections": float64(len(m.records)),
	}

	if len(m.records) > 0 {
		if err := m.writeResults(); err != nil {
			return err
		}
		if m.evaluator != nil {
			stats, err := m.evaluator.Evaluate(m.outputPath)
			if err != nil {
				return errors.Wrap(err, "coco: external evaluation")
			}
			for k, v := range stats {
				m.results[k] = v
			}
		}
	}

	m.accumulated = true
	return nil
}

func (m *Metric) writeResults() error {
	data, err := json.Marshal(m.records)
	if err != nil {
		return errors.Wrap(err, "coco: encoding results")
	}
	if err := os.WriteFile(m.outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "coco: writing %s", m.outputPath)
	}
	return nil
}

// Log reports where the results went and what the evaluator returned.
func (m *Metric) Log(log *zap.Logger) {
	log.Info("COCO results accumulated",
		zap.String("file", m.outputPath),
		zap.Int("detections", len(m.records)))
	for k, v := range m.results {
		if k == "num_detections" {
			continue
		}
		log.Info("COCO eval stat", zap.String("stat", k), zap.Float64("value", v))
	}
}

// Results returns the finalized stats: the record count plus whatever
// the evaluator produced.
func (m *Metric) Results() map[string]float64 {
	if !m.accumulated {
		return nil
	}
	out := make(map[string]float64, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}
