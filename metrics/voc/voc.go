package voc

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Metric is the Pascal VOC mAP metric. It unpacks per-image batches,
// normalizes ground-truth coordinates when a scale factor is supplied,
// strips zero padding, and delegates to a DetectionMAP accumulator.
type Metric struct {
	cfg  Config
	dmap *DetectionMAP
}

// New builds a VOC metric from the shared metric configuration,
// applying defaults for unset fields.
func New(cfg metric.Config) (*Metric, error) {
	vcfg := Config{
		NumClasses:        cfg.NumClasses,
		OverlapThresh:     cfg.OverlapThresh,
		MapType:           cfg.MapType,
		Normalized:        cfg.Normalized,
		EvaluateDifficult: cfg.EvaluateDifficult,
	}
	if vcfg.OverlapThresh == 0 {
		vcfg.OverlapThresh = metric.DefaultConfig().OverlapThresh
	}
	if vcfg.MapType == "" {
		vcfg.MapType = metric.DefaultConfig().MapType
	}

	dmap, err := NewDetectionMAP(vcfg)
	if err != nil {
		return nil, err
	}
	return &Metric{cfg: vcfg, dmap: dmap}, nil
}

// Name returns the metric identifier.
func (m *Metric) Name() metric.Name { return metric.NameVOC }

// Reset clears all accumulated state.
func (m *Metric) Reset() { m.dmap.Reset() }

// Update folds one image's predictions and ground truth into the
// accumulator. Ground truth is scaled into normalized coordinates when
// the batch carries a scale factor, and trailing zero padding is
// stripped before matching.
func (m *Metric) Update(batch *Batch) error {
	gts := batch.GroundTruth

	if batch.ScaleFactor != nil {
		scaled := make([]metric.GroundTruth, len(gts))
		for i, gt := range gts {
			gt.Box = gt.Box.Scale(batch.ScaleFactor.H, batch.ScaleFactor.W)
			scaled[i] = gt
		}
		gts = scaled
	}

	gts = pruneZeroPadding(gts)

	return m.dmap.Update(batch.Detections, gts)
}

// Accumulate finalizes the accumulated records into per-class AP and
// mAP.
func (m *Metric) Accumulate() error { return m.dmap.Accumulate() }

// Log writes the mAP summary line.
func (m *Metric) Log(log *zap.Logger) {
	log.Info(m.dmap.Summary())
}

// Results returns the finalized mAP plus one "AP/<class>" entry per
// class that had ground truth.
func (m *Metric) Results() map[string]float64 {
	mAP, err := m.dmap.MAP()
	if err != nil {
		return nil
	}
	aps, _ := m.dmap.ClassAPs()

	out := make(map[string]float64, len(aps)+1)
	out["mAP"] = mAP
	for c, ap := range aps {
		out[APKey(c)] = ap
	}
	return out
}

// APKey names a per-class AP result entry.
func APKey(class int) string {
	return fmt.Sprintf("AP/%d", class)
}

// Batch aliases the shared batch type for callers of this package.
type Batch = metric.Batch

// pruneZeroPadding strips trailing zero-box annotations produced by
// batched loaders.
func pruneZeroPadding(gts []metric.GroundTruth) []metric.GroundTruth {
	boxes := make([]images.Box, len(gts))
	for i, gt := range gts {
		boxes[i] = gt.Box
	}
	boxes, _, _ = images.PruneZeroPadding(boxes, nil, nil)
	return gts[:len(boxes)]
}
