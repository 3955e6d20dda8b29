// Package voc - The Pascal VOC mean-average-precision engine: per-image
// greedy matching, dataset-wide accumulation, and precision/recall
// integration.
package voc

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Config fixes the evaluation parameters of a DetectionMAP at
// construction.
type Config struct {
	// NumClasses is the number of detection classes.
	NumClasses int
	// OverlapThresh is the IoU at or above which a prediction matches a
	// ground-truth box.
	OverlapThresh float32
	// MapType selects 11-point or integral average precision.
	MapType metric.MapType
	// Normalized is true when box coordinates are normalized to [0,1].
	Normalized bool
	// EvaluateDifficult includes difficult ground truth in scoring.
	EvaluateDifficult bool
}

// scorePos is one labeled prediction: its confidence and whether the
// matcher judged it a true positive.
type scorePos struct {
	score float32
	tp    bool
}

// DetectionMAP accumulates matched detections across a dataset pass and
// reduces them to per-class average precision and mAP.
//
// State is explicit and instance-local; nothing is process-wide. The
// zero value is not usable, construct with NewDetectionMAP.
type DetectionMAP struct {
	cfg Config

	// classScores[c] holds every scored prediction for class c, in
	// insertion order, across all images seen since the last Reset.
	classScores [][]scorePos
	// gtCounts[c] is the recall denominator for class c.
	gtCounts []int

	accumulated bool
	aps         map[int]float64
	mAP         float64
}

// NewDetectionMAP validates the configuration and returns an empty
// accumulator.
func NewDetectionMAP(cfg Config) (*DetectionMAP, error) {
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("voc: invalid class count %d", cfg.NumClasses)
	}
	if cfg.OverlapThresh < 0 || cfg.OverlapThresh > 1 {
		return nil, errors.Errorf("voc: overlap threshold %v outside [0,1]", cfg.OverlapThresh)
	}
	switch cfg.MapType {
	case metric.MapType11Point, metric.MapTypeIntegral:
	default:
		return nil, errors.Errorf("voc: unknown map type %q", cfg.MapType)
	}

	m := &DetectionMAP{cfg: cfg}
	m.Reset()
	return m, nil
}

// Reset discards all accumulated state and re-arms Update.
func (m *DetectionMAP) Reset() {
	m.classScores = make([][]scorePos, m.cfg.NumClasses)
	m.gtCounts = make([]int, m.cfg.NumClasses)
	m.accumulated = false
	m.aps = nil
	m.mAP = 0
}

// Update matches one image's predictions against its ground truth and
// folds the labeled results into the running per-class records.
//
// Matching is greedy per prediction, in the order supplied: each
// prediction takes the unmatched same-class ground-truth box with the
// highest IoU. IoU at or above the overlap threshold is a match. A match
// to a difficult box while difficult instances are excluded discards the
// prediction entirely; a match to an already-claimed box, or no
// qualifying box at all, is a false positive. An image with no ground
// truth makes every prediction a false positive.
func (m *DetectionMAP) Update(dets []metric.Detection, gts []metric.GroundTruth) error {
	if m.accumulated {
		return metric.ErrAccumulated
	}

	for _, gt := range gts {
		if err := m.checkClass(gt.ClassID); err != nil {
			return err
		}
		if m.cfg.EvaluateDifficult || !gt.Difficult {
			m.gtCounts[gt.ClassID]++
		}
	}

	// matched flags live for this image's pass only: a ground-truth box
	// claimed by one prediction cannot be claimed again by a later,
	// lower-scored one.
	matched := make([]bool, len(gts))

	for _, det := range dets {
		if err := m.checkClass(det.ClassID); err != nil {
			return err
		}

		bestIdx := -1
		bestIoU := float32(-1)
		for i, gt := range gts {
			if gt.ClassID != det.ClassID {
				continue
			}
			iou := images.JaccardOverlap(det.Box, gt.Box, m.cfg.Normalized)
			if iou > bestIoU {
				bestIoU = iou
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestIoU >= m.cfg.OverlapThresh {
			if !m.cfg.EvaluateDifficult && gts[bestIdx].Difficult {
				// Matching only a difficult box is neither rewarded nor
				// penalized.
				continue
			}
			if !matched[bestIdx] {
				matched[bestIdx] = true
				m.classScores[det.ClassID] = append(m.classScores[det.ClassID],
					scorePos{score: det.Score, tp: true})
				continue
			}
		}
		m.classScores[det.ClassID] = append(m.classScores[det.ClassID],
			scorePos{score: det.Score, tp: false})
	}

	return nil
}

// Merge folds another accumulator's per-class records into this one.
// The final scores depend only on score-sorted order, so workers may
// accumulate disjoint slices of a dataset independently and merge before
// a single Accumulate.
func (m *DetectionMAP) Merge(other *DetectionMAP) error {
	if m.accumulated || other.accumulated {
		return metric.ErrAccumulated
	}
	if other.cfg != m.cfg {
		return errors.New("voc: cannot merge accumulators with different configurations")
	}
	for c := range m.classScores {
		m.classScores[c] = append(m.classScores[c], other.classScores[c]...)
		m.gtCounts[c] += other.gtCounts[c]
	}
	return nil
}

// Accumulate sorts each class's records by descending score, derives the
// precision/recall curve, and integrates it into per-class average
// precision and the mean. Calling it again without intervening updates
// keeps the previously computed scores.
func (m *DetectionMAP) Accumulate() error {
	if m.accumulated {
		return nil
	}

	m.aps = make(map[int]float64, m.cfg.NumClasses)
	sum := 0.0
	valid := 0

	for c := 0; c < m.cfg.NumClasses; c++ {
		if m.gtCounts[c] == 0 {
			// No ground truth for this class anywhere in the dataset:
			// it contributes no curve and does not enter the mean.
			continue
		}
		valid++

		curve := m.curve(c)
		ap := averagePrecision(curve, m.cfg.MapType)
		m.aps[c] = ap
		sum += ap
	}

	if valid > 0 {
		m.mAP = sum / float64(valid)
	} else {
		m.mAP = 0
	}
	m.accumulated = true
	return nil
}

// curve derives the precision/recall points for one class. Records are
// sorted by descending score with a stable tie-break on insertion order.
func (m *DetectionMAP) curve(class int) []PRPoint {
	records := make([]scorePos, len(m.classScores[class]))
	copy(records, m.classScores[class])
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].score > records[j].score
	})

	points := make([]PRPoint, 0, len(records))
	tp, fp := 0, 0
	for _, r := range records {
		if r.tp {
			tp++
		} else {
			fp++
		}
		points = append(points, PRPoint{
			Recall:    float64(tp) / float64(m.gtCounts[class]),
			Precision: float64(tp) / float64(tp+fp),
		})
	}
	return points
}

// MAP returns the finalized mean average precision.
func (m *DetectionMAP) MAP() (float64, error) {
	if !m.accumulated {
		return 0, metric.ErrNotAccumulated
	}
	return m.mAP, nil
}

// ClassAPs returns the finalized per-class average precisions, keyed by
// class id, for every class that had at least one ground-truth instance.
func (m *DetectionMAP) ClassAPs() (map[int]float64, error) {
	if !m.accumulated {
		return nil, metric.ErrNotAccumulated
	}
	out := make(map[int]float64, len(m.aps))
	for c, ap := range m.aps {
		out[c] = ap
	}
	return out, nil
}

// Summary formats the finalized mAP in the conventional form, e.g.
// "mAP(0.50, 11point) = 73.20%".
func (m *DetectionMAP) Summary() string {
	return fmt.Sprintf("mAP(%.2f, %s) = %.2f%%",
		m.cfg.OverlapThresh, m.cfg.MapType, 100*m.mAP)
}

func (m *DetectionMAP) checkClass(id int) error {
	if id < 0 || id >= m.cfg.NumClasses {
		return errors.Errorf("voc: class id %d outside [0,%d)", id, m.cfg.NumClasses)
	}
	return nil
}
