package detector

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// decodeYOLO turns a flattened [rows x cols] YOLO-style output tensor
// into detections in original-image pixel coordinates. Each row is
// [cx, cy, w, h, objectness, class scores...] with box values
// normalized to [0,1], so a row needs at least six columns.
func decodeYOLO(out []float32, rows, cols, origW, origH int, confThresh, nmsThresh float32) ([]metric.Detection, error) {
	if cols < 6 {
		return nil, errors.Errorf("detector: output rows have %d columns, need at least 6", cols)
	}
	if len(out) < rows*cols {
		return nil, errors.Errorf("detector: output holds %d values, need %d", len(out), rows*cols)
	}

	var dets []metric.Detection

	for i := 0; i < rows; i++ {
		row := out[i*cols : (i+1)*cols]
		objectness := row[4]
		if objectness < confThresh {
			continue
		}

		classID := 0
		best := float32(0)
		for j := 5; j < cols; j++ {
			if row[j] > best {
				best = row[j]
				classID = j - 5
			}
		}

		score := objectness * best
		if score < confThresh {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		box := images.Box{
			XMin: (cx - w/2) * float32(origW),
			YMin: (cy - h/2) * float32(origH),
			XMax: (cx + w/2) * float32(origW),
			YMax: (cy + h/2) * float32(origH),
		}
		box = clampBox(box, float32(origW), float32(origH))

		dets = append(dets, metric.Detection{
			ClassID: classID,
			Score:   score,
			Box:     box,
		})
	}

	return applyNMS(dets, nmsThresh), nil
}

// applyNMS performs greedy class-aware non-maximum suppression: keep
// the highest-scored detection, drop same-class detections overlapping
// it above the threshold, repeat.
func applyNMS(dets []metric.Detection, iouThresh float32) []metric.Detection {
	if len(dets) == 0 {
		return nil
	}

	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Score > dets[j].Score })

	kept := make([]metric.Detection, 0, len(dets))
	used := make([]bool, len(dets))
	for i := range dets {
		if used[i] {
			continue
		}
		kept = append(kept, dets[i])
		used[i] = true

		for j := i + 1; j < len(dets); j++ {
			if used[j] || dets[j].ClassID != dets[i].ClassID {
				continue
			}
			if images.JaccardOverlap(dets[i].Box, dets[j].Box, true) > iouThresh {
				used[j] = true
			}
		}
	}
	return kept
}

func clampBox(b images.Box, w, h float32) images.Box {
	return images.Box{
		XMin: clamp(b.XMin, 0, w),
		YMin: clamp(b.YMin, 0, h),
		XMax: clamp(b.XMax, 0, w),
		YMax: clamp(b.YMax, 0, h),
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
