package voc

import "github.com/nvr-ai/go-eval/metrics/metric"

// PRPoint is one point on a precision/recall curve, in increasing-recall
// order.
type PRPoint struct {
	Recall    float64
	Precision float64
}

// averagePrecision reduces a finalized precision/recall curve to a
// scalar under the configured interpolation mode. An empty curve (a
// class with ground truth but no predictions) scores 0.
func averagePrecision(points []PRPoint, mapType metric.MapType) float64 {
	if len(points) == 0 {
		return 0
	}
	if mapType == metric.MapType11Point {
		return ap11Point(points)
	}
	return apIntegral(points)
}

// ap11Point averages, over the recall thresholds 0.0, 0.1, ..., 1.0, the
// maximum precision observed at any recall at or above the threshold.
// Thresholds the curve never reaches contribute zero.
func ap11Point(points []PRPoint) float64 {
	sum := 0.0
	for i := 0; i <= 10; i++ {
		threshold := float64(i) / 10
		best := 0.0
		for _, p := range points {
			if p.Recall >= threshold && p.Precision > best {
				best = p.Precision
			}
		}
		sum += best
	}
	return sum / 11
}

// apIntegral integrates the monotonic precision envelope over every
// point where recall changes. Each precision is first replaced by the
// maximum of itself and all precisions at equal-or-higher recall, so the
// integrated curve is non-increasing in recall.
func apIntegral(points []PRPoint) float64 {
	envelope := make([]float64, len(points))
	best := 0.0
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Precision > best {
			best = points[i].Precision
		}
		envelope[i] = best
	}

	ap := 0.0
	prevRecall := 0.0
	for i, p := range points {
		if p.Recall > prevRecall {
			ap += envelope[i] * (p.Recall - prevRecall)
			prevRecall = p.Recall
		}
	}
	return ap
}
