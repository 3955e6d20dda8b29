package voc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-eval/metrics/metric"
)

func TestAveragePrecisionEmptyCurve(t *testing.T) {
	assert.Equal(t, 0.0, averagePrecision(nil, metric.MapType11Point))
	assert.Equal(t, 0.0, averagePrecision(nil, metric.MapTypeIntegral))
}

func TestAP11Point(t *testing.T) {
	// Max precision is 1.0 for thresholds up to 0.5 (six thresholds:
	// 0.0..0.5) and 0.6 for 0.6..1.0 (five thresholds).
	points := []PRPoint{
		{Recall: 0.5, Precision: 1.0},
		{Recall: 1.0, Precision: 0.6},
	}
	want := (6*1.0 + 5*0.6) / 11
	assert.InDelta(t, want, ap11Point(points), 1e-12)
}

func TestAP11PointUnreachedRecall(t *testing.T) {
	// Thresholds beyond the maximum recall contribute zero.
	points := []PRPoint{{Recall: 0.3, Precision: 0.8}}
	want := 4 * 0.8 / 11 // thresholds 0.0, 0.1, 0.2, 0.3
	assert.InDelta(t, want, ap11Point(points), 1e-12)
}

func TestAPIntegral(t *testing.T) {
	points := []PRPoint{
		{Recall: 0.25, Precision: 1.0},
		{Recall: 0.5, Precision: 0.5},
		{Recall: 0.75, Precision: 0.6},
		{Recall: 1.0, Precision: 0.4},
	}
	// Envelope: 1.0, 0.6, 0.6, 0.4.
	want := 0.25*1.0 + 0.25*0.6 + 0.25*0.6 + 0.25*0.4
	assert.InDelta(t, want, apIntegral(points), 1e-12)
}

func TestAPIntegralEnvelopeMonotone(t *testing.T) {
	// The envelope used for integration must be non-decreasing when
	// read in order of decreasing recall.
	points := []PRPoint{
		{Recall: 0.2, Precision: 0.3},
		{Recall: 0.4, Precision: 0.9},
		{Recall: 0.6, Precision: 0.2},
		{Recall: 0.8, Precision: 0.7},
		{Recall: 1.0, Precision: 0.1},
	}

	envelope := make([]float64, len(points))
	best := 0.0
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Precision > best {
			best = points[i].Precision
		}
		envelope[i] = best
	}
	for i := 1; i < len(envelope); i++ {
		assert.GreaterOrEqual(t, envelope[i-1], envelope[i])
	}

	// And integrating it stays within [0,1].
	ap := apIntegral(points)
	assert.GreaterOrEqual(t, ap, 0.0)
	assert.LessOrEqual(t, ap, 1.0)
}

func TestAPIntegralRepeatedRecall(t *testing.T) {
	// Points where recall does not change add nothing.
	points := []PRPoint{
		{Recall: 0.5, Precision: 1.0},
		{Recall: 0.5, Precision: 0.5},
		{Recall: 0.5, Precision: 0.33},
	}
	assert.InDelta(t, 0.5, apIntegral(points), 1e-12)
}
