package voc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

func newMAP(t *testing.T, cfg Config) *DetectionMAP {
	t.Helper()
	if cfg.NumClasses == 0 {
		cfg.NumClasses = 1
	}
	if cfg.OverlapThresh == 0 {
		cfg.OverlapThresh = 0.5
	}
	if cfg.MapType == "" {
		cfg.MapType = metric.MapType11Point
	}
	m, err := NewDetectionMAP(cfg)
	require.NoError(t, err)
	return m
}

func det(class int, score float32, box images.Box) metric.Detection {
	return metric.Detection{ClassID: class, Score: score, Box: box}
}

func gt(class int, box images.Box) metric.GroundTruth {
	return metric.GroundTruth{ClassID: class, Box: box}
}

func TestNewDetectionMAPValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero classes", Config{NumClasses: 0, OverlapThresh: 0.5, MapType: metric.MapType11Point}},
		{"negative threshold", Config{NumClasses: 1, OverlapThresh: -0.1, MapType: metric.MapType11Point}},
		{"threshold above one", Config{NumClasses: 1, OverlapThresh: 1.5, MapType: metric.MapType11Point}},
		{"bad map type", Config{NumClasses: 1, OverlapThresh: 0.5, MapType: "7point"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetectionMAP(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestPerfectDetector(t *testing.T) {
	// One class, one image, one ground-truth box, one identical
	// prediction with score 1.0.
	for _, mapType := range []metric.MapType{metric.MapType11Point, metric.MapTypeIntegral} {
		t.Run(string(mapType), func(t *testing.T) {
			m := newMAP(t, Config{MapType: mapType, Normalized: true})

			box := images.Box{XMin: 0.1, YMin: 0.1, XMax: 0.6, YMax: 0.6}
			require.NoError(t, m.Update(
				[]metric.Detection{det(0, 1.0, box)},
				[]metric.GroundTruth{gt(0, box)},
			))
			require.NoError(t, m.Accumulate())

			mAP, err := m.MAP()
			require.NoError(t, err)
			assert.InDelta(t, 1.0, mAP, 1e-9)
		})
	}
}

func TestAllFalsePositives(t *testing.T) {
	// Zero ground truth, three predictions: the class has no curve and
	// is excluded from the mean entirely.
	m := newMAP(t, Config{NumClasses: 2, Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, box), det(0, 0.8, box), det(0, 0.7, box)},
		[]metric.GroundTruth{gt(1, images.Box{XMin: 0, YMin: 0, XMax: 0.5, YMax: 0.5})},
	))
	require.NoError(t, m.Accumulate())

	aps, err := m.ClassAPs()
	require.NoError(t, err)
	assert.NotContains(t, aps, 0)
	assert.Contains(t, aps, 1)
	assert.Equal(t, 0.0, aps[1])

	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.Equal(t, 0.0, mAP)
}

func TestEmptyGroundTruthImage(t *testing.T) {
	// An image with no ground truth turns every prediction into a false
	// positive; ground truth elsewhere keeps the class in the mean.
	m := newMAP(t, Config{Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, box)},
		nil,
	))
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.8, box)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())

	// rank 1: FP (score 0.9), rank 2: TP -> precision 1/2 at recall 1.
	mAP, err := m.MAP()
	require.NoError(t, err)
	// 11-point: thresholds 0.0..1.0 all see max precision 0.5.
	assert.InDelta(t, 0.5, mAP, 1e-9)
}

func TestThresholdBoundaryIsMatch(t *testing.T) {
	// IoU exactly equal to the overlap threshold counts as a match.
	m := newMAP(t, Config{OverlapThresh: 0.5, Normalized: true})

	// Boxes engineered for IoU of exactly 0.5: intersection 0.5, union 1.
	a := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	b := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 0.5}
	require.Equal(t, float32(0.5), images.JaccardOverlap(a, b, true))

	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, a)},
		[]metric.GroundTruth{gt(0, b)},
	))
	require.NoError(t, m.Accumulate())

	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mAP, 1e-9)
}

func TestGroundTruthMatchedOnce(t *testing.T) {
	// A second, lower-scored prediction on an already-claimed box is a
	// false positive.
	m := newMAP(t, Config{Normalized: true, MapType: metric.MapTypeIntegral})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, box), det(0, 0.8, box)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())

	// Curve: (recall 1, precision 1), (recall 1, precision 0.5).
	// Integral mode integrates only where recall changes: AP = 1.
	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mAP, 1e-9)
}

func TestDifficultInstanceExclusion(t *testing.T) {
	// A difficult box with EvaluateDifficult=false neither counts toward
	// the recall denominator nor penalizes a prediction matching it.
	m := newMAP(t, Config{NumClasses: 1, Normalized: true})

	hard := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	easy := images.Box{XMin: 2, YMin: 2, XMax: 3, YMax: 3}
	require.NoError(t, m.Update(
		[]metric.Detection{
			det(0, 0.9, hard), // matches only the difficult box: discarded
			det(0, 0.8, easy), // true positive
		},
		[]metric.GroundTruth{
			{ClassID: 0, Box: hard, Difficult: true},
			{ClassID: 0, Box: easy},
		},
	))
	require.NoError(t, m.Accumulate())

	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mAP, 1e-9)
}

func TestDifficultInstanceIncluded(t *testing.T) {
	// With EvaluateDifficult=true the difficult box behaves like any
	// other ground truth.
	m := newMAP(t, Config{Normalized: true, EvaluateDifficult: true})

	hard := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, hard)},
		[]metric.GroundTruth{{ClassID: 0, Box: hard, Difficult: true}},
	))
	require.NoError(t, m.Accumulate())

	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mAP, 1e-9)
}

func TestScoreTieStableOrder(t *testing.T) {
	// Equal scores keep insertion order when the curve is built.
	m := newMAP(t, Config{Normalized: true, MapType: metric.MapTypeIntegral})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	far := images.Box{XMin: 5, YMin: 5, XMax: 6, YMax: 6}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.5, box), det(0, 0.5, far)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())

	// TP first, then FP: precision 1 at recall 1.
	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mAP, 1e-9)
}

func TestUnknownClassID(t *testing.T) {
	m := newMAP(t, Config{NumClasses: 2, Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	err := m.Update([]metric.Detection{det(5, 0.9, box)}, nil)
	assert.Error(t, err)

	err = m.Update(nil, []metric.GroundTruth{gt(-1, box)})
	assert.Error(t, err)
}

func TestAccumulateIdempotent(t *testing.T) {
	m := newMAP(t, Config{Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, box)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())
	first, err := m.MAP()
	require.NoError(t, err)

	require.NoError(t, m.Accumulate())
	second, err := m.MAP()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdateAfterAccumulateRejected(t *testing.T) {
	m := newMAP(t, Config{Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 0.9, box)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())

	err := m.Update([]metric.Detection{det(0, 0.5, box)}, nil)
	assert.ErrorIs(t, err, metric.ErrAccumulated)

	// Reset re-arms the accumulator.
	m.Reset()
	assert.NoError(t, m.Update([]metric.Detection{det(0, 0.5, box)}, nil))
}

func TestResultsBeforeAccumulate(t *testing.T) {
	m := newMAP(t, Config{Normalized: true})
	_, err := m.MAP()
	assert.ErrorIs(t, err, metric.ErrNotAccumulated)
	_, err = m.ClassAPs()
	assert.ErrorIs(t, err, metric.ErrNotAccumulated)
}

func TestMergeAssociativity(t *testing.T) {
	// Splitting a dataset across two accumulators and merging yields the
	// same scores as one accumulator seeing everything.
	cfg := Config{NumClasses: 3, OverlapThresh: 0.5, MapType: metric.MapTypeIntegral, Normalized: true}

	images3 := []struct {
		dets []metric.Detection
		gts  []metric.GroundTruth
	}{
		{
			dets: []metric.Detection{
				det(0, 0.9, images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}),
				det(1, 0.7, images.Box{XMin: 2, YMin: 2, XMax: 3, YMax: 3}),
			},
			gts: []metric.GroundTruth{
				gt(0, images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}),
				gt(1, images.Box{XMin: 2.5, YMin: 2.5, XMax: 3.5, YMax: 3.5}),
			},
		},
		{
			dets: []metric.Detection{
				det(0, 0.6, images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}),
				det(2, 0.95, images.Box{XMin: 4, YMin: 4, XMax: 5, YMax: 5}),
			},
			gts: []metric.GroundTruth{
				gt(2, images.Box{XMin: 4, YMin: 4, XMax: 5, YMax: 5}),
			},
		},
		{
			dets: []metric.Detection{
				det(1, 0.85, images.Box{XMin: 1, YMin: 1, XMax: 2, YMax: 2}),
			},
			gts: []metric.GroundTruth{
				gt(1, images.Box{XMin: 1, YMin: 1, XMax: 2, YMax: 2}),
				gt(0, images.Box{XMin: 7, YMin: 7, XMax: 8, YMax: 8}),
			},
		},
	}

	whole := newMAP(t, cfg)
	for _, img := range images3 {
		require.NoError(t, whole.Update(img.dets, img.gts))
	}
	require.NoError(t, whole.Accumulate())
	wantMAP, err := whole.MAP()
	require.NoError(t, err)
	wantAPs, err := whole.ClassAPs()
	require.NoError(t, err)

	left := newMAP(t, cfg)
	right := newMAP(t, cfg)
	require.NoError(t, left.Update(images3[0].dets, images3[0].gts))
	require.NoError(t, right.Update(images3[1].dets, images3[1].gts))
	require.NoError(t, right.Update(images3[2].dets, images3[2].gts))

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Accumulate())

	gotMAP, err := left.MAP()
	require.NoError(t, err)
	gotAPs, err := left.ClassAPs()
	require.NoError(t, err)

	assert.InDelta(t, wantMAP, gotMAP, 1e-12)
	require.Len(t, gotAPs, len(wantAPs))
	for c, want := range wantAPs {
		assert.InDelta(t, want, gotAPs[c], 1e-12, "class %d", c)
	}
}

func TestMergeConfigMismatch(t *testing.T) {
	a := newMAP(t, Config{NumClasses: 2, Normalized: true})
	b := newMAP(t, Config{NumClasses: 3, Normalized: true})
	assert.Error(t, a.Merge(b))
}

func TestAPBounds(t *testing.T) {
	// Mixed hits and misses across classes: all AP values stay in [0,1]
	// and mAP is the unweighted mean over classes with ground truth.
	m := newMAP(t, Config{NumClasses: 4, MapType: metric.MapTypeIntegral, Normalized: true})

	require.NoError(t, m.Update(
		[]metric.Detection{
			det(0, 0.9, images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}),
			det(0, 0.8, images.Box{XMin: 9, YMin: 9, XMax: 10, YMax: 10}),
			det(1, 0.7, images.Box{XMin: 2, YMin: 2, XMax: 3, YMax: 3}),
			det(3, 0.6, images.Box{XMin: 5, YMin: 5, XMax: 6, YMax: 6}),
		},
		[]metric.GroundTruth{
			gt(0, images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}),
			gt(0, images.Box{XMin: 4, YMin: 4, XMax: 5, YMax: 5}),
			gt(1, images.Box{XMin: 2, YMin: 2, XMax: 3, YMax: 3}),
			gt(2, images.Box{XMin: 6, YMin: 6, XMax: 7, YMax: 7}),
		},
	))
	require.NoError(t, m.Accumulate())

	aps, err := m.ClassAPs()
	require.NoError(t, err)
	sum := 0.0
	for c, ap := range aps {
		assert.GreaterOrEqual(t, ap, 0.0, "class %d", c)
		assert.LessOrEqual(t, ap, 1.0, "class %d", c)
		sum += ap
	}
	// Classes 0, 1, 2 have ground truth; class 3 does not.
	require.Len(t, aps, 3)

	mAP, err := m.MAP()
	require.NoError(t, err)
	assert.InDelta(t, sum/3, mAP, 1e-12)
}

func TestSummaryFormat(t *testing.T) {
	m := newMAP(t, Config{Normalized: true})

	box := images.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}
	require.NoError(t, m.Update(
		[]metric.Detection{det(0, 1.0, box)},
		[]metric.GroundTruth{gt(0, box)},
	))
	require.NoError(t, m.Accumulate())

	assert.Equal(t, "mAP(0.50, 11point) = 100.00%", m.Summary())
}
