package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-eval/images"
)

func TestNewDetectionBatch(t *testing.T) {
	boxes := []images.Box{{XMin: 0, YMin: 0, XMax: 10, YMax: 10}, {XMin: 5, YMin: 5, XMax: 20, YMax: 20}}
	gtBoxes := []images.Box{{XMin: 0, YMin: 0, XMax: 10, YMax: 10}}

	b, err := NewDetectionBatch(
		boxes, []float32{0.9, 0.4}, []int{3, 7},
		gtBoxes, []int{3}, []bool{true},
	)
	require.NoError(t, err)

	require.Len(t, b.Detections, 2)
	assert.Equal(t, Detection{ClassID: 3, Score: 0.9, Box: boxes[0]}, b.Detections[0])
	assert.Equal(t, Detection{ClassID: 7, Score: 0.4, Box: boxes[1]}, b.Detections[1])

	require.Len(t, b.GroundTruth, 1)
	assert.Equal(t, GroundTruth{ClassID: 3, Box: gtBoxes[0], Difficult: true}, b.GroundTruth[0])
}

func TestNewDetectionBatchNilDifficult(t *testing.T) {
	b, err := NewDetectionBatch(
		nil, nil, nil,
		[]images.Box{{XMin: 0, YMin: 0, XMax: 10, YMax: 10}}, []int{2}, nil,
	)
	require.NoError(t, err)
	require.Len(t, b.GroundTruth, 1)
	assert.False(t, b.GroundTruth[0].Difficult)
}

func TestNewDetectionBatchLengthMismatch(t *testing.T) {
	boxes := []images.Box{{XMin: 0, YMin: 0, XMax: 10, YMax: 10}}
	gtBoxes := []images.Box{{XMin: 0, YMin: 0, XMax: 10, YMax: 10}}

	tests := []struct {
		name      string
		scores    []float32
		labels    []int
		gtLabels  []int
		difficult []bool
	}{
		{
			name:     "missing score",
			scores:   nil,
			labels:   []int{1},
			gtLabels: []int{1},
		},
		{
			name:     "extra label",
			scores:   []float32{0.5},
			labels:   []int{1, 2},
			gtLabels: []int{1},
		},
		{
			name:     "ground-truth label mismatch",
			scores:   []float32{0.5},
			labels:   []int{1},
			gtLabels: []int{1, 2},
		},
		{
			name:      "difficult flag mismatch",
			scores:    []float32{0.5},
			labels:    []int{1},
			gtLabels:  []int{1},
			difficult: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetectionBatch(
				boxes, tt.scores, tt.labels,
				gtBoxes, tt.gtLabels, tt.difficult,
			)
			assert.ErrorContains(t, err, "disagree")
		})
	}
}
