package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

func TestDecodeYOLO(t *testing.T) {
	// Two rows, 5 + 2 class columns. First row is a confident class-1
	// detection centered at (0.5, 0.5); second fails the objectness
	// threshold.
	cols := 7
	out := []float32{
		0.5, 0.5, 0.2, 0.4, 0.9, 0.1, 0.8,
		0.3, 0.3, 0.1, 0.1, 0.2, 0.9, 0.1,
	}

	dets, err := decodeYOLO(out, 2, cols, 100, 200, 0.5, 0.45)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, 1, d.ClassID)
	assert.InDelta(t, 0.9*0.8, d.Score, 1e-6)
	assert.InDelta(t, 40, d.Box.XMin, 1e-4)
	assert.InDelta(t, 60, d.Box.YMin, 1e-4)
	assert.InDelta(t, 60, d.Box.XMax, 1e-4)
	assert.InDelta(t, 140, d.Box.YMax, 1e-4)
}

func TestDecodeYOLOClampsToImage(t *testing.T) {
	cols := 6
	// Box spills past the right edge.
	out := []float32{0.95, 0.5, 0.3, 0.3, 0.9, 0.9}

	dets, err := decodeYOLO(out, 1, cols, 100, 100, 0.5, 0.45)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.LessOrEqual(t, dets[0].Box.XMax, float32(100))
}

func TestDecodeYOLONarrowOutput(t *testing.T) {
	// Five columns leave no class scores; the decoder must refuse the
	// shape rather than index past the row.
	out := []float32{0.5, 0.5, 0.2, 0.4, 0.9}
	_, err := decodeYOLO(out, 1, 5, 100, 100, 0.5, 0.45)
	assert.ErrorContains(t, err, "columns")
}

func TestDecodeYOLOShortBuffer(t *testing.T) {
	out := []float32{0.5, 0.5, 0.2, 0.4, 0.9, 0.8}
	_, err := decodeYOLO(out, 2, 6, 100, 100, 0.5, 0.45)
	assert.Error(t, err)
}

func TestApplyNMS(t *testing.T) {
	a := metric.Detection{ClassID: 0, Score: 0.9, Box: images.Box{0, 0, 1, 1}}
	b := metric.Detection{ClassID: 0, Score: 0.8, Box: images.Box{0.05, 0.05, 1.05, 1.05}}
	c := metric.Detection{ClassID: 0, Score: 0.7, Box: images.Box{5, 5, 6, 6}}
	// Same box as a, different class: survives class-aware suppression.
	d := metric.Detection{ClassID: 1, Score: 0.6, Box: images.Box{0, 0, 1, 1}}

	kept := applyNMS([]metric.Detection{b, a, c, d}, 0.45)
	require.Len(t, kept, 3)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, float32(0.7), kept[1].Score)
	assert.Equal(t, 1, kept[2].ClassID)
}

func TestApplyNMSEmpty(t *testing.T) {
	assert.Nil(t, applyNMS(nil, 0.5))
}

func TestPreprocessShapeAndRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 128, B: 0, A: 255})
		}
	}

	data := preprocess(img, 4, 2)
	require.Len(t, data, 3*2*4)

	// R plane near 1, G near 0.5, B at 0.
	assert.InDelta(t, 1.0, data[0], 0.02)
	assert.InDelta(t, 0.5, data[2*4], 0.02)
	assert.InDelta(t, 0.0, data[2*2*4], 0.02)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("tflite", Config{})
	assert.Error(t, err)
}

func TestNewONNXDetectorMissingModel(t *testing.T) {
	_, err := NewONNXDetector(Config{ModelPath: "/nonexistent/model.onnx", InputWidth: 640, InputHeight: 640})
	assert.Error(t, err)
}
