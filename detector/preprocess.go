package detector

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

func errUnknownBackend(b Backend) error {
	return errors.Errorf("detector: unknown backend %q", b)
}

// preprocess resizes the image to the model input size and packs it as
// a normalized NCHW float32 tensor in RGB channel order.
func preprocess(img image.Image, width, height int) []float32 {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)

	data := make([]float32, 3*height*width)
	plane := height * width
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*width + x
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(b>>8) / 255.0
		}
	}
	return data
}
