// Package images - Bounding box geometry shared by the evaluation metrics.
package images

// Box is a bounding box as an [xmin, ymin, xmax, ymax] quadruple.
//
// Coordinates are either pixel values or normalized to [0,1]; the two
// spaces differ in how widths and heights are measured (pixel boxes are
// inclusive of their last pixel), so functions that depend on area take
// a normalized flag.
type Box struct {
	XMin, YMin, XMax, YMax float32
}

// Scale divides the box coordinates by a per-image (height, width) scale
// factor, moving pixel coordinates into the normalized space used by
// models that emit normalized boxes.
func (b Box) Scale(h, w float32) Box {
	return Box{
		XMin: b.XMin / w,
		YMin: b.YMin / h,
		XMax: b.XMax / w,
		YMax: b.YMax / h,
	}
}

// IsZero reports whether every coordinate is zero. Batched annotation
// loaders pad ground-truth arrays with zero rows; see PruneZeroPadding.
func (b Box) IsZero() bool {
	return b.XMin == 0 && b.YMin == 0 && b.XMax == 0 && b.YMax == 0
}

// size returns the width and height of the box. Pixel-space boxes count
// both endpoints, normalized boxes do not.
func (b Box) size(normalized bool) (w, h float32) {
	if normalized {
		return b.XMax - b.XMin, b.YMax - b.YMin
	}
	return b.XMax - b.XMin + 1, b.YMax - b.YMin + 1
}

// JaccardOverlap computes the Intersection over Union (IoU) of two boxes:
// the ratio of their overlapping area to the area of their union.
//
// Arguments:
//   - a, b: The boxes to compare, in the same coordinate space.
//   - normalized: True if coordinates are normalized to [0,1].
//
// Returns:
//   - The IoU in [0,1]. Boxes that do not overlap, or whose union has
//     non-positive area, yield 0.
func JaccardOverlap(a, b Box, normalized bool) float32 {
	if a.XMin >= b.XMax || a.XMax <= b.XMin ||
		a.YMin >= b.YMax || a.YMax <= b.YMin {
		return 0
	}

	inter := Box{
		XMin: max(a.XMin, b.XMin),
		YMin: max(a.YMin, b.YMin),
		XMax: min(a.XMax, b.XMax),
		YMax: min(a.YMax, b.YMax),
	}

	iw, ih := inter.size(normalized)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	interArea := iw * ih

	aw, ah := a.size(normalized)
	bw, bh := b.size(normalized)
	union := aw*ah + bw*bh - interArea
	if union <= 0 {
		return 0
	}

	return interArea / union
}
