package images

// PruneZeroPadding strips trailing all-zero rows from a padded
// ground-truth batch. Annotation loaders pad every image in a batch to
// the same box count; the padding rows are zero boxes and must not be
// scored as real ground truth.
//
// The labels slice and the optional difficult slice are truncated to the
// same length as the surviving boxes. Slices are returned, not copied.
func PruneZeroPadding(boxes []Box, labels []int, difficult []bool) ([]Box, []int, []bool) {
	valid := len(boxes)
	for valid > 0 && boxes[valid-1].IsZero() {
		valid--
	}

	boxes = boxes[:valid]
	if labels != nil {
		labels = labels[:valid]
	}
	if difficult != nil {
		difficult = difficult[:valid]
	}
	return boxes, labels, difficult
}
