// Package categories - Class catalogs mapping detection class indices to
// human-readable labels for the supported annotation styles.
package categories

import "github.com/pkg/errors"

// Style identifies an annotation label set.
type Style string

const (
	// StyleVOC is the Pascal VOC 20-class label set.
	StyleVOC Style = "voc"
	// StyleCOCO is the COCO 80-class label set.
	StyleCOCO Style = "coco"
)

// ClassSet is an ordered list of class names with reverse lookup.
type ClassSet struct {
	// Style identifies which label set this is.
	Style Style
	// Names holds class names indexed by class id.
	Names []string

	nameToIndex map[string]int
}

// vocNames are the Pascal VOC object categories in canonical order.
var vocNames = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car",
	"cat", "chair", "cow", "diningtable", "dog", "horse", "motorbike",
	"person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

// cocoNames are the COCO object categories in canonical order.
var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

func newClassSet(style Style, names []string) *ClassSet {
	s := &ClassSet{Style: style, Names: names}
	s.nameToIndex = make(map[string]int, len(names))
	for i, n := range names {
		s.nameToIndex[n] = i
	}
	return s
}

// VOC returns the Pascal VOC class set.
func VOC() *ClassSet {
	return newClassSet(StyleVOC, vocNames)
}

// COCO returns the COCO class set.
func COCO() *ClassSet {
	return newClassSet(StyleCOCO, cocoNames)
}

// ByStyle returns the class set for the given style.
func ByStyle(style Style) (*ClassSet, error) {
	switch style {
	case StyleVOC:
		return VOC(), nil
	case StyleCOCO:
		return COCO(), nil
	default:
		return nil, errors.Errorf("unknown category style %q", style)
	}
}

// Len returns the number of classes in the set.
func (s *ClassSet) Len() int {
	return len(s.Names)
}

// Name returns the class name for an index.
func (s *ClassSet) Name(index int) (string, error) {
	if index < 0 || index >= len(s.Names) {
		return "", errors.Errorf("class index %d out of range for style %q", index, s.Style)
	}
	return s.Names[index], nil
}

// Index returns the class index for a name.
func (s *ClassSet) Index(name string) (int, error) {
	idx, ok := s.nameToIndex[name]
	if !ok {
		return 0, errors.Errorf("class %q not in style %q", name, s.Style)
	}
	return idx, nil
}

// CategoryID maps a contiguous class index to the dataset's category id.
// VOC category ids are 1-based; COCO category ids have gaps that are not
// reproduced here, so a detection-format converter supplies its own
// mapping when evaluating against official annotation files.
func (s *ClassSet) CategoryID(index int) (int, error) {
	if index < 0 || index >= len(s.Names) {
		return 0, errors.Errorf("class index %d out of range for style %q", index, s.Style)
	}
	return index + 1, nil
}
