// Package dataset - Ground-truth and prediction loading for evaluation
// runs: Pascal VOC XML annotations, stored per-image prediction files,
// and evaluation image directories.
package dataset

import (
	"bufio"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/categories"
	"github.com/nvr-ai/go-eval/images"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Sample is one annotated evaluation image.
type Sample struct {
	// Name is the image identifier (the annotation file stem).
	Name string
	// Width and Height are the image dimensions from the annotation.
	Width, Height int
	// GroundTruth holds the annotated boxes with class ids resolved
	// against the VOC catalog.
	GroundTruth []metric.GroundTruth
}

// annotation mirrors the Pascal VOC XML layout.
type annotation struct {
	Filename string `xml:"filename"`
	Size     struct {
		Width  int `xml:"width"`
		Height int `xml:"height"`
	} `xml:"size"`
	Objects []struct {
		Name      string `xml:"name"`
		Difficult int    `xml:"difficult"`
		Bndbox    struct {
			XMin float32 `xml:"xmin"`
			YMin float32 `xml:"ymin"`
			XMax float32 `xml:"xmax"`
			YMax float32 `xml:"ymax"`
		} `xml:"bndbox"`
	} `xml:"object"`
}

// ParseAnnotation reads one VOC XML annotation file and resolves its
// object names against the VOC class catalog.
func ParseAnnotation(path string) (*Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: reading annotation %s", path)
	}

	var anno annotation
	if err := xml.Unmarshal(data, &anno); err != nil {
		return nil, errors.Wrapf(err, "dataset: parsing annotation %s", path)
	}

	classes := categories.VOC()
	sample := &Sample{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Width:  anno.Size.Width,
		Height: anno.Size.Height,
	}
	for _, obj := range anno.Objects {
		classID, err := classes.Index(obj.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: annotation %s", path)
		}
		sample.GroundTruth = append(sample.GroundTruth, metric.GroundTruth{
			ClassID: classID,
			Box: images.Box{
				XMin: obj.Bndbox.XMin,
				YMin: obj.Bndbox.YMin,
				XMax: obj.Bndbox.XMax,
				YMax: obj.Bndbox.YMax,
			},
			Difficult: obj.Difficult != 0,
		})
	}
	return sample, nil
}

// LoadVOC loads the annotation for every image named in a VOC image-set
// list file. Annotations are expected at <annoDir>/<name>.xml.
func LoadVOC(annoDir, listFile string) ([]*Sample, error) {
	f, err := os.Open(listFile)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: opening image set %s", listFile)
	}
	defer f.Close()

	var samples []*Sample
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// Image-set lines may carry a trailing presence flag; the first
		// field is the image name.
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		sample, err := ParseAnnotation(filepath.Join(annoDir, fields[0]+".xml"))
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "dataset: reading image set %s", listFile)
	}
	return samples, nil
}
