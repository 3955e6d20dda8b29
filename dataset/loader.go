package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile is one evaluation image read from disk.
type ImageFile struct {
	// Name is the file stem, matching annotation and prediction keys.
	Name string
	// Path is the image location on disk.
	Path string
	// Data is the raw encoded image bytes.
	Data []byte
}

// LoadImageFiles reads every supported image in a directory, sorted by
// name so evaluation order is stable across runs.
func LoadImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: reading image dir %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: reading image %s", path)
		}
		files = append(files, ImageFile{
			Name: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path: path,
			Data: data,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
