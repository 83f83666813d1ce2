package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sample is one labeled image from a class-partitioned dataset. Predicted
// is empty until the pipeline has run inference for the sample.
type Sample struct {
	ImagePath   string
	GroundTruth string
	Predicted   string
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IndexDataset walks a dataset root whose immediate subdirectories are
// class folders and returns one Sample per qualifying image, ordered by
// class then file name. The ground-truth label is the parent folder name
// taken verbatim. Hidden entries are skipped. A class folder without
// images contributes no samples; a root without class folders is a
// DatasetReadError.
func IndexDataset(root string) ([]Sample, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &DatasetReadError{Path: root, Err: err}
	}

	var classDirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		classDirs = append(classDirs, entry.Name())
	}
	if len(classDirs) == 0 {
		return nil, &DatasetReadError{Path: root, Err: fmt.Errorf("no class folders found")}
	}
	sort.Strings(classDirs)

	var samples []Sample
	for _, class := range classDirs {
		files, err := collectImageFiles(filepath.Join(root, class))
		if err != nil {
			return nil, &DatasetReadError{Path: filepath.Join(root, class), Err: err}
		}
		for _, file := range files {
			samples = append(samples, Sample{
				ImagePath:   file,
				GroundTruth: class,
			})
		}
	}

	return samples, nil
}

// GroupByClass buckets samples by ground-truth label.
func GroupByClass(samples []Sample) map[string][]Sample {
	groups := make(map[string][]Sample)
	for _, sample := range samples {
		groups[sample.GroundTruth] = append(groups[sample.GroundTruth], sample)
	}
	return groups
}

func collectImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if imageExtensions[ext] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}
