package eval

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/mdobak/go-xerrors"

	"github.com/oktaw-g/MGR/utils"
)

// Splitter partitions a class-partitioned dataset into train/val/test
// trees. Ratios are applied independently per class so class balance is
// preserved in every subset. Train takes floor(n*TrainRatio) samples, val
// takes floor(n*ValRatio), and everything left over lands in test.
//
// The caller is expected to hand over empty destination roots; the
// splitter does not clear or deduplicate.
type Splitter struct {
	TrainRatio float64
	ValRatio   float64
	Seed       int64
}

// NewSplitter returns a Splitter with the standard 60/20/20 ratios.
func NewSplitter(seed int64) *Splitter {
	return &Splitter{TrainRatio: 0.6, ValRatio: 0.2, Seed: seed}
}

// SplitResult reports per-class subset sizes and files whose copy failed.
type SplitResult struct {
	Classes map[string]SplitCounts
	Skipped []string
}

// SplitCounts holds the subset sizes for one class.
type SplitCounts struct {
	Train int
	Val   int
	Test  int
}

// Split shuffles each class with the configured seed, assigns samples to
// the three subsets by ratio, and copies each image into
// {destRoot}/{class}/{imageName}. A failed copy or directory creation is
// logged as a SplitIOError and skipped; the split itself never fails on a
// single file.
func Split(samples []Sample, trainRoot, valRoot, testRoot string, splitter *Splitter) SplitResult {
	logger := utils.GetLogger()
	ctx := context.Background()

	result := SplitResult{Classes: make(map[string]SplitCounts)}
	rng := rand.New(rand.NewSource(splitter.Seed))

	groups := GroupByClass(samples)
	classes := make([]string, 0, len(groups))
	for class := range groups {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		classSamples := append([]Sample(nil), groups[class]...)
		rng.Shuffle(len(classSamples), func(i, j int) {
			classSamples[i], classSamples[j] = classSamples[j], classSamples[i]
		})

		total := len(classSamples)
		trainCount := int(math.Floor(float64(total) * splitter.TrainRatio))
		valCount := int(math.Floor(float64(total) * splitter.ValRatio))

		counts := SplitCounts{}
		for idx, sample := range classSamples {
			var destRoot string
			switch {
			case idx < trainCount:
				destRoot = trainRoot
			case idx < trainCount+valCount:
				destRoot = valRoot
			default:
				destRoot = testRoot
			}

			if err := copyInto(sample.ImagePath, filepath.Join(destRoot, class)); err != nil {
				splitErr := &SplitIOError{Path: sample.ImagePath, Err: err}
				logger.WarnContext(ctx, "skipping file in split",
					slog.String("class", class),
					slog.Any("error", xerrors.New(splitErr)))
				result.Skipped = append(result.Skipped, sample.ImagePath)
				continue
			}

			switch destRoot {
			case trainRoot:
				counts.Train++
			case valRoot:
				counts.Val++
			default:
				counts.Test++
			}
		}
		result.Classes[class] = counts
	}

	return result
}

func copyInto(srcPath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return copyFile(srcPath, filepath.Join(destDir, filepath.Base(srcPath)))
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return err
	}
	return dest.Sync()
}
