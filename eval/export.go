package eval

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/mdobak/go-xerrors"

	"github.com/oktaw-g/MGR/utils"
)

// ExportSamples copies a uniform random subset of evaluated samples into
// destDir for visual inspection, renaming each file to
// sample{N}_gt_{groundTruth}_pred_{predicted}.{ext} with a 1-based index.
// When fewer than count samples are available all of them are exported.
// Copy failures are logged and skipped; the gallery is a convenience
// artifact and never blocks a run. Returns the number of files written.
func ExportSamples(samples []Sample, destDir string, count int, seed int64) int {
	logger := utils.GetLogger()
	ctx := context.Background()

	if len(samples) == 0 || count <= 0 {
		return 0
	}

	selected := append([]Sample(nil), samples...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	if count < len(selected) {
		selected = selected[:count]
	}

	if err := utils.CreateFolder(destDir); err != nil {
		logger.WarnContext(ctx, "failed to create sample export folder",
			slog.String("path", destDir),
			slog.Any("error", xerrors.New(err)))
		return 0
	}

	written := 0
	for i, sample := range selected {
		name := fmt.Sprintf("sample%d_gt_%s_pred_%s%s",
			i+1, sample.GroundTruth, sample.Predicted, filepath.Ext(sample.ImagePath))
		if err := copyFile(sample.ImagePath, filepath.Join(destDir, name)); err != nil {
			logger.WarnContext(ctx, "failed to export sample image",
				slog.String("source", sample.ImagePath),
				slog.Any("error", xerrors.New(err)))
			continue
		}
		written++
	}

	return written
}
