package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPipelineRunReachesReported(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg", "c2.jpg")
	writeFixtureImages(t, root, "dog", "d1.jpg", "d2.jpg")

	outputDir := t.TempDir()
	pipeline := NewPipeline(newStubClassifier(nil), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   outputDir,
		SampleCount: 2,
		Seed:        1,
	})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Stage != StageReported {
		t.Fatalf("expected terminal stage %s, got %s", StageReported, report.Stage)
	}
	if report.EvaluatedCount != 4 || report.SkippedCount != 0 {
		t.Fatalf("expected 4 evaluated / 0 skipped, got %d/%d", report.EvaluatedCount, report.SkippedCount)
	}
	if math.Abs(report.Metrics.Accuracy-1.0) > 1e-9 {
		t.Fatalf("stub predicts ground truth, expected accuracy 1.0, got %f", report.Metrics.Accuracy)
	}

	for _, artifact := range []string{report.CSVPath, report.ReportPath} {
		if artifact == "" {
			t.Fatal("missing artifact path in report")
		}
		if _, err := os.Stat(artifact); err != nil {
			t.Fatalf("artifact %s not written: %v", artifact, err)
		}
	}
}

func TestPipelineSkipsFailedInference(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg", "c2.jpg")
	writeFixtureImages(t, root, "dog", "d1.jpg")

	failing := map[string]bool{"c2.jpg": true}
	pipeline := NewPipeline(newStubClassifier(failing), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   t.TempDir(),
		SampleCount: 1,
		Seed:        1,
	})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Stage != StageReported {
		t.Fatalf("per-item failure should not change terminal state, got %s", report.Stage)
	}
	if report.EvaluatedCount != 2 || report.SkippedCount != 1 {
		t.Fatalf("expected 2 evaluated / 1 skipped, got %d/%d", report.EvaluatedCount, report.SkippedCount)
	}
	if report.Metrics.SampleCount != 2 {
		t.Fatalf("metrics should cover only inferred samples, got %d", report.Metrics.SampleCount)
	}
	if len(report.Failures) != 1 || filepath.Base(report.Failures[0]) != "c2.jpg" {
		t.Fatalf("expected c2.jpg listed in failures, got %v", report.Failures)
	}
}

func TestPipelineAbortsOnUnreadableDataset(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(newStubClassifier(nil), PipelineConfig{
		DatasetRoot: filepath.Join(t.TempDir(), "missing"),
		OutputDir:   t.TempDir(),
	})

	_, err := pipeline.Run(context.Background())
	var readErr *DatasetReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected DatasetReadError, got %v", err)
	}
	if !strings.Contains(err.Error(), "index stage") {
		t.Fatalf("error should name the failed stage, got %v", err)
	}
}

func TestPipelineAbortsWhenNothingInferred(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg")

	pipeline := NewPipeline(newStubClassifier(map[string]bool{"c1.jpg": true}), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   t.TempDir(),
	})

	_, err := pipeline.Run(context.Background())
	var inputErr *MetricsInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected MetricsInputError when every sample fails inference, got %v", err)
	}
}

func TestPipelineValidatesConfig(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(newStubClassifier(nil), PipelineConfig{})
	if _, err := pipeline.Run(context.Background()); err == nil {
		t.Fatal("expected validation error for empty config")
	}
}

func TestPipelineEmitsProgress(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg", "c2.jpg", "c3.jpg")

	pipeline := NewPipeline(newStubClassifier(nil), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   t.TempDir(),
	})

	var events []Progress
	pipeline.OnProgress = func(p Progress) { events = append(events, p) }

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(events))
	}
	for _, event := range events {
		if event.Stage != StageInferred || event.Total != 3 {
			t.Fatalf("unexpected progress event %+v", event)
		}
	}
}

func TestPipelineReportedDespiteArtifactFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg", "c2.jpg")

	// Occupy the output path with a plain file so every artifact write
	// underneath it fails.
	outputDir := filepath.Join(t.TempDir(), "results")
	if err := os.WriteFile(outputDir, []byte("in the way"), 0644); err != nil {
		t.Fatal(err)
	}

	pipeline := NewPipeline(newStubClassifier(nil), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   outputDir,
		SampleCount: 2,
	})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("artifact failures must not fail the run, got %v", err)
	}

	if report.Stage != StageReported {
		t.Fatalf("expected terminal stage %s despite artifact failures, got %s", StageReported, report.Stage)
	}
	if report.CSVPath != "" || report.ReportPath != "" {
		t.Fatalf("unwritten artifacts should not be advertised: csv=%q report=%q", report.CSVPath, report.ReportPath)
	}
	if math.Abs(report.Metrics.Accuracy-1.0) > 1e-9 {
		t.Fatalf("metrics must survive artifact failures, got accuracy %f", report.Metrics.Accuracy)
	}
}

func TestPipelineProgressAdvancesPastSkippedSamples(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFixtureImages(t, root, "cat", "c1.jpg", "c2.jpg", "c3.jpg")

	pipeline := NewPipeline(newStubClassifier(map[string]bool{"c1.jpg": true}), PipelineConfig{
		DatasetRoot: root,
		OutputDir:   t.TempDir(),
	})

	var done []int
	pipeline.OnProgress = func(p Progress) { done = append(done, p.Done) }

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(done) != 3 {
		t.Fatalf("expected a progress event per sample including the skipped one, got %d", len(done))
	}
	for i, value := range done {
		if value != i+1 {
			t.Fatalf("progress counter must be contiguous, got %v", done)
		}
	}
}

// stubClassifier predicts the parent folder name, failing on demand.
type stubClassifier struct {
	failFor map[string]bool
}

func newStubClassifier(failFor map[string]bool) *stubClassifier {
	return &stubClassifier{failFor: failFor}
}

func (s *stubClassifier) Predict(imagePath string) (string, error) {
	if s.failFor[filepath.Base(imagePath)] {
		return "", fmt.Errorf("synthetic decode failure")
	}
	return filepath.Base(filepath.Dir(imagePath)), nil
}
