package eval

// Evaluation pipeline for image classifiers.
//
// How It Works:
//
// 1. Index:
//    - The dataset root is walked into labeled samples, one per image,
//      with the class folder name as ground truth.
//
// 2. Infer:
//    - Each sample is pushed through the classifier port. A failed
//      prediction excludes only that sample; the run keeps going and the
//      skipped count is carried into the report so the smaller
//      denominator stays visible.
//
// 3. Aggregate:
//    - The paired label sequences feed the metrics engine: accuracy,
//      macro precision/recall/F1, confusion matrix.
//
// 4. Report:
//    - A random subset of evaluated images is exported for inspection,
//      then the CSV matrix and HTML report are written. Artifact write
//      failures are logged, not fatal; metrics are already computed.
//
// The pipeline is a linear state machine, Indexed -> Inferred ->
// Aggregated -> Reported. Only stage-level failures (unreadable dataset,
// zero successfully inferred samples) abort a run.

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mdobak/go-xerrors"

	"github.com/oktaw-g/MGR/utils"
)

// Classifier is the port to an external image classifier. Predict returns
// the single top label for the image at the given path.
type Classifier interface {
	Predict(imagePath string) (string, error)
}

// Stage names the pipeline states in execution order.
type Stage string

const (
	StageIndexed    Stage = "Indexed"
	StageInferred   Stage = "Inferred"
	StageAggregated Stage = "Aggregated"
	StageReported   Stage = "Reported"
)

const (
	csvFileName    = "confusion_matrix.csv"
	reportFileName = "report.html"
	samplesDirName = "samples"
)

// PipelineConfig holds the inputs of one evaluation run.
type PipelineConfig struct {
	DatasetRoot string
	OutputDir   string
	SampleCount int
	Seed        int64
}

func (c PipelineConfig) validate() error {
	if c.DatasetRoot == "" {
		return fmt.Errorf("dataset root not selected")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory not selected")
	}
	return nil
}

// Progress is emitted after every classified sample.
type Progress struct {
	Stage     Stage  `json:"stage"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
	ImagePath string `json:"imagePath"`
}

// RunReport is the terminal result of a pipeline run.
type RunReport struct {
	RunID          string          `json:"runId"`
	Stage          Stage           `json:"stage"`
	DatasetRoot    string          `json:"datasetRoot"`
	Metrics        Metrics         `json:"metrics"`
	Matrix         ConfusionMatrix `json:"confusionMatrix"`
	EvaluatedCount int             `json:"evaluatedCount"`
	SkippedCount   int             `json:"skippedCount"`
	Failures       []string        `json:"failures,omitempty"`
	CSVPath        string          `json:"csvPath"`
	ReportPath     string          `json:"reportPath"`
	SamplesDir     string          `json:"samplesDir"`
	Duration       time.Duration   `json:"duration"`
}

// Pipeline wires the indexer, a classifier port, the metrics engine, the
// sample exporter and the report generator into one run.
type Pipeline struct {
	classifier Classifier
	config     PipelineConfig
	logger     *slog.Logger

	// OnProgress, when set, receives a Progress event after each sample
	// during the inference stage.
	OnProgress func(Progress)
}

// NewPipeline returns a pipeline over the given classifier port.
func NewPipeline(classifier Classifier, config PipelineConfig) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		config:     config,
		logger:     utils.GetLogger(),
	}
}

// Run executes the full evaluation. Per-sample inference failures are
// absorbed; the returned report still reaches the Reported stage as long
// as the dataset is readable and at least one sample was inferred.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	if err := p.config.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	report := &RunReport{
		RunID:       utils.GenerateUniqueID(),
		DatasetRoot: p.config.DatasetRoot,
	}

	samples, err := IndexDataset(p.config.DatasetRoot)
	if err != nil {
		return nil, fmt.Errorf("index stage: %w", err)
	}
	report.Stage = StageIndexed
	p.logger.InfoContext(ctx, "dataset indexed",
		slog.String("runId", report.RunID),
		slog.String("root", p.config.DatasetRoot),
		slog.Int("samples", len(samples)))

	evaluated := make([]Sample, 0, len(samples))
	groundTruth := make([]string, 0, len(samples))
	predicted := make([]string, 0, len(samples))

	for i := range samples {
		label, err := p.classifier.Predict(samples[i].ImagePath)
		if err != nil {
			infErr := &InferenceError{ImagePath: samples[i].ImagePath, Err: err}
			p.logger.WarnContext(ctx, "sample excluded from metrics",
				slog.String("runId", report.RunID),
				slog.Any("error", xerrors.New(infErr)))
			report.SkippedCount++
			report.Failures = append(report.Failures, samples[i].ImagePath)
		} else {
			samples[i].Predicted = label
			evaluated = append(evaluated, samples[i])
			groundTruth = append(groundTruth, samples[i].GroundTruth)
			predicted = append(predicted, label)
		}

		// Skipped samples still advance the progress counter.
		if p.OnProgress != nil {
			p.OnProgress(Progress{
				Stage:     StageInferred,
				Done:      i + 1,
				Total:     len(samples),
				ImagePath: samples[i].ImagePath,
			})
		}
	}
	report.Stage = StageInferred
	report.EvaluatedCount = len(evaluated)

	metrics, matrix, err := ComputeMetrics(groundTruth, predicted)
	if err != nil {
		return nil, fmt.Errorf("aggregate stage: %w", err)
	}
	report.Stage = StageAggregated
	report.Metrics = metrics
	report.Matrix = matrix
	p.logger.InfoContext(ctx, "metrics aggregated",
		slog.String("runId", report.RunID),
		slog.Int("evaluated", report.EvaluatedCount),
		slog.Int("skipped", report.SkippedCount),
		slog.Float64("accuracy", metrics.Accuracy))

	p.writeArtifacts(ctx, report, evaluated)
	report.Stage = StageReported
	report.Duration = time.Since(started)

	return report, nil
}

func (p *Pipeline) writeArtifacts(ctx context.Context, report *RunReport, evaluated []Sample) {
	if err := utils.CreateFolder(p.config.OutputDir); err != nil {
		p.logger.ErrorContext(ctx, "failed to create output directory",
			slog.String("path", p.config.OutputDir),
			slog.Any("error", xerrors.New(err)))
		return
	}

	report.SamplesDir = filepath.Join(p.config.OutputDir, samplesDirName)
	exported := ExportSamples(evaluated, report.SamplesDir, p.config.SampleCount, p.config.Seed)
	p.logger.InfoContext(ctx, "sample images exported",
		slog.String("runId", report.RunID),
		slog.Int("count", exported))

	report.CSVPath = filepath.Join(p.config.OutputDir, csvFileName)
	if err := WriteConfusionMatrixCSV(report.Matrix, report.CSVPath); err != nil {
		p.logger.ErrorContext(ctx, "failed to write confusion matrix",
			slog.Any("error", xerrors.New(err)))
		report.CSVPath = ""
	}

	report.ReportPath = filepath.Join(p.config.OutputDir, reportFileName)
	if err := WriteHTMLReport(report.Metrics, report.SkippedCount, csvFileName, samplesDirName, report.ReportPath); err != nil {
		p.logger.ErrorContext(ctx, "failed to write HTML report",
			slog.Any("error", xerrors.New(err)))
		report.ReportPath = ""
	}
}
