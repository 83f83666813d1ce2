package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oktaw-g/MGR/db"
	"github.com/oktaw-g/MGR/eval"
	"github.com/oktaw-g/MGR/models"
	"github.com/oktaw-g/MGR/utils"
	"github.com/oktaw-g/MGR/vision"
)

// EvaluationConfig holds evaluation parameters
type EvaluationConfig struct {
	DatasetDir   string
	ModelPath    string
	MetadataPath string
	RemoteURL    string
	OutputDir    string
	JSONReport   string
	SampleCount  int
	Seed         int64
	Persist      bool
}

func main() {
	_ = godotenv.Load()
	config := parseFlags()

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("=== Model Evaluation Pipeline ===")
	log.Printf("Dataset: %s\n", config.DatasetDir)
	if config.RemoteURL != "" {
		log.Printf("Backend: remote (%s)\n", config.RemoteURL)
	} else {
		log.Printf("Backend: ONNX (%s)\n", config.ModelPath)
	}
	log.Println()

	classifier := buildClassifier(config)

	log.Println("Evaluating model performance...")
	pipeline := eval.NewPipeline(classifier, eval.PipelineConfig{
		DatasetRoot: config.DatasetDir,
		OutputDir:   config.OutputDir,
		SampleCount: config.SampleCount,
		Seed:        config.Seed,
	})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		log.Fatalf("ERROR: Evaluation failed: %v", err)
	}

	printEvaluationReport(report)

	if config.JSONReport != "" {
		if err := saveReport(report, config.JSONReport); err != nil {
			log.Printf("WARNING: Failed to save report: %v\n", err)
		} else {
			log.Printf("\nReport saved to: %s\n", config.JSONReport)
		}
	}

	if config.Persist {
		persistRun(report, config)
	}

	log.Println()
	printVerdict(report)
}

func parseFlags() EvaluationConfig {
	config := EvaluationConfig{}

	flag.StringVar(&config.DatasetDir, "data", "test_data",
		"Dataset root whose subdirectories are class folders")
	flag.StringVar(&config.ModelPath, "model", utils.GetEnv("MODEL_PATH", filepath.Join("model", "classifier.onnx")),
		"Path to ONNX model")
	flag.StringVar(&config.MetadataPath, "metadata", utils.GetEnv("MODEL_METADATA_PATH", filepath.Join("model", "metadata.json")),
		"Path to model metadata JSON")
	flag.StringVar(&config.RemoteURL, "remote", utils.GetEnv("INFERENCE_SERVICE_URL", ""),
		"URL of a remote inference service (overrides -model)")
	flag.StringVar(&config.OutputDir, "out", "results",
		"Directory for report artifacts (CSV, HTML, sample images)")
	flag.StringVar(&config.JSONReport, "report", "evaluation_report.json",
		"Path to save evaluation report JSON (empty to skip)")
	flag.IntVar(&config.SampleCount, "samples", 10,
		"Number of random sample images to export")
	flag.Int64Var(&config.Seed, "seed", time.Now().UnixNano(),
		"Random seed for sample selection")
	flag.BoolVar(&config.Persist, "persist", false,
		"Store the run in the configured run-history database")

	flag.Parse()

	return config
}

func buildClassifier(config EvaluationConfig) eval.Classifier {
	if config.RemoteURL != "" {
		classifier := vision.NewRemoteClassifier(config.RemoteURL)
		if err := classifier.HealthCheck(); err != nil {
			log.Fatalf("ERROR: %v", err)
		}
		return classifier
	}

	classifier, err := vision.NewONNXClassifier(config.ModelPath, config.MetadataPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to load model: %v", err)
	}
	log.Printf("Loaded model covering %d classes\n", len(classifier.Classes()))
	return classifier
}

func printEvaluationReport(report *eval.RunReport) {
	log.Println()
	log.Println("=" + strings.Repeat("=", 79))
	log.Println("EVALUATION RESULTS")
	log.Println("=" + strings.Repeat("=", 79))
	log.Println()

	metrics := report.Metrics
	log.Printf("Accuracy:         %.4f (%d/%d correct)\n",
		metrics.Accuracy, report.Matrix.Trace(), metrics.SampleCount)
	log.Printf("Macro Precision:  %.4f\n", metrics.Precision)
	log.Printf("Macro Recall:     %.4f\n", metrics.Recall)
	log.Printf("Macro F1:         %.4f\n", metrics.F1)
	if report.SkippedCount > 0 {
		log.Printf("Skipped samples:  %d (excluded from metrics)\n", report.SkippedCount)
	}
	log.Printf("Processing Time:  %.2f seconds\n", report.Duration.Seconds())
	log.Println()

	log.Println("Per-Class Performance:")
	log.Println(strings.Repeat("-", 80))
	log.Printf("%-20s %10s %10s %10s %10s\n", "Class", "Precision", "Recall", "F1", "Samples")
	log.Println(strings.Repeat("-", 80))

	// Sort by F1 for better readability
	labels := append([]string(nil), report.Matrix.Labels...)
	sort.Slice(labels, func(i, j int) bool {
		return metrics.PerLabel[labels[i]].F1 > metrics.PerLabel[labels[j]].F1
	})

	for _, label := range labels {
		score := metrics.PerLabel[label]
		status := "✓"
		if score.F1 < 0.7 {
			status = "⚠"
		}
		log.Printf("%-20s %10.4f %10.4f %10.4f %10d   %s\n",
			label, score.Precision, score.Recall, score.F1, score.Support, status)
	}
	log.Println()

	printConfusionMatrix(report.Matrix)

	if report.CSVPath != "" {
		log.Printf("Confusion matrix CSV: %s\n", report.CSVPath)
	}
	if report.ReportPath != "" {
		log.Printf("HTML report:          %s\n", report.ReportPath)
	}
}

func printConfusionMatrix(matrix eval.ConfusionMatrix) {
	if len(matrix.Labels) == 0 {
		return
	}

	log.Println("Confusion Matrix:")
	log.Println(strings.Repeat("-", 80))

	fmt.Printf("%-15s", "Actual \\ Pred")
	for _, label := range matrix.Labels {
		fmt.Printf(" %6s", truncate(label, 6))
	}
	fmt.Println()
	log.Println(strings.Repeat("-", 80))

	for i, trueLabel := range matrix.Labels {
		fmt.Printf("%-15s", truncate(trueLabel, 15))
		for j := range matrix.Labels {
			count := matrix.Counts[i][j]
			if count > 0 {
				fmt.Printf(" %6d", count)
			} else {
				fmt.Printf(" %6s", ".")
			}
		}
		fmt.Println()
	}
	log.Println()
}

func printVerdict(report *eval.RunReport) {
	log.Println("=" + strings.Repeat("=", 79))
	log.Println("VERDICT")
	log.Println("=" + strings.Repeat("=", 79))

	accuracy := report.Metrics.Accuracy * 100

	var verdict string
	var recommendation string

	if accuracy >= 90 {
		verdict = "✓ EXCELLENT"
		recommendation = "Model is production-ready!"
	} else if accuracy >= 80 {
		verdict = "✓ GOOD"
		recommendation = "Model works well. Consider adding more diverse training data."
	} else if accuracy >= 70 {
		verdict = "⚠ FAIR"
		recommendation = "Model has significant room for improvement. Add more training data."
	} else {
		verdict = "✗ POOR"
		recommendation = "Model needs substantial improvement. Check data quality and add more samples."
	}

	log.Printf("Overall Assessment: %s\n", verdict)
	log.Printf("Accuracy: %.2f%%, Macro F1: %.4f\n", accuracy, report.Metrics.F1)
	log.Printf("Recommendation: %s\n", recommendation)
	log.Println("=" + strings.Repeat("=", 79))
}

func persistRun(report *eval.RunReport, config EvaluationConfig) {
	store, err := db.NewDBClient()
	if err != nil {
		log.Printf("WARNING: run history unavailable: %v\n", err)
		return
	}
	defer store.Close()

	confusionJSON, err := json.Marshal(report.Matrix)
	if err != nil {
		confusionJSON = nil
	}

	run := &models.EvalRun{
		ID:             report.RunID,
		Timestamp:      time.Now(),
		DatasetRoot:    report.DatasetRoot,
		ModelPath:      config.ModelPath,
		Accuracy:       report.Metrics.Accuracy,
		Precision:      report.Metrics.Precision,
		Recall:         report.Metrics.Recall,
		F1:             report.Metrics.F1,
		EvaluatedCount: report.EvaluatedCount,
		SkippedCount:   report.SkippedCount,
		DurationMs:     report.Duration.Seconds() * 1000,
		ReportPath:     report.ReportPath,
		ConfusionJSON:  confusionJSON,
	}

	if err := store.StoreRun(run); err != nil {
		log.Printf("WARNING: failed to persist run: %v\n", err)
	} else {
		log.Printf("Run %s stored in run history\n", run.ID)
	}
}

func saveReport(report *eval.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}
