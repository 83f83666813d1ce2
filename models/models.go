package models

import (
	"encoding/json"
	"time"
)

// EvalRun is a persisted record of one completed evaluation run.
type EvalRun struct {
	ID             string          `json:"id" bson:"id"`
	Timestamp      time.Time       `json:"timestamp" bson:"timestamp"`
	DatasetRoot    string          `json:"datasetRoot" bson:"datasetRoot"`
	ModelPath      string          `json:"modelPath,omitempty" bson:"modelPath,omitempty"`
	Accuracy       float64         `json:"accuracy" bson:"accuracy"`
	Precision      float64         `json:"precision" bson:"precision"`
	Recall         float64         `json:"recall" bson:"recall"`
	F1             float64         `json:"f1" bson:"f1"`
	EvaluatedCount int             `json:"evaluatedCount" bson:"evaluatedCount"`
	SkippedCount   int             `json:"skippedCount" bson:"skippedCount"`
	DurationMs     float64         `json:"durationMs" bson:"durationMs"`
	ReportPath     string          `json:"reportPath,omitempty" bson:"reportPath,omitempty"`
	ConfusionJSON  json.RawMessage `json:"confusionMatrix,omitempty" bson:"confusionMatrix,omitempty"`
}
