package eval

// Multi-class evaluation metrics.
//
// How It Works:
//
// 1. Pairing:
//    - Input is two equal-length sequences: ground-truth labels and
//      predictions, already paired index-for-index over the samples that
//      inference succeeded on.
//
// 2. Confusion matrix:
//    - The label set is the sorted union of both sequences, so matrix and
//      report layout are stable across runs regardless of arrival order.
//    - Cell [i][j] counts samples with ground truth labels[i] predicted as
//      labels[j]; the diagonal holds correct predictions.
//
// 3. Per-label scores:
//    - TP, FP and FN are read off the matrix row/column sums.
//    - precision, recall and F1 use an epsilon guard so a label with no
//      predictions or no ground-truth occurrences scores zero instead of
//      dividing by zero.
//
// 4. Aggregation:
//    - Accuracy is matched pairs over total pairs.
//    - Precision/recall/F1 are macro-averaged: the unweighted mean across
//      labels, so minority classes count as much as dominant ones.

import (
	"fmt"
	"sort"
)

const metricsEpsilon = 1e-10

// Metrics holds the aggregate scores of one evaluation run. Precision,
// recall and F1 are macro-averaged over the label set.
type Metrics struct {
	Accuracy    float64               `json:"accuracy"`
	Precision   float64               `json:"precision"`
	Recall      float64               `json:"recall"`
	F1          float64               `json:"f1"`
	SampleCount int                   `json:"sampleCount"`
	PerLabel    map[string]LabelScore `json:"perLabel"`
}

// LabelScore holds the per-label scores behind the macro averages.
type LabelScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ConfusionMatrix cross-tabulates ground truth against predictions over a
// sorted label set. Counts[i][j] is the number of samples with ground
// truth Labels[i] predicted as Labels[j].
type ConfusionMatrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// Total returns the number of paired samples the matrix was built from.
func (m ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, count := range row {
			total += count
		}
	}
	return total
}

// Trace returns the number of correct predictions.
func (m ConfusionMatrix) Trace() int {
	trace := 0
	for i := range m.Labels {
		trace += m.Counts[i][i]
	}
	return trace
}

// Count returns the cell for a (ground truth, predicted) label pair.
func (m ConfusionMatrix) Count(groundTruth, predicted string) int {
	gi := sort.SearchStrings(m.Labels, groundTruth)
	pi := sort.SearchStrings(m.Labels, predicted)
	if gi >= len(m.Labels) || m.Labels[gi] != groundTruth {
		return 0
	}
	if pi >= len(m.Labels) || m.Labels[pi] != predicted {
		return 0
	}
	return m.Counts[gi][pi]
}

// ComputeMetrics builds the confusion matrix and aggregate scores from
// paired ground-truth and prediction sequences. It rejects empty input and
// length mismatches with a MetricsInputError; a zero-sample accuracy is
// undefined, not zero. The function is pure and its outputs do not depend
// on pairing order.
func ComputeMetrics(groundTruth, predicted []string) (Metrics, ConfusionMatrix, error) {
	if len(groundTruth) == 0 {
		return Metrics{}, ConfusionMatrix{}, &MetricsInputError{Reason: "no paired samples"}
	}
	if len(groundTruth) != len(predicted) {
		return Metrics{}, ConfusionMatrix{}, &MetricsInputError{
			Reason: fmt.Sprintf("%d ground-truth labels but %d predictions", len(groundTruth), len(predicted)),
		}
	}

	matrix := buildConfusionMatrix(groundTruth, predicted)

	correct := 0
	for i := range groundTruth {
		if groundTruth[i] == predicted[i] {
			correct++
		}
	}

	metrics := Metrics{
		Accuracy:    float64(correct) / float64(len(groundTruth)),
		SampleCount: len(groundTruth),
		PerLabel:    make(map[string]LabelScore, len(matrix.Labels)),
	}

	for i, label := range matrix.Labels {
		tp := matrix.Counts[i][i]
		predictedAs := 0
		actual := 0
		for j := range matrix.Labels {
			predictedAs += matrix.Counts[j][i]
			actual += matrix.Counts[i][j]
		}
		fp := predictedAs - tp
		fn := actual - tp

		precision := float64(tp) / (float64(tp+fp) + metricsEpsilon)
		recall := float64(tp) / (float64(tp+fn) + metricsEpsilon)
		f1 := 2 * precision * recall / (precision + recall + metricsEpsilon)

		metrics.PerLabel[label] = LabelScore{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   actual,
		}
		metrics.Precision += precision
		metrics.Recall += recall
		metrics.F1 += f1
	}

	labelCount := float64(len(matrix.Labels))
	metrics.Precision /= labelCount
	metrics.Recall /= labelCount
	metrics.F1 /= labelCount

	return metrics, matrix, nil
}

func buildConfusionMatrix(groundTruth, predicted []string) ConfusionMatrix {
	seen := make(map[string]bool)
	var labels []string
	for _, sequence := range [][]string{groundTruth, predicted} {
		for _, label := range sequence {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range groundTruth {
		counts[index[groundTruth[i]]][index[predicted[i]]]++
	}

	return ConfusionMatrix{Labels: labels, Counts: counts}
}
