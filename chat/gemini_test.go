package chat

import (
	"strings"
	"testing"

	"github.com/oktaw-g/MGR/eval"
)

func TestDescribeRun(t *testing.T) {
	t.Parallel()

	report := &eval.RunReport{
		EvaluatedCount: 10,
		SkippedCount:   2,
		Metrics: eval.Metrics{
			Accuracy:  0.8,
			Precision: 0.75,
			Recall:    0.7,
			F1:        0.72,
		},
		Matrix: eval.ConfusionMatrix{
			Labels: []string{"cat", "dog"},
			Counts: [][]int{{4, 3}, {1, 2}},
		},
	}

	prompt := describeRun(report)

	for _, want := range []string{
		"10 samples",
		"2 skipped",
		"Accuracy: 0.8000",
		"'cat' predicted as 'dog' 3 times",
		"'dog' predicted as 'cat' 1 times",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Most frequent confusion listed first.
	catIdx := strings.Index(prompt, "'cat' predicted as 'dog'")
	dogIdx := strings.Index(prompt, "'dog' predicted as 'cat'")
	if catIdx > dogIdx {
		t.Error("confusions not sorted by frequency")
	}
}
