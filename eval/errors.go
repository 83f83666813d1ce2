package eval

import "fmt"

// DatasetReadError reports an unusable dataset root. It is fatal to a run:
// without readable class folders there is nothing to evaluate.
type DatasetReadError struct {
	Path string
	Err  error
}

func (e *DatasetReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset unreadable at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("dataset unreadable at %s", e.Path)
}

func (e *DatasetReadError) Unwrap() error { return e.Err }

// InferenceError reports a single failed prediction. The pipeline excludes
// the affected sample from metrics and keeps going.
type InferenceError struct {
	ImagePath string
	Err       error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for %s: %v", e.ImagePath, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// SplitIOError reports a failed copy or directory creation during a dataset
// split. Individual failures are logged and skipped; the split continues.
type SplitIOError struct {
	Path string
	Err  error
}

func (e *SplitIOError) Error() string {
	return fmt.Sprintf("split copy failed for %s: %v", e.Path, e.Err)
}

func (e *SplitIOError) Unwrap() error { return e.Err }

// MetricsInputError reports unusable metric input: empty sequences or a
// ground-truth/prediction length mismatch.
type MetricsInputError struct {
	Reason string
}

func (e *MetricsInputError) Error() string {
	return fmt.Sprintf("invalid metrics input: %s", e.Reason)
}

// ReportWriteError reports a failure to write one report artifact. Other
// artifacts are still attempted.
type ReportWriteError struct {
	Path string
	Err  error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("failed to write report artifact %s: %v", e.Path, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }
