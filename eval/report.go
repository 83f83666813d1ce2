package eval

import (
	"encoding/csv"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Model Evaluation Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #999; padding: 0.4em 0.8em; text-align: left; }
th { background: #eee; }
.gallery img { max-height: 160px; margin: 4px; border: 1px solid #ccc; }
.muted { color: #777; }
</style>
</head>
<body>
<h1>Model Evaluation Report</h1>

<h2>Metrics</h2>
<table>
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>Accuracy</td><td>{{.Accuracy}}</td></tr>
<tr><td>Precision (macro)</td><td>{{.Precision}}</td></tr>
<tr><td>Recall (macro)</td><td>{{.Recall}}</td></tr>
<tr><td>F1 (macro)</td><td>{{.F1}}</td></tr>
</table>
<p>Evaluated samples: {{.Evaluated}}{{if .Skipped}} <span class="muted">({{.Skipped}} skipped due to inference failures)</span>{{end}}</p>

<h2>Confusion Matrix</h2>
<p><a href="{{.CSVLink}}">{{.CSVLink}}</a></p>

<h2>Sample Predictions</h2>
{{if .Images}}
<div class="gallery">
{{range .Images}}<img src="{{.}}" alt="{{.}}" title="{{.}}">
{{end}}</div>
{{else}}
<p class="muted">No sample images exported.</p>
{{end}}
</body>
</html>
`

type reportData struct {
	Accuracy  string
	Precision string
	Recall    string
	F1        string
	Evaluated int
	Skipped   int
	CSVLink   string
	Images    []string
}

// WriteConfusionMatrixCSV writes the matrix as comma-delimited CSV with a
// "GroundTruth/Predicted" header row followed by one row of counts per
// ground-truth label. Output is deterministic for a given matrix.
func WriteConfusionMatrixCSV(matrix ConfusionMatrix, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append([]string{"GroundTruth/Predicted"}, matrix.Labels...)
	if err := writer.Write(header); err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	for i, label := range matrix.Labels {
		row := make([]string, 0, len(matrix.Labels)+1)
		row = append(row, label)
		for _, count := range matrix.Counts[i] {
			row = append(row, strconv.Itoa(count))
		}
		if err := writer.Write(row); err != nil {
			return &ReportWriteError{Path: path, Err: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	return nil
}

// WriteHTMLReport renders a self-contained HTML report next to the other
// artifacts. csvName and samplesDirName are taken relative to the report's
// own directory; the gallery inlines every image found in the samples
// folder and is simply empty when the folder is missing or holds none.
func WriteHTMLReport(metrics Metrics, skipped int, csvName, samplesDirName, path string) error {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}

	data := reportData{
		Accuracy:  strconv.FormatFloat(metrics.Accuracy, 'f', 4, 64),
		Precision: strconv.FormatFloat(metrics.Precision, 'f', 4, 64),
		Recall:    strconv.FormatFloat(metrics.Recall, 'f', 4, 64),
		F1:        strconv.FormatFloat(metrics.F1, 'f', 4, 64),
		Evaluated: metrics.SampleCount,
		Skipped:   skipped,
		CSVLink:   csvName,
		Images:    listGalleryImages(filepath.Join(filepath.Dir(path), samplesDirName), samplesDirName),
	}

	file, err := os.Create(path)
	if err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	return nil
}

func listGalleryImages(samplesDir, relPrefix string) []string {
	entries, err := os.ReadDir(samplesDir)
	if err != nil {
		return nil
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			images = append(images, filepath.ToSlash(filepath.Join(relPrefix, entry.Name())))
		}
	}
	sort.Strings(images)

	return images
}
