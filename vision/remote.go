package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// RemoteClassifier talks to an external inference service over HTTP. The
// service accepts a multipart image upload on /predict and answers with
// the top class.
type RemoteClassifier struct {
	serviceURL string
	client     *http.Client
}

type remotePrediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// NewRemoteClassifier creates a client for the inference service at
// serviceURL (default http://localhost:5002).
func NewRemoteClassifier(serviceURL string) *RemoteClassifier {
	if serviceURL == "" {
		serviceURL = "http://localhost:5002"
	}

	return &RemoteClassifier{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HealthCheck verifies the inference service is running.
func (rc *RemoteClassifier) HealthCheck() error {
	resp, err := rc.client.Get(rc.serviceURL + "/health")
	if err != nil {
		return fmt.Errorf("inference service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// Predict uploads the image at imagePath and returns the predicted label.
func (rc *RemoteClassifier) Predict(imagePath string) (string, error) {
	file, err := os.Open(filepath.Clean(imagePath))
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequest("POST", rc.serviceURL+"/predict", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := rc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var prediction remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", fmt.Errorf("failed to decode prediction response: %w", err)
	}
	if prediction.Class == "" {
		return "", fmt.Errorf("inference service returned no class")
	}

	return prediction.Class, nil
}
