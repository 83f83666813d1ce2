// Package vision provides classifier backends for the evaluation
// pipeline: a local ONNX Runtime session and a remote HTTP inference
// service. Both satisfy eval.Classifier.
package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Metadata describes an exported model: tensor shapes, the ordered class
// list the output logits index into, and the square input image size.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// ONNXClassifier runs top-1 image classification through a local ONNX
// Runtime session. Predict is serialized with a mutex: the session owns a
// single pair of reusable input/output tensors.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier loads the model at modelPath with the metadata JSON at
// metadataPath and prepares a reusable inference session.
func NewONNXClassifier(modelPath, metadataPath string) (*ONNXClassifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}
	if len(metadata.Classes) == 0 {
		return nil, fmt.Errorf("model metadata lists no classes")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Classes returns the model's ordered class list.
func (c *ONNXClassifier) Classes() []string {
	return append([]string(nil), c.metadata.Classes...)
}

// Predict decodes and preprocesses the image at imagePath, runs the
// session, and returns the argmax class label.
func (c *ONNXClassifier) Predict(imagePath string) (string, error) {
	inputData, err := PreprocessFile(imagePath, c.metadata.ImageSize)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if copied := copy(c.inputTensor.GetData(), inputData); copied != len(inputData) {
		return "", fmt.Errorf("input tensor holds %d values, image produced %d", copied, len(inputData))
	}

	if err := c.session.Run(); err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}

	outputData := c.outputTensor.GetData()
	if len(outputData) == 0 {
		return "", fmt.Errorf("empty model output")
	}

	maxIdx := 0
	maxVal := outputData[0]
	for i, val := range outputData {
		if i >= len(c.metadata.Classes) {
			break
		}
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return c.metadata.Classes[maxIdx], nil
}

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}
