package chat

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/oktaw-g/MGR/eval"
)

type GeminiClient struct {
	client *genai.Client
	ctx    context.Context
}

const systemPrompt = `You are an assistant for an image-classification evaluation system.
You help users with:
- Interpreting accuracy, precision, recall and F1 scores
- Reading confusion matrices and spotting systematic misclassifications
- Suggesting dataset and labeling improvements
- General questions about model evaluation

Provide helpful, accurate, and concise responses. Be technical when needed but explain complex concepts clearly.
Keep responses conversational and under 250 words unless more detail is specifically requested.`

func NewGeminiClient() (*GeminiClient, error) {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &GeminiClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// GenerateResponse answers a free-form question about model evaluation.
func (g *GeminiClient) GenerateResponse(message string) (string, error) {
	model := g.client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.7)
	model.SetTopP(0.8)
	model.SetTopK(40)
	model.SetMaxOutputTokens(400)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(g.ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %v", err)
	}

	text := extractText(resp)
	if text == "" {
		return "I'm sorry, I couldn't generate a response. Please try rephrasing your question.", nil
	}

	return strings.ReplaceAll(text, "*", ""), nil
}

// ExplainRun asks the model for a short assessment of a finished
// evaluation run: headline metrics, weakest classes and the most frequent
// confusions.
func (g *GeminiClient) ExplainRun(report *eval.RunReport) (string, error) {
	return g.GenerateResponse(describeRun(report))
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

func describeRun(report *eval.RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "An image classifier was evaluated on %d samples (%d skipped due to inference failures).\n",
		report.EvaluatedCount, report.SkippedCount)
	fmt.Fprintf(&sb, "Accuracy: %.4f, macro precision: %.4f, macro recall: %.4f, macro F1: %.4f.\n",
		report.Metrics.Accuracy, report.Metrics.Precision, report.Metrics.Recall, report.Metrics.F1)

	type confusion struct {
		groundTruth string
		predicted   string
		count       int
	}
	var confusions []confusion
	for i, gtLabel := range report.Matrix.Labels {
		for j, predLabel := range report.Matrix.Labels {
			if i == j || report.Matrix.Counts[i][j] == 0 {
				continue
			}
			confusions = append(confusions, confusion{gtLabel, predLabel, report.Matrix.Counts[i][j]})
		}
	}
	sort.Slice(confusions, func(i, j int) bool { return confusions[i].count > confusions[j].count })

	if len(confusions) > 0 {
		sb.WriteString("Most frequent confusions:\n")
		for idx, c := range confusions {
			if idx >= 5 {
				break
			}
			fmt.Fprintf(&sb, "- '%s' predicted as '%s' %d times\n", c.groundTruth, c.predicted, c.count)
		}
	}

	sb.WriteString("Summarize how this model performs and what to improve first.")
	return sb.String()
}
