package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oktaw-g/MGR/chat"
	"github.com/oktaw-g/MGR/eval"
)

func main() {
	reportPath := flag.String("report", "evaluation_report.json", "Path to a saved evaluation report JSON")
	flag.Parse()

	_ = godotenv.Load()

	data, err := os.ReadFile(*reportPath)
	if err != nil {
		log.Fatalf("failed to read report: %v", err)
	}

	var report eval.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		log.Fatalf("failed to parse report: %v", err)
	}

	client, err := chat.NewGeminiClient()
	if err != nil {
		log.Fatalf("failed to create Gemini client: %v", err)
	}

	log.Printf("Asking for an assessment of run %s (accuracy %.4f, %d samples)...\n",
		report.RunID, report.Metrics.Accuracy, report.EvaluatedCount)

	explanation, err := client.ExplainRun(&report)
	if err != nil {
		log.Fatalf("failed to generate assessment: %v", err)
	}

	fmt.Println()
	fmt.Println(explanation)
}
