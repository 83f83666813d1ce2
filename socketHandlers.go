package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/mdobak/go-xerrors"

	"github.com/oktaw-g/MGR/db"
	"github.com/oktaw-g/MGR/eval"
	"github.com/oktaw-g/MGR/utils"
)

type socketController struct {
	classifier  eval.Classifier
	store       db.Client
	backendInfo string
}

type backendInfoPayload struct {
	Backend string `json:"backend"`
}

func newSocketController(classifier eval.Classifier, store db.Client, backendInfo string) *socketController {
	return &socketController{classifier: classifier, store: store, backendInfo: backendInfo}
}

func (c *socketController) emitBackendInfo(socket socketio.Conn) {
	socket.Emit("backendInfo", backendInfoPayload{Backend: c.backendInfo})
}

func (c *socketController) handleStartEvaluation(socket socketio.Conn, payload string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	logger.InfoContext(ctx, "handleStartEvaluation called",
		slog.String("socketID", socket.ID()),
		slog.Int("dataLength", len(payload)),
	)

	if payload == "" {
		logger.ErrorContext(ctx, "no data received in startEvaluation event")
		socket.Emit("evaluationError", map[string]string{"message": "no evaluation request received"})
		return
	}

	var req evaluationRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		logger.ErrorContext(ctx, "failed to parse evaluation payload", slog.Any("error", err))
		socket.Emit("evaluationError", map[string]string{"message": "invalid evaluation request"})
		return
	}

	if req.DatasetRoot == "" {
		socket.Emit("evaluationError", map[string]string{"message": "datasetRoot is required"})
		return
	}
	if req.OutputDir == "" {
		req.OutputDir = filepath.Join("results", time.Now().Format("20060102_150405"))
	}
	if req.SampleCount == 0 {
		req.SampleCount = 10
	}

	pipeline := eval.NewPipeline(c.classifier, eval.PipelineConfig{
		DatasetRoot: req.DatasetRoot,
		OutputDir:   req.OutputDir,
		SampleCount: req.SampleCount,
		Seed:        req.Seed,
	})
	pipeline.OnProgress = func(progress eval.Progress) {
		socket.Emit("evaluationProgress", progress)
	}

	started := time.Now()
	report, err := pipeline.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "evaluation run failed",
			slog.String("socketID", socket.ID()),
			slog.Any("error", xerrors.New(err)))
		socket.Emit("evaluationError", map[string]string{"message": err.Error()})
		return
	}

	log.Printf("evaluation complete for %s: accuracy=%.4f, evaluated=%d, skipped=%d, took %.2fs\n",
		socket.ID(), report.Metrics.Accuracy, report.EvaluatedCount, report.SkippedCount,
		time.Since(started).Seconds())

	persistRunReport(c.store, report)
	socket.Emit("evaluationComplete", report)
}
