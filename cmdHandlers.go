package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"

	"github.com/oktaw-g/MGR/db"
	"github.com/oktaw-g/MGR/eval"
	"github.com/oktaw-g/MGR/models"
	"github.com/oktaw-g/MGR/utils"
	"github.com/oktaw-g/MGR/vision"
)

type apiError struct {
	Message string `json:"message"`
}

type evaluationRequest struct {
	DatasetRoot string `json:"datasetRoot"`
	OutputDir   string `json:"outputDir"`
	SampleCount int    `json:"sampleCount"`
	Seed        int64  `json:"seed"`
}

type classificationResponse struct {
	Class string `json:"class"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

func newEvaluationHandler(classifier eval.Classifier, store db.Client) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req evaluationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.ErrorContext(ctx, "failed to parse evaluation request", slog.Any("error", err))
			writeJSONError(w, http.StatusBadRequest, "invalid request payload")
			return
		}

		if req.DatasetRoot == "" {
			writeJSONError(w, http.StatusBadRequest, "datasetRoot is required")
			return
		}
		if req.OutputDir == "" {
			req.OutputDir = filepath.Join("results", time.Now().Format("20060102_150405"))
		}
		if req.SampleCount == 0 {
			req.SampleCount = 10
		}

		pipeline := eval.NewPipeline(classifier, eval.PipelineConfig{
			DatasetRoot: req.DatasetRoot,
			OutputDir:   req.OutputDir,
			SampleCount: req.SampleCount,
			Seed:        req.Seed,
		})

		report, err := pipeline.Run(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "evaluation run failed", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		persistRunReport(store, report)
		writeJSON(w, http.StatusOK, report)
	}
}

func newClassifyHandler(classifier eval.Classifier) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			logger.ErrorContext(ctx, "failed to parse multipart form", slog.Any("error", err))
			writeJSONError(w, http.StatusBadRequest, "invalid upload payload")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "no image provided")
			return
		}
		defer file.Close()

		tempDir := filepath.Join("tmp", "uploads")
		if err := utils.CreateFolder(tempDir); err != nil {
			logger.ErrorContext(ctx, "failed to create temporary upload dir", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "internal error while preparing upload")
			return
		}

		tempFile, err := os.CreateTemp(tempDir, "upload-*"+filepath.Ext(header.Filename))
		if err != nil {
			logger.ErrorContext(ctx, "failed to create temp file", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "internal error while preparing upload")
			return
		}
		defer os.Remove(tempFile.Name())

		if _, err := io.Copy(tempFile, file); err != nil {
			tempFile.Close()
			logger.ErrorContext(ctx, "failed to persist upload", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "internal error while persisting upload")
			return
		}
		tempFile.Close()

		label, err := classifier.Predict(tempFile.Name())
		if err != nil {
			logger.ErrorContext(ctx, "failed to classify image", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusUnprocessableEntity, "unable to classify image")
			return
		}

		writeJSON(w, http.StatusOK, classificationResponse{Class: label})
	}
}

func newRunsHandler(store db.Client) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "run history is not configured")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		runs, err := store.ListRuns(limit)
		if err != nil {
			logger.ErrorContext(ctx, "failed to load evaluation runs", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "failed to load evaluation runs")
			return
		}
		if runs == nil {
			runs = []models.EvalRun{}
		}

		writeJSON(w, http.StatusOK, runs)
	}
}

func persistRunReport(store db.Client, report *eval.RunReport) {
	if store == nil {
		return
	}

	confusionJSON, err := json.Marshal(report.Matrix)
	if err != nil {
		confusionJSON = nil
	}

	run := &models.EvalRun{
		ID:             report.RunID,
		Timestamp:      time.Now(),
		DatasetRoot:    report.DatasetRoot,
		ModelPath:      utils.GetEnv("MODEL_PATH", ""),
		Accuracy:       report.Metrics.Accuracy,
		Precision:      report.Metrics.Precision,
		Recall:         report.Metrics.Recall,
		F1:             report.Metrics.F1,
		EvaluatedCount: report.EvaluatedCount,
		SkippedCount:   report.SkippedCount,
		DurationMs:     report.Duration.Seconds() * 1000,
		ReportPath:     report.ReportPath,
		ConfusionJSON:  confusionJSON,
	}

	if err := store.StoreRun(run); err != nil {
		log.Printf("WARNING: failed to persist evaluation run %s: %v", run.ID, err)
	}
}

func buildClassifier() (eval.Classifier, string) {
	backend := strings.ToLower(utils.GetEnv("CLASSIFIER_BACKEND", "onnx"))

	switch backend {
	case "remote":
		serviceURL := utils.GetEnv("INFERENCE_SERVICE_URL", "http://localhost:5002")
		classifier := vision.NewRemoteClassifier(serviceURL)
		if err := classifier.HealthCheck(); err != nil {
			log.Printf("WARNING: %v", err)
			log.Println("The server will start but classification will fail until the inference service is up.")
		}
		return classifier, "remote:" + serviceURL
	case "onnx":
		modelPath := utils.GetEnv("MODEL_PATH", filepath.Join("model", "classifier.onnx"))
		metadataPath := utils.GetEnv("MODEL_METADATA_PATH", filepath.Join("model", "metadata.json"))
		classifier, err := vision.NewONNXClassifier(modelPath, metadataPath)
		if err != nil {
			log.Fatalf("failed to load ONNX classifier: %v", err)
		}
		log.Printf("Loaded ONNX model %s covering %d classes", modelPath, len(classifier.Classes()))
		return classifier, "onnx:" + modelPath
	default:
		log.Fatalf("unsupported CLASSIFIER_BACKEND value '%s'", backend)
		return nil, ""
	}
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)
	var allowOriginFunc = func(r *http.Request) bool {
		return true
	}

	classifier, backendInfo := buildClassifier()

	store, err := db.NewDBClient()
	if err != nil {
		log.Printf("WARNING: run history disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	controller := newSocketController(classifier, store, backendInfo)

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		log.Printf("CONNECTED: %s, remote addr: %s\n", socket.ID(), socket.RemoteAddr())
		controller.emitBackendInfo(socket)
		return nil
	})

	server.OnEvent("/", "requestBackendInfo", func(socket socketio.Conn) {
		controller.emitBackendInfo(socket)
	})

	server.OnEvent("/", "startEvaluation", func(socket socketio.Conn, msg string) {
		log.Printf("startEvaluation received from %s\n", socket.ID())
		// Run handler in goroutine to prevent blocking, with panic recovery
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("panic in handleStartEvaluation for socket %s: %v\n", socket.ID(), r)
					socket.Emit("evaluationError", map[string]string{"message": "internal server error during evaluation"})
				}
			}()
			controller.handleStartEvaluation(socket, msg)
		}()
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Printf("Socket disconnected - ID: %s, Reason: %s\n", s.ID(), reason)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer server.Close()

	serveHTTPS := protocol == "https"

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", server)
	mux.HandleFunc("/api/evaluate", newEvaluationHandler(classifier, store))
	mux.HandleFunc("/api/classify", newClassifyHandler(classifier))
	mux.HandleFunc("/api/runs", newRunsHandler(store))
	mux.Handle("/", http.FileServer(http.Dir("static")))

	serveHTTP(server, serveHTTPS, port, mux)
}

func serveHTTP(socketServer *socketio.Server, serveHTTPS bool, port string, handler http.Handler) {
	if handler == nil {
		handler = socketServer
	}
	if serveHTTPS {
		httpsAddr := ":" + port
		httpsServer := &http.Server{
			Addr: httpsAddr,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY", "")
		certFile := utils.GetEnv("CERT_FILE", "")
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsAddr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
	}

	log.Printf("Starting HTTP server on port %v", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}
