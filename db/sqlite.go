package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"github.com/oktaw-g/MGR/models"
	"github.com/oktaw-g/MGR/utils"
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %s", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %s", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("error creating tables: %s", err)
	}

	return &SQLiteClient{db: db}, nil
}

// createTables creates the required tables if they don't exist
func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS eval_runs (
        id TEXT PRIMARY KEY,
        timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        dataset_root TEXT NOT NULL,
        model_path TEXT,
        accuracy REAL NOT NULL DEFAULT 0,
        precision REAL NOT NULL DEFAULT 0,
        recall REAL NOT NULL DEFAULT 0,
        f1 REAL NOT NULL DEFAULT 0,
        evaluated_count INTEGER NOT NULL DEFAULT 0,
        skipped_count INTEGER NOT NULL DEFAULT 0,
        duration_ms REAL NOT NULL DEFAULT 0,
        report_path TEXT,
        confusion_json TEXT
    );
    `

	if _, err := db.Exec(createRunsTable); err != nil {
		return fmt.Errorf("error creating eval_runs table: %s", err)
	}
	return nil
}

func (c *SQLiteClient) StoreRun(run *models.EvalRun) error {
	_, err := c.db.Exec(`
        INSERT INTO eval_runs
        (id, timestamp, dataset_root, model_path, accuracy, precision, recall, f1,
         evaluated_count, skipped_count, duration_ms, report_path, confusion_json)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Timestamp, run.DatasetRoot, run.ModelPath,
		run.Accuracy, run.Precision, run.Recall, run.F1,
		run.EvaluatedCount, run.SkippedCount, run.DurationMs,
		run.ReportPath, string(run.ConfusionJSON))
	if err != nil {
		return fmt.Errorf("error storing evaluation run: %s", err)
	}
	return nil
}

func (c *SQLiteClient) ListRuns(limit int) ([]models.EvalRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.Query(`
        SELECT id, timestamp, dataset_root, model_path, accuracy, precision, recall, f1,
               evaluated_count, skipped_count, duration_ms, report_path, confusion_json
        FROM eval_runs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying evaluation runs: %s", err)
	}
	defer rows.Close()

	var runs []models.EvalRun
	for rows.Next() {
		var run models.EvalRun
		var modelPath, reportPath, confusionJSON sql.NullString
		if err := rows.Scan(&run.ID, &run.Timestamp, &run.DatasetRoot, &modelPath,
			&run.Accuracy, &run.Precision, &run.Recall, &run.F1,
			&run.EvaluatedCount, &run.SkippedCount, &run.DurationMs,
			&reportPath, &confusionJSON); err != nil {
			return nil, fmt.Errorf("error scanning evaluation run: %s", err)
		}
		run.ModelPath = modelPath.String
		run.ReportPath = reportPath.String
		if confusionJSON.Valid && confusionJSON.String != "" {
			run.ConfusionJSON = []byte(confusionJSON.String)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (c *SQLiteClient) Close() error {
	return c.db.Close()
}
