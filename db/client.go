package db

import (
	"fmt"
	"strings"

	"github.com/oktaw-g/MGR/models"
	"github.com/oktaw-g/MGR/utils"
)

// Client persists evaluation run records.
type Client interface {
	StoreRun(run *models.EvalRun) error
	ListRuns(limit int) ([]models.EvalRun, error)
	Close() error
}

// NewDBClient builds a run-history client from the environment. DB_TYPE
// selects the backend: "sqlite" (default, path from SQLITE_DB_PATH) or
// "mongo" (URI from MONGO_URI).
func NewDBClient() (Client, error) {
	dbType := strings.ToLower(utils.GetEnv("DB_TYPE", "sqlite"))

	switch dbType {
	case "sqlite":
		return NewSQLiteClient(utils.GetEnv("SQLITE_DB_PATH", "storage/runs.db"))
	case "mongo":
		return NewMongoClient(utils.GetEnv("MONGO_URI", "mongodb://localhost:27017"))
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE value '%s'", dbType)
	}
}
