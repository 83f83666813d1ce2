package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// GetEnv returns the value of the environment variable key, or fallback if
// the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// CreateFolder creates the folder at path (and any missing parents) if it
// does not already exist.
func CreateFolder(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", path, err)
		}
	}
	return nil
}

// GenerateUniqueID returns a short random hex identifier, used to key
// evaluation runs.
func GenerateUniqueID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand is unavailable; a clock-derived ID still has to be
		// unique across runs since it keys database rows.
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
