// Package state records the location of the most recent result database so
// connect/download can find it without recomputation. The pointer is owned by
// the CLI layer; the loaders, engine, and sink never touch it.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LastRun points at the most recently produced result database.
type LastRun struct {
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"created_at"`
}

// Save writes the pointer file, recording the database path as absolute so
// connect/download work from any directory.
func Save(path string, dbPath string) error {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("failed to resolve result database path: %w", err)
	}

	data, err := json.MarshalIndent(LastRun{Database: abs, CreatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Load reads the pointer file and verifies the recorded database still exists.
func Load(path string) (*LastRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no previous run recorded (state file %s not found); run generate first", path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var lr LastRun
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if lr.Database == "" {
		return nil, fmt.Errorf("state file %s records no database path", path)
	}
	if _, err := os.Stat(lr.Database); err != nil {
		return nil, fmt.Errorf("recorded result database %s is gone: %w", lr.Database, err)
	}
	return &lr, nil
}
