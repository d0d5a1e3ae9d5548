// Package history persists the most recent detection result per workspace
// under the user's home directory, so repeated CLI runs can show what changed
// without re-scanning.
package history

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"stackscan/pkg/detector"
)

// Record is one saved detection run.
type Record struct {
	RecordedAt time.Time                               `json:"recorded_at"`
	Result     *detector.WorkspaceStackDetectionResult `json:"result"`
}

// GetHistoryPath returns the path to the history directory.
func GetHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".stackscan/history"
	}
	return filepath.Join(homeDir, ".stackscan", "history")
}

// GetRecordPath returns the path to a specific workspace's record file.
// Records are keyed by the workspace root so reruns overwrite in place.
func GetRecordPath(root string) string {
	return filepath.Join(GetHistoryPath(), recordKey(root)+".json")
}

// recordKey derives a stable filename from a workspace root: the directory
// basename plus a short hash of the full path to keep same-named roots apart.
func recordKey(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	h := fnv.New32a()
	h.Write([]byte(abs))
	return fmt.Sprintf("%s-%08x", filepath.Base(abs), h.Sum32())
}

// LoadRecord loads the saved record for a workspace root. A workspace that
// has never been scanned yields a nil record, not an error.
func LoadRecord(root string) (*Record, error) {
	recordPath := GetRecordPath(root)

	if _, err := os.Stat(recordPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(recordPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse history record: %w", err)
	}

	return &rec, nil
}

// SaveRecord saves the detection result for a workspace root.
func SaveRecord(root string, result *detector.WorkspaceStackDetectionResult) error {
	recordPath := GetRecordPath(root)

	if err := os.MkdirAll(filepath.Dir(recordPath), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(Record{RecordedAt: time.Now(), Result: result}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	if err := os.WriteFile(recordPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}

	return nil
}
