package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dbmcco/redrift/internal/models"
)

var unsafeKeyRe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SafeTaskKey sanitizes a task id into a filesystem-safe state-file key.
// Runs of disallowed characters collapse to "__"; leading and trailing
// dots/underscores are trimmed; an id that sanitizes away entirely keys
// as "task".
func SafeTaskKey(taskID string) string {
	key := unsafeKeyRe.ReplaceAllString(strings.TrimSpace(taskID), "__")
	key = strings.Trim(key, "._")
	if key == "" {
		return "task"
	}
	return key
}

// StatePath returns the deterministic location of the persisted
// verification report for a task.
func StatePath(projectDir, taskID string) string {
	return filepath.Join(projectDir, ".workgraph", ".redrift", "verify", SafeTaskKey(taskID)+".json")
}

// LoadState reads the persisted verification report for a task. Absence
// and decode failure both return nil: either way there is no trustworthy
// verification evidence, and the caller treats the gate as not yet
// satisfied.
func LoadState(projectDir, taskID string) *models.VerificationReport {
	data, err := os.ReadFile(StatePath(projectDir, taskID))
	if err != nil {
		return nil
	}
	var report models.VerificationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil
	}
	return &report
}

// WriteState persists a verification report. Writes are best-effort cache
// semantics: any failure is swallowed, never surfaced. The report is
// informational evidence, not source of truth.
func WriteState(projectDir, taskID string, report *models.VerificationReport) {
	path := StatePath(projectDir, taskID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, append(data, '\n'), 0644)
}
