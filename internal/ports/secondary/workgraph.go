// Package secondary defines the secondary ports (driven interfaces)
// through which the engine reaches the external workgraph store. The
// store itself is opaque; redrift consumes these narrow operations and
// never interprets its internals.
package secondary

import (
	"context"

	"github.com/dbmcco/redrift/internal/models"
)

// TaskStore is the task storage/update surface redrift consumes but does
// not implement.
type TaskStore interface {
	// ShowTask loads one task by id.
	ShowTask(ctx context.Context, taskID string) (*models.Task, error)

	// EnsureTask creates a task if it does not already exist. Existing
	// tasks are left untouched.
	EnsureTask(ctx context.Context, task EnsureTaskRequest) error

	// AppendLog writes one audit line against a task. Best-effort: the
	// line is informational, not source of truth.
	AppendLog(ctx context.Context, taskID, message string) error
}

// EnsureTaskRequest describes a task to create if absent.
type EnsureTaskRequest struct {
	TaskID      string
	Title       string
	Description string
	BlockedBy   []string
	Tags        []string
}

// TaskLogReader iterates the append-only task log. Passed explicitly so
// evaluations can run against test doubles instead of an ambient file
// path.
type TaskLogReader interface {
	// Records returns all decodable task-log records in order. A log
	// that does not exist yet yields an empty slice, not an error.
	Records() ([]models.TaskRecord, error)
}
