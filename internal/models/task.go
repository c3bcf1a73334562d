package models

// Task is a workgraph task as returned by the external store.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// TaskRecord is one raw record from the append-only workgraph log.
// Only records with Kind == "task" matter to the followup audit.
type TaskRecord struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// RecordKindTask is the log record kind carrying task state.
const RecordKindTask = "task"

// Normalized task statuses. Raw statuses from the store are mapped into
// this vocabulary; anything unrecognized falls back to StatusOpen.
const (
	StatusDone          = "done"
	StatusAbandoned     = "abandoned"
	StatusFailed        = "failed"
	StatusBlocked       = "blocked"
	StatusInProgress    = "in_progress"
	StatusPendingReview = "pending_review"
	StatusOpen          = "open"
)
