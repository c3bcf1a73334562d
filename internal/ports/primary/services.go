// Package primary defines the primary ports (driving interfaces) of the
// redrift engine: the evaluation and verification entry points the CLI
// drives, plus the execute/commit orchestration around them.
package primary

import (
	"context"

	"github.com/dbmcco/redrift/internal/models"
)

// CheckRequest asks for a drift evaluation of one task.
type CheckRequest struct {
	TaskID          string
	WriteLog        bool
	CreateFollowups bool
}

// CheckResponse carries the evaluation report. HasContract is false when
// the task description holds no redrift block; the report is then
// vacuously green.
type CheckResponse struct {
	Report      *models.Report
	HasContract bool
}

// DriftService evaluates migration drift for tasks carrying a redrift
// contract block.
type DriftService interface {
	CheckTask(ctx context.Context, req CheckRequest) (*CheckResponse, error)
}

// VerifyRequest asks for a verification run of one task's contract.
type VerifyRequest struct {
	TaskID string
}

// VerifyResponse carries the verification report, already persisted at
// StatePath.
type VerifyResponse struct {
	Report    *models.VerificationReport
	StatePath string
}

// VerifyService runs a contract's verification suite and persists the
// resulting report for later drift evaluations to trust.
type VerifyService interface {
	VerifyTask(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

// ExecuteRequest asks for a v2 execution lane: phase tasks plus suite
// checks, optionally in a bootstrapped sibling repository.
type ExecuteRequest struct {
	TaskID          string
	V2Repo          string // empty: run in place; "auto": sibling default; else explicit path
	WriteLog        bool
	CreateFollowups bool
	PhaseChecks     bool
	PhaseFollowups  bool
	StartService    bool
}

// SuiteResult is the outcome of one plugin-suite check run.
type SuiteResult struct {
	TaskID   string      `json:"task_id"`
	ExitCode int         `json:"exit_code"`
	Plugins  []PluginRun `json:"plugins"`
}

// PluginRun records one plugin invocation inside a suite check.
type PluginRun struct {
	Plugin   string `json:"plugin"`
	ExitCode int    `json:"exit_code"`
	Note     string `json:"note,omitempty"`
}

// ExecuteResponse summarizes the lane setup and suite check outcomes.
type ExecuteResponse struct {
	TaskID          string        `json:"task_id"`
	TaskTitle       string        `json:"task_title"`
	TargetRepo      string        `json:"target_repo"`
	TargetWorkgraph string        `json:"target_workgraph"`
	BootstrapNotes  []string      `json:"bootstrap_notes"`
	PhaseTasks      []string      `json:"phase_tasks"`
	InheritedFences []string      `json:"inherited_fences"`
	SuiteResults    []SuiteResult `json:"suite_results"`
	ServiceStarted  bool          `json:"service_started"`
	ServiceError    string        `json:"service_error,omitempty"`
	ExitCode        int           `json:"exit_code"`
}

// ExecuteService builds the phase-task lane and drives the sibling
// verification plugins.
type ExecuteService interface {
	ExecuteLane(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)
}

// CommitRequest asks for a structured checkpoint commit for a task.
type CommitRequest struct {
	TaskID   string
	Phase    string // empty: inferred from task id
	Message  string // empty: task title
	NoVerify bool
	WriteLog bool
	DryRun   bool
}

// CommitResponse describes the created (or planned) commit.
type CommitResponse struct {
	TaskID        string `json:"task_id"`
	Phase         string `json:"phase"`
	CommitMessage string `json:"commit_message"`
	CommitSHA     string `json:"commit_sha"`
	ProjectDir    string `json:"project_dir"`
	DryRun        bool   `json:"dry_run"`
}

// CommitService creates checkpoint commits that exclude drift-suite
// state from staging.
type CommitService interface {
	CommitCheckpoint(ctx context.Context, req CommitRequest) (*CommitResponse, error)
}
