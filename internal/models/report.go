package models

// Report is the outcome of one drift evaluation for a task.
type Report struct {
	TaskID          string           `json:"task_id"`
	TaskTitle       string           `json:"task_title"`
	GitRoot         string           `json:"git_root,omitempty"`
	Score           string           `json:"score"`
	Spec            *Spec            `json:"spec"`
	Telemetry       map[string]any   `json:"telemetry"`
	Findings        []Finding        `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// CommandResult captures one verify command execution.
type CommandResult struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"duration_ms"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// AssertionResult captures one structural assertion evaluation.
type AssertionResult struct {
	Kind    string         `json:"kind"`
	OK      bool           `json:"ok"`
	Summary string         `json:"summary"`
	Details map[string]any `json:"details,omitempty"`
}

// VerifySummary is the count block at the end of a verification report.
type VerifySummary struct {
	CommandsTotal    int `json:"commands_total"`
	CommandsFailed   int `json:"commands_failed"`
	AssertionsTotal  int `json:"assertions_total"`
	AssertionsFailed int `json:"assertions_failed"`
}

// VerificationReport is the persisted outcome of one verification run.
// Drift evaluation reads this from disk rather than re-running the suite,
// so a task only gates green once verification has been explicitly run
// and persisted.
type VerificationReport struct {
	TaskID             string            `json:"task_id"`
	TaskTitle          string            `json:"task_title"`
	GitRoot            string            `json:"git_root,omitempty"`
	Score              string            `json:"score"`
	Required           bool              `json:"required"`
	Commands           []CommandResult   `json:"commands"`
	Assertions         []AssertionResult `json:"assertions"`
	Findings           []Finding         `json:"findings"`
	Summary            VerifySummary     `json:"summary"`
	GeneratedAtEpochMS int64             `json:"generated_at_epoch_ms"`
}
