// Package models defines the data structures shared across the redrift
// engine: the decoded contract spec, findings, reports, and the records
// read from the external workgraph store.
package models

// SupportedSchema is the only contract schema version this build understands.
const SupportedSchema = 1

// DefaultArtifactRoot is where per-task migration artifacts live, relative
// to the project root.
const DefaultArtifactRoot = ".workgraph/.redrift"

// DefaultRequiredArtifacts is the canonical six-artifact contract covering
// the four lifecycle phases.
var DefaultRequiredArtifacts = []string{
	"analyze/inventory.md",
	"analyze/constraints.md",
	"respec/v2-spec.md",
	"design/v2-architecture.md",
	"design/adr.md",
	"build/migration-plan.md",
}

// Spec is the decoded redrift contract block.
type Spec struct {
	Schema               int         `json:"schema"`
	ArtifactRoot         string      `json:"artifact_root"`
	RequiredArtifacts    []string    `json:"required_artifacts"`
	CreatePhaseFollowups bool        `json:"create_phase_followups"`
	VerifyRequired       bool        `json:"verify_required"`
	VerifyCommands       []string    `json:"verify_commands"`
	VerifyAssertions     []Assertion `json:"verify_assertions"`
	MaxFollowupDepth     int         `json:"max_followup_depth"`
}

// Assertion is one structural check from the contract's verify_assertions
// list. Kind selects the check; the remaining fields are interpreted per
// kind. Raw preserves the original table so unknown kinds can be reported
// back verbatim.
type Assertion struct {
	Kind    string   `json:"kind"`
	Path    string   `json:"path,omitempty"`
	Max     int      `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Include []string `json:"include,omitempty"`

	Raw map[string]any `json:"-"`
}

// Assertion kinds understood by the verification runner.
const (
	AssertFileExists     = "file_exists"
	AssertMaxLines       = "max_lines"
	AssertForbidPattern  = "forbid_pattern"
	AssertRequirePattern = "require_pattern"
)
