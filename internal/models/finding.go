package models

// Finding severities.
const (
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Report scores. Green means no findings, yellow means only warn-level
// findings, red means at least one error-level finding.
const (
	ScoreGreen  = "green"
	ScoreYellow = "yellow"
	ScoreRed    = "red"
)

// Finding kinds emitted by the drift evaluation and verification runner.
const (
	KindUnsupportedSchema    = "unsupported_schema"
	KindMissingArtifacts     = "missing_redrift_artifacts"
	KindPhaseIncomplete      = "phase_incomplete_" // suffixed with the phase name
	KindUnresolvedFollowups  = "unresolved_redrift_followups"
	KindVerificationMissing  = "verification_missing"
	KindVerificationFailed   = "verification_failed"
	KindVerifyUnconfigured   = "verify_unconfigured"
	KindVerifyCommandFailed  = "verify_command_failed"
	KindVerifyAssertionError = "verify_assertion_failed"
)

// Finding is a structured, non-fatal evaluation result. Findings are
// produced fresh per evaluation and never mutated afterwards.
type Finding struct {
	Kind     string         `json:"kind"`
	Severity string         `json:"severity"`
	Summary  string         `json:"summary"`
	Details  map[string]any `json:"details,omitempty"`
}

// Recommendation is one suggested next action, derived from finding kinds.
type Recommendation struct {
	Priority  string `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// ScoreFindings aggregates a finding list into a report score.
func ScoreFindings(findings []Finding) string {
	score := ScoreGreen
	for _, f := range findings {
		if f.Severity == SeverityError {
			return ScoreRed
		}
		if f.Severity == SeverityWarn {
			score = ScoreYellow
		}
	}
	return score
}
