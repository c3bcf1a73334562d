package drift

import (
	"fmt"

	"github.com/dbmcco/redrift/internal/core/lineage"
	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/core/verify"
	"github.com/dbmcco/redrift/internal/models"
)

// Input carries everything one drift evaluation needs. Records is the
// full task-log record set; the caller owns log access so evaluations
// stay testable without a real store.
type Input struct {
	TaskID     string
	TaskTitle  string
	Spec       *models.Spec
	ProjectDir string
	GitRoot    string
	Records    []models.TaskRecord
}

// Compute runs the full drift evaluation: artifact audit, follow-up
// lineage audit, and the verification gate, aggregated into one scored
// report with recommendations. Findings are data; Compute never fails.
func Compute(in Input) *models.Report {
	var findings []models.Finding

	audit := AuditArtifacts(in.Spec, in.TaskID, in.ProjectDir)
	findings = append(findings, audit.Findings(in.Spec)...)

	rootID, depth := lineage.Resolve(in.TaskID)
	followups := lineage.UnresolvedFollowups(in.Records, rootID, in.TaskID)
	if followups == nil {
		followups = []lineage.Followup{}
	}
	if len(followups) > 0 {
		findings = append(findings, models.Finding{
			Kind:     models.KindUnresolvedFollowups,
			Severity: models.SeverityError,
			Summary:  fmt.Sprintf("%d unresolved redrift follow-up task(s)", len(followups)),
			Details: map[string]any{
				"root_task_id": rootID,
				"followups":    capFollowups(followups, followupDetailCap),
			},
		})
	}

	// Missing verification only matters when the contract demands it, but
	// persisted red evidence always gates, demanded or not.
	verifyPath := verify.StatePath(in.ProjectDir, in.TaskID)
	verifyState := verify.LoadState(in.ProjectDir, in.TaskID)
	switch {
	case verifyState == nil:
		if in.Spec.VerifyRequired {
			findings = append(findings, models.Finding{
				Kind:     models.KindVerificationMissing,
				Severity: models.SeverityError,
				Summary:  "verification required but no verification report has been persisted",
				Details:  map[string]any{"expected_path": verifyPath},
			})
		}
	case verifyState.Score != models.ScoreGreen:
		findings = append(findings, models.Finding{
			Kind:     models.KindVerificationFailed,
			Severity: models.SeverityError,
			Summary:  fmt.Sprintf("persisted verification report is %s", verifyState.Score),
			Details: map[string]any{
				"path":    verifyPath,
				"score":   verifyState.Score,
				"summary": verifyState.Summary,
			},
		})
	}

	if findings == nil {
		findings = []models.Finding{}
	}

	telemetry := map[string]any{
		"artifact_dir":         audit.Dir,
		"required_count":       len(in.Spec.RequiredArtifacts),
		"existing_count":       audit.ExistingCount,
		"missing_count":        len(audit.Missing),
		"phase_missing":        audit.PhaseMissing,
		"root_task_id":         rootID,
		"lineage_depth":        depth,
		"verify_required":      in.Spec.VerifyRequired,
		"verify_report_path":   verifyPath,
		"verify_report_found":  verifyState != nil,
		"unresolved_followups": capFollowups(followups, followupDetailCap),
	}
	if verifyState != nil {
		telemetry["verify_score"] = verifyState.Score
	}

	return &models.Report{
		TaskID:          in.TaskID,
		TaskTitle:       in.TaskTitle,
		GitRoot:         in.GitRoot,
		Score:           models.ScoreFindings(findings),
		Spec:            in.Spec,
		Telemetry:       telemetry,
		Findings:        findings,
		Recommendations: recommend(findings, audit),
	}
}

func capFollowups(items []lineage.Followup, limit int) []lineage.Followup {
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}

// recommend maps the finding kinds present in a report to fixed next
// actions, in priority order, deduplicated by action text (first
// occurrence wins).
func recommend(findings []models.Finding, audit ArtifactAudit) []models.Recommendation {
	kinds := map[string]bool{}
	for _, f := range findings {
		kinds[f.Kind] = true
	}

	var recs []models.Recommendation
	add := func(action, rationale string) {
		recs = append(recs, models.Recommendation{Priority: "high", Action: action, Rationale: rationale})
	}

	if len(audit.Missing) > 0 {
		add("Fill missing redrift artifacts before adding new implementation scope",
			"Missing migration artifacts cause intent and implementation to drift apart.")
	}
	if len(audit.PhaseMissing[phase.Analyze]) > 0 {
		add("Complete analyze artifacts (inventory + constraints)",
			"You need a baseline map of the legacy system before re-spec decisions.")
	}
	if len(audit.PhaseMissing[phase.Respec]) > 0 {
		add("Complete v2 spec artifacts",
			"Rebuild quality depends on explicit target behavior and interfaces.")
	}
	if len(audit.PhaseMissing[phase.Design]) > 0 {
		add("Complete architecture/ADR artifacts",
			"Design decisions should be explicit before broad implementation changes.")
	}
	if len(audit.PhaseMissing[phase.Build]) > 0 {
		add("Complete migration/build plan artifacts",
			"Execution sequencing prevents partial rewrites and hidden regressions.")
	}
	if kinds[models.KindUnresolvedFollowups] {
		add("Resolve open redrift follow-up tasks before closing the root task",
			"Open descendants mean the migration contract is not yet satisfied end to end.")
	}
	if kinds[models.KindVerificationMissing] {
		add("Run redrift verify to produce a persisted verification report",
			"Drift evaluation trusts only persisted verification evidence.")
	}
	if kinds[models.KindVerificationFailed] {
		add("Fix failing verification commands/assertions and re-run redrift verify",
			"A red verification report blocks the completion gate.")
	}
	if kinds[models.KindUnsupportedSchema] {
		add("Set redrift schema = 1",
			"Only schema v1 is currently supported.")
	}

	seen := map[string]bool{}
	out := make([]models.Recommendation, 0, len(recs))
	for _, r := range recs {
		if seen[r.Action] {
			continue
		}
		seen[r.Action] = true
		out = append(out, r)
	}
	return out
}
