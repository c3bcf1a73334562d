package drift

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dbmcco/redrift/internal/core/lineage"
	"github.com/dbmcco/redrift/internal/core/verify"
	"github.com/dbmcco/redrift/internal/models"
)

func defaultSpec(verifyRequired bool) *models.Spec {
	return &models.Spec{
		Schema:               models.SupportedSchema,
		ArtifactRoot:         models.DefaultArtifactRoot,
		RequiredArtifacts:    append([]string(nil), models.DefaultRequiredArtifacts...),
		CreatePhaseFollowups: true,
		VerifyRequired:       verifyRequired,
		MaxFollowupDepth:     1,
	}
}

func createArtifacts(t *testing.T, projectDir string, spec *models.Spec, taskID string) {
	t.Helper()
	for _, rel := range spec.RequiredArtifacts {
		path := filepath.Join(projectDir, filepath.FromSlash(spec.ArtifactRoot), taskID, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("ok\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func findingKinds(report *models.Report) map[string]bool {
	kinds := map[string]bool{}
	for _, f := range report.Findings {
		kinds[f.Kind] = true
	}
	return kinds
}

func TestComputeGreenWhenAllArtifactsExist(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	createArtifacts(t, dir, spec, "t1")

	report := Compute(Input{TaskID: "t1", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	if report.Score != models.ScoreGreen {
		t.Errorf("score = %s, want green (findings: %v)", report.Score, report.Findings)
	}
	if len(report.Findings) != 0 {
		t.Errorf("findings = %v, want none", report.Findings)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want none", report.Recommendations)
	}
}

func TestComputeEmptyContractIsGreen(t *testing.T) {
	spec := &models.Spec{
		Schema:            models.SupportedSchema,
		ArtifactRoot:      models.DefaultArtifactRoot,
		RequiredArtifacts: []string{},
		VerifyRequired:    false,
	}

	report := Compute(Input{TaskID: "t0", TaskTitle: "Task", Spec: spec, ProjectDir: t.TempDir()})

	if report.Score != models.ScoreGreen || len(report.Findings) != 0 {
		t.Errorf("score = %s, findings = %v", report.Score, report.Findings)
	}
}

func TestComputeMissingArtifactsFlagged(t *testing.T) {
	spec := defaultSpec(false)

	report := Compute(Input{TaskID: "t2", TaskTitle: "Task", Spec: spec, ProjectDir: t.TempDir()})

	kinds := findingKinds(report)
	for _, want := range []string{
		models.KindMissingArtifacts,
		"phase_incomplete_analyze",
		"phase_incomplete_respec",
		"phase_incomplete_design",
		"phase_incomplete_build",
	} {
		if !kinds[want] {
			t.Errorf("missing finding kind %s (got %v)", want, kinds)
		}
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}

	// All five artifact findings recommend distinct actions plus the
	// overall fill action, in fixed order with the fill action first.
	if len(report.Recommendations) == 0 ||
		report.Recommendations[0].Action != "Fill missing redrift artifacts before adding new implementation scope" {
		t.Errorf("recommendations = %v", report.Recommendations)
	}
}

func TestComputeUnknownPhaseArtifactsGroupUnderBuild(t *testing.T) {
	spec := defaultSpec(false)
	spec.RequiredArtifacts = []string{"foo/custom.md"}

	report := Compute(Input{TaskID: "t2b", TaskTitle: "Task", Spec: spec, ProjectDir: t.TempDir()})

	kinds := findingKinds(report)
	if !kinds["phase_incomplete_build"] {
		t.Errorf("unknown-phase artifact should land in build (kinds: %v)", kinds)
	}
	phaseMissing := report.Telemetry["phase_missing"].(map[string][]string)
	if len(phaseMissing["build"]) != 1 || phaseMissing["build"][0] != "foo/custom.md" {
		t.Errorf("phase_missing = %v", phaseMissing)
	}
}

func TestComputeRequiresVerificationByDefault(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(true)
	createArtifacts(t, dir, spec, "t3")

	report := Compute(Input{TaskID: "t3", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	kinds := findingKinds(report)
	if !kinds[models.KindVerificationMissing] {
		t.Errorf("want verification_missing, got %v", kinds)
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}
}

func TestComputeVerificationGatePassesOnGreenState(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(true)
	createArtifacts(t, dir, spec, "t4")
	verify.WriteState(dir, "t4", &models.VerificationReport{TaskID: "t4", Score: models.ScoreGreen})

	report := Compute(Input{TaskID: "t4", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	if report.Score != models.ScoreGreen {
		t.Errorf("score = %s, want green (findings: %v)", report.Score, report.Findings)
	}
	if got := report.Telemetry["verify_score"]; got != models.ScoreGreen {
		t.Errorf("verify_score telemetry = %v", got)
	}
}

func TestComputeVerificationFailedOnRedState(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(true)
	createArtifacts(t, dir, spec, "t5")
	verify.WriteState(dir, "t5", &models.VerificationReport{TaskID: "t5", Score: models.ScoreRed})

	report := Compute(Input{TaskID: "t5", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	kinds := findingKinds(report)
	if !kinds[models.KindVerificationFailed] {
		t.Errorf("want verification_failed, got %v", kinds)
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}
}

func TestComputeRedVerificationGatesEvenWhenOptional(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	createArtifacts(t, dir, spec, "t5b")
	verify.WriteState(dir, "t5b", &models.VerificationReport{TaskID: "t5b", Score: models.ScoreRed})

	report := Compute(Input{TaskID: "t5b", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	kinds := findingKinds(report)
	if !kinds[models.KindVerificationFailed] {
		t.Errorf("persisted red evidence must gate even with verification optional, got %v", kinds)
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}
}

func TestComputeTelemetryAlwaysListsFollowups(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	createArtifacts(t, dir, spec, "t5c")

	report := Compute(Input{TaskID: "t5c", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	followups, ok := report.Telemetry["unresolved_followups"]
	if !ok {
		t.Fatalf("telemetry missing unresolved_followups: %v", report.Telemetry)
	}
	if list, ok := followups.([]lineage.Followup); !ok || len(list) != 0 {
		t.Errorf("unresolved_followups = %#v, want empty list", followups)
	}
}

func TestComputeUnresolvedFollowups(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	createArtifacts(t, dir, spec, "root-task")

	records := []models.TaskRecord{
		{ID: "redrift-analyze-root-task", Kind: "task", Status: "open"},
		{ID: "redrift-design-root-task", Kind: "task", Status: "done"},
	}

	report := Compute(Input{
		TaskID: "root-task", TaskTitle: "Task", Spec: spec, ProjectDir: dir, Records: records,
	})

	kinds := findingKinds(report)
	if !kinds[models.KindUnresolvedFollowups] {
		t.Errorf("want unresolved_redrift_followups, got %v", kinds)
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}
	if got := report.Telemetry["root_task_id"]; got != "root-task" {
		t.Errorf("root_task_id = %v", got)
	}
}

func TestComputeLineageTelemetry(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	taskID := "redrift-exec-analyze-redrift-exec-build-root"
	createArtifacts(t, dir, spec, taskID)

	report := Compute(Input{TaskID: taskID, TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	if got := report.Telemetry["root_task_id"]; got != "root" {
		t.Errorf("root_task_id = %v, want root", got)
	}
	if got := report.Telemetry["lineage_depth"]; got != 2 {
		t.Errorf("lineage_depth = %v, want 2", got)
	}
}

func TestComputeUnsupportedSchema(t *testing.T) {
	dir := t.TempDir()
	spec := defaultSpec(false)
	spec.Schema = 2
	createArtifacts(t, dir, spec, "t6")

	report := Compute(Input{TaskID: "t6", TaskTitle: "Task", Spec: spec, ProjectDir: dir})

	kinds := findingKinds(report)
	if !kinds[models.KindUnsupportedSchema] {
		t.Errorf("want unsupported_schema, got %v", kinds)
	}
	if report.Score != models.ScoreRed {
		t.Errorf("score = %s, want red", report.Score)
	}
	found := false
	for _, r := range report.Recommendations {
		if r.Action == "Set redrift schema = 1" {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations = %v", report.Recommendations)
	}
}

func TestRecommendationsDeduplicateByAction(t *testing.T) {
	spec := defaultSpec(false)

	report := Compute(Input{TaskID: "t7", TaskTitle: "Task", Spec: spec, ProjectDir: t.TempDir()})

	seen := map[string]int{}
	for _, r := range report.Recommendations {
		seen[r.Action]++
	}
	for action, n := range seen {
		if n > 1 {
			t.Errorf("action %q appears %d times", action, n)
		}
	}
}
