package verify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbmcco/redrift/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRunGreen(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.ts"), "export const x = 1;\n")

	spec := &models.Spec{
		Schema:         1,
		VerifyRequired: true,
		VerifyCommands: []string{"true"},
		VerifyAssertions: []models.Assertion{
			{Kind: models.AssertMaxLines, Path: "src/app.ts", Max: 20},
			{Kind: models.AssertForbidPattern, Pattern: "python3", Include: []string{"src/**/*.ts"}},
		},
	}

	report := Run(Input{TaskID: "task-1", TaskTitle: "Task 1", Spec: spec, ProjectDir: dir})

	if report.Score != models.ScoreGreen {
		t.Errorf("score = %s, want green (findings: %v)", report.Score, report.Findings)
	}
	if len(report.Findings) != 0 {
		t.Errorf("findings = %v, want none", report.Findings)
	}
	if report.Summary.CommandsTotal != 1 || report.Summary.CommandsFailed != 0 {
		t.Errorf("command summary = %+v", report.Summary)
	}
	if report.Summary.AssertionsTotal != 2 || report.Summary.AssertionsFailed != 0 {
		t.Errorf("assertion summary = %+v", report.Summary)
	}
}

func TestRunRedAndPersisted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.ts"), "python3\n")

	spec := &models.Spec{
		Schema:         1,
		VerifyRequired: true,
		VerifyCommands: []string{"false"},
		VerifyAssertions: []models.Assertion{
			{Kind: models.AssertForbidPattern, Pattern: "python3", Include: []string{"src/**/*.ts"}},
		},
	}

	report := Run(Input{TaskID: "task-2", TaskTitle: "Task 2", Spec: spec, ProjectDir: dir})

	if report.Score != models.ScoreRed {
		t.Fatalf("score = %s, want red", report.Score)
	}
	kinds := map[string]bool{}
	for _, f := range report.Findings {
		kinds[f.Kind] = true
	}
	if !kinds[models.KindVerifyCommandFailed] || !kinds[models.KindVerifyAssertionError] {
		t.Errorf("finding kinds = %v", kinds)
	}

	WriteState(dir, "task-2", report)
	persisted := LoadState(dir, "task-2")
	if persisted == nil {
		t.Fatal("persisted report should reload")
	}
	if persisted.Score != models.ScoreRed {
		t.Errorf("persisted score = %s, want red", persisted.Score)
	}
}

func TestRunAssertionFindingCarriesRawTable(t *testing.T) {
	dir := t.TempDir()

	raw := map[string]any{
		"kind": models.AssertFileExists,
		"path": "docs/missing.md",
		"note": "carried through verbatim",
	}
	spec := &models.Spec{
		Schema:         1,
		VerifyRequired: true,
		VerifyAssertions: []models.Assertion{
			{Kind: models.AssertFileExists, Path: "docs/missing.md", Raw: raw},
		},
	}

	report := Run(Input{TaskID: "task-2b", TaskTitle: "Task 2b", Spec: spec, ProjectDir: dir})

	if len(report.Findings) != 1 {
		t.Fatalf("findings = %v, want the assertion failure", report.Findings)
	}
	detail, ok := report.Findings[0].Details["assertion"].(map[string]any)
	if !ok {
		t.Fatalf("assertion detail = %#v, want the raw table", report.Findings[0].Details["assertion"])
	}
	if detail["note"] != "carried through verbatim" {
		t.Errorf("raw table keys lost: %#v", detail)
	}
}

func TestRunUnconfiguredRequiredGate(t *testing.T) {
	spec := &models.Spec{Schema: 1, VerifyRequired: true}
	report := Run(Input{TaskID: "t", Spec: spec, ProjectDir: t.TempDir()})

	if report.Score != models.ScoreRed {
		t.Fatalf("score = %s, want red", report.Score)
	}
	if len(report.Findings) != 1 || report.Findings[0].Kind != models.KindVerifyUnconfigured {
		t.Errorf("findings = %v", report.Findings)
	}
}

func TestRunUnconfiguredOptionalGateIsGreen(t *testing.T) {
	spec := &models.Spec{Schema: 1, VerifyRequired: false}
	report := Run(Input{TaskID: "t", Spec: spec, ProjectDir: t.TempDir()})

	if report.Score != models.ScoreGreen || len(report.Findings) != 0 {
		t.Errorf("score = %s, findings = %v", report.Score, report.Findings)
	}
}

func TestRunCommandCapturesFailure(t *testing.T) {
	row := runCommand(t.TempDir(), "echo out; echo err >&2; exit 7")

	if row.OK {
		t.Error("command should fail")
	}
	if row.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", row.ExitCode)
	}
	if !strings.Contains(row.Stdout, "out") {
		t.Errorf("stdout = %q", row.Stdout)
	}
	if !strings.Contains(row.Stderr, "err") {
		t.Errorf("stderr = %q", row.Stderr)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", outputLimit+10)
	got := truncate(long)
	if !strings.HasSuffix(got, truncatedMarker) {
		t.Error("long output should carry the truncation marker")
	}
	if len(got) != outputLimit+len(truncatedMarker) {
		t.Errorf("truncated length = %d", len(got))
	}
	if truncate("short") != "short" {
		t.Error("short output should pass through")
	}
}

func TestSafeTaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"task-1", "task-1"},
		{"a/b c", "a__b__c"},
		{"..weird__", "weird"},
		{"", "task"},
		{"///", "task"},
		{"TASK_1.v2", "TASK_1.v2"},
	}

	for _, tt := range tests {
		if got := SafeTaskKey(tt.in); got != tt.want {
			t.Errorf("SafeTaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadStateAbsentOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	if got := LoadState(dir, "nope"); got != nil {
		t.Errorf("absent state should load as nil, got %+v", got)
	}

	path := StatePath(dir, "broken")
	writeFile(t, path, "{not json")
	if got := LoadState(dir, "broken"); got != nil {
		t.Errorf("corrupt state should load as nil, got %+v", got)
	}
}
