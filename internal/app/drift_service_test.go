package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbmcco/redrift/internal/models"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

type fakeStore struct {
	tasks   map[string]*models.Task
	ensured []secondary.EnsureTaskRequest
	logs    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]*models.Task{}}
}

func (f *fakeStore) ShowTask(_ context.Context, taskID string) (*models.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

func (f *fakeStore) EnsureTask(_ context.Context, req secondary.EnsureTaskRequest) error {
	f.ensured = append(f.ensured, req)
	return nil
}

func (f *fakeStore) AppendLog(_ context.Context, taskID, message string) error {
	f.logs = append(f.logs, taskID+": "+message)
	return nil
}

type fakeLog struct {
	records []models.TaskRecord
}

func (f *fakeLog) Records() ([]models.TaskRecord, error) {
	return f.records, nil
}

func contractDescription(body string) string {
	return "Task body.\n\n```redrift\n" + body + "\n```\n"
}

func writeArtifacts(t *testing.T, projectDir, taskID string, rels []string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(projectDir, ".workgraph", ".redrift", taskID, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func newDriftService(store *fakeStore, log *fakeLog, projectDir string) *DriftServiceImpl {
	return NewDriftService(store, log, NewGitService(), filepath.Join(projectDir, ".workgraph"), projectDir)
}

func TestCheckTaskWithoutContractIsGreen(t *testing.T) {
	store := newFakeStore()
	store.tasks["t-1"] = &models.Task{ID: "t-1", Title: "Plain task", Description: "no fence here"}
	svc := newDriftService(store, &fakeLog{}, t.TempDir())

	resp, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "t-1"})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if resp.HasContract {
		t.Error("HasContract = true for a task without a fence")
	}
	if resp.Report.Score != models.ScoreGreen {
		t.Errorf("score = %q, want green", resp.Report.Score)
	}
	if len(resp.Report.Findings) != 0 {
		t.Errorf("findings = %v, want none", resp.Report.Findings)
	}
}

func TestCheckTaskInvalidContractIsHardError(t *testing.T) {
	store := newFakeStore()
	store.tasks["t-1"] = &models.Task{ID: "t-1", Title: "Broken", Description: contractDescription("schema = [not toml")}
	svc := newDriftService(store, &fakeLog{}, t.TempDir())

	if _, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "t-1"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCheckTaskMissingTask(t *testing.T) {
	svc := newDriftService(newFakeStore(), &fakeLog{}, t.TempDir())
	if _, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "ghost"}); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestCheckTaskGreenWritesLastState(t *testing.T) {
	projectDir := t.TempDir()
	store := newFakeStore()
	store.tasks["task-1"] = &models.Task{
		ID:          "task-1",
		Title:       "Migrate widgets",
		Description: contractDescription("required_artifacts = [\"analyze/notes.md\"]\nverify_required = false"),
	}
	writeArtifacts(t, projectDir, "task-1", []string{"analyze/notes.md"})
	svc := newDriftService(store, &fakeLog{}, projectDir)

	resp, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "task-1"})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if resp.Report.Score != models.ScoreGreen {
		t.Fatalf("score = %q, findings %v", resp.Report.Score, resp.Report.Findings)
	}

	data, err := os.ReadFile(filepath.Join(projectDir, ".workgraph", ".redrift", "last.json"))
	if err != nil {
		t.Fatalf("last.json not written: %v", err)
	}
	if !strings.Contains(string(data), "\"task-1\"") {
		t.Errorf("last.json does not mention the task: %s", data)
	}
}

func TestCheckTaskWriteLogAppendsSummary(t *testing.T) {
	projectDir := t.TempDir()
	store := newFakeStore()
	store.tasks["task-1"] = &models.Task{
		ID:          "task-1",
		Title:       "Migrate widgets",
		Description: contractDescription("required_artifacts = [\"analyze/notes.md\"]\nverify_required = false"),
	}
	svc := newDriftService(store, &fakeLog{}, projectDir)

	resp, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "task-1", WriteLog: true})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if resp.Report.Score != models.ScoreRed {
		t.Fatalf("score = %q, want red for missing artifact", resp.Report.Score)
	}
	if len(store.logs) != 1 {
		t.Fatalf("logs = %v, want one entry", store.logs)
	}
	if !strings.Contains(store.logs[0], "missing_redrift_artifacts") {
		t.Errorf("log line missing finding kind: %s", store.logs[0])
	}
	if !strings.Contains(store.logs[0], "next:") {
		t.Errorf("log line missing recommendation: %s", store.logs[0])
	}
}

func TestCheckTaskCreateFollowupsGeneric(t *testing.T) {
	projectDir := t.TempDir()
	store := newFakeStore()
	body := "required_artifacts = [\"analyze/notes.md\"]\nverify_required = false"
	store.tasks["task-1"] = &models.Task{ID: "task-1", Title: "Migrate widgets", Description: contractDescription(body)}
	svc := newDriftService(store, &fakeLog{}, projectDir)

	_, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "task-1", CreateFollowups: true})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if len(store.ensured) != 1 {
		t.Fatalf("ensured = %v, want one v2 task", store.ensured)
	}
	got := store.ensured[0]
	if got.TaskID != "redrift-v2-task-1" {
		t.Errorf("followup id = %q", got.TaskID)
	}
	if len(got.BlockedBy) != 1 || got.BlockedBy[0] != "task-1" {
		t.Errorf("blocked_by = %v", got.BlockedBy)
	}
	if !strings.Contains(got.Description, "```redrift\n"+body+"\n```") {
		t.Errorf("followup did not re-embed the contract verbatim:\n%s", got.Description)
	}
}

func TestCheckTaskCreateFollowupsPerPhase(t *testing.T) {
	projectDir := t.TempDir()
	store := newFakeStore()
	body := strings.Join([]string{
		"create_phase_followups = true",
		"verify_required = false",
		"required_artifacts = [\"analyze/notes.md\", \"build/migration-log.md\"]",
	}, "\n")
	store.tasks["task-1"] = &models.Task{ID: "task-1", Title: "Migrate widgets", Description: contractDescription(body)}
	writeArtifacts(t, projectDir, "task-1", []string{"analyze/notes.md"})
	svc := newDriftService(store, &fakeLog{}, projectDir)

	_, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "task-1", CreateFollowups: true})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if len(store.ensured) != 1 {
		t.Fatalf("ensured = %+v, want only the build phase followup", store.ensured)
	}
	got := store.ensured[0]
	if got.TaskID != "redrift-build-task-1" {
		t.Errorf("followup id = %q", got.TaskID)
	}
	if !strings.Contains(got.Description, "- build/migration-log.md") {
		t.Errorf("followup missing artifact list:\n%s", got.Description)
	}
}

func TestCheckTaskFollowupDepthGate(t *testing.T) {
	projectDir := t.TempDir()
	store := newFakeStore()
	body := "required_artifacts = [\"analyze/notes.md\"]\nverify_required = false"
	// Already one followup hop deep: default max_followup_depth = 1 stops here.
	store.tasks["redrift-v2-task-1"] = &models.Task{
		ID:          "redrift-v2-task-1",
		Title:       "redrift: Migrate widgets",
		Description: contractDescription(body),
	}
	svc := newDriftService(store, &fakeLog{}, projectDir)

	_, err := svc.CheckTask(context.Background(), primary.CheckRequest{TaskID: "redrift-v2-task-1", CreateFollowups: true})
	if err != nil {
		t.Fatalf("CheckTask: %v", err)
	}
	if len(store.ensured) != 0 {
		t.Errorf("ensured = %v, want none past the depth gate", store.ensured)
	}
}
