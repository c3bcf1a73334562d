// Package app implements the primary-port services: drift evaluation,
// verification, lane execution, and checkpoint commits. Services
// orchestrate the pure core packages against the workgraph store and the
// filesystem.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbmcco/redrift/internal/core/drift"
	"github.com/dbmcco/redrift/internal/core/lineage"
	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/core/spec"
	"github.com/dbmcco/redrift/internal/models"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// DriftServiceImpl implements primary.DriftService.
type DriftServiceImpl struct {
	store      secondary.TaskStore
	log        secondary.TaskLogReader
	git        *GitService
	wgDir      string
	projectDir string
}

// NewDriftService creates a DriftService with injected dependencies.
func NewDriftService(store secondary.TaskStore, log secondary.TaskLogReader, git *GitService, wgDir, projectDir string) *DriftServiceImpl {
	return &DriftServiceImpl{store: store, log: log, git: git, wgDir: wgDir, projectDir: projectDir}
}

// CheckTask evaluates migration drift for one task. A task without a
// contract block evaluates vacuously green; a contract that fails to
// decode is a hard error.
func (s *DriftServiceImpl) CheckTask(ctx context.Context, req primary.CheckRequest) (*primary.CheckResponse, error) {
	task, err := s.store.ShowTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	title := task.Title
	if title == "" {
		title = req.TaskID
	}

	body, found := spec.ExtractBlock(task.Description)
	if !found {
		return &primary.CheckResponse{
			HasContract: false,
			Report: &models.Report{
				TaskID:          req.TaskID,
				TaskTitle:       title,
				Score:           models.ScoreGreen,
				Telemetry:       map[string]any{"note": "no redrift block"},
				Findings:        []models.Finding{},
				Recommendations: []models.Recommendation{},
			},
		}, nil
	}

	decoded, err := spec.Decode(body)
	if err != nil {
		return nil, err
	}

	records, err := s.log.Records()
	if err != nil {
		return nil, fmt.Errorf("failed to read workgraph log: %w", err)
	}

	gitRoot, _ := s.git.RootDir(s.projectDir)
	report := drift.Compute(drift.Input{
		TaskID:     req.TaskID,
		TaskTitle:  title,
		Spec:       decoded,
		ProjectDir: s.projectDir,
		GitRoot:    gitRoot,
		Records:    records,
	})

	s.writeLastState(report)

	if req.WriteLog {
		s.writeLogSummary(ctx, req.TaskID, report)
	}
	if req.CreateFollowups {
		if err := s.createFollowups(ctx, report, decoded, body); err != nil {
			return nil, err
		}
	}

	return &primary.CheckResponse{Report: report, HasContract: true}, nil
}

// writeLastState caches the latest report under the workgraph state dir.
// Write-may-fail-silently: the cache is informational, not source of
// truth.
func (s *DriftServiceImpl) writeLastState(report *models.Report) {
	outDir := filepath.Join(s.wgDir, ".redrift")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(outDir, "last.json"), append(data, '\n'), 0644)
}

// writeLogSummary appends a one-line summary to the task's wg log.
// Best-effort like the state cache.
func (s *DriftServiceImpl) writeLogSummary(ctx context.Context, taskID string, report *models.Report) {
	var msg string
	if len(report.Findings) == 0 {
		msg = "Redrift: OK (no findings)"
	} else {
		kinds := make([]string, 0, len(report.Findings))
		seen := map[string]bool{}
		for _, f := range report.Findings {
			if !seen[f.Kind] {
				seen[f.Kind] = true
				kinds = append(kinds, f.Kind)
			}
		}
		sort.Strings(kinds)
		msg = fmt.Sprintf("Redrift: %s (%s)", report.Score, strings.Join(kinds, ", "))
		if len(report.Recommendations) > 0 {
			if action := strings.TrimSpace(report.Recommendations[0].Action); action != "" {
				msg += " | next: " + action
			}
		}
	}
	_ = s.store.AppendLog(ctx, taskID, msg)
}

// createFollowups spawns follow-up tasks for the findings: per-phase
// artifact tasks when the contract asks for them, otherwise one generic
// v2 cycle task. Spawning stops once the task's lineage depth reaches
// the contract's max_followup_depth, so followups cannot recurse
// unboundedly.
func (s *DriftServiceImpl) createFollowups(ctx context.Context, report *models.Report, decoded *models.Spec, rawBlock string) error {
	if len(report.Findings) == 0 {
		return nil
	}

	_, depth := lineage.Resolve(report.TaskID)
	if depth >= decoded.MaxFollowupDepth {
		return nil
	}

	// Re-embed the original contract verbatim so verify settings carry
	// into the follow-up.
	block := "```" + spec.FenceInfo + "\n" + rawBlock + "\n```"

	if !decoded.CreatePhaseFollowups {
		kinds := make([]string, 0, len(report.Findings))
		seen := map[string]bool{}
		for _, f := range report.Findings {
			if !seen[f.Kind] {
				seen[f.Kind] = true
				kinds = append(kinds, f.Kind)
			}
		}
		sort.Strings(kinds)

		title := "redrift: " + report.TaskTitle
		desc := strings.Join([]string{
			"Run redrift v2 cycle for this task.",
			"",
			"Context:",
			"- Origin task: " + report.TaskID,
			"- Findings: " + strings.Join(kinds, ", "),
			"",
			formatContractBlock("explore", title, nil),
			strings.TrimSpace(block),
		}, "\n") + "\n"

		return s.store.EnsureTask(ctx, secondary.EnsureTaskRequest{
			TaskID:      "redrift-v2-" + report.TaskID,
			Title:       title,
			Description: desc,
			BlockedBy:   []string{report.TaskID},
			Tags:        []string{"drift", "redrift"},
		})
	}

	phaseMissing, _ := report.Telemetry["phase_missing"].(map[string][]string)
	for _, p := range phase.Order {
		missing := phaseMissing[p]
		if len(missing) == 0 {
			continue
		}

		title := fmt.Sprintf("redrift %s: %s", p, report.TaskTitle)
		lines := make([]string, 0, len(missing))
		for _, m := range missing {
			lines = append(lines, "- "+m)
		}
		desc := strings.Join([]string{
			fmt.Sprintf("Complete redrift %s artifacts before proceeding.", p),
			"",
			"Context:",
			"- Origin task: " + report.TaskID,
			"- Phase: " + p,
			"- Missing artifacts:",
			strings.Join(lines, "\n"),
			"",
			formatContractBlock(phase.Mode(p), title, nil),
			strings.TrimSpace(block),
		}, "\n") + "\n"

		err := s.store.EnsureTask(ctx, secondary.EnsureTaskRequest{
			TaskID:      fmt.Sprintf("redrift-%s-%s", p, report.TaskID),
			Title:       title,
			Description: desc,
			BlockedBy:   []string{report.TaskID},
			Tags:        []string{"drift", "redrift", p},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
