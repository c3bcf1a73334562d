package app

import (
	"context"
	"fmt"

	"github.com/dbmcco/redrift/internal/core/spec"
	"github.com/dbmcco/redrift/internal/core/verify"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// VerifyServiceImpl implements primary.VerifyService.
type VerifyServiceImpl struct {
	store      secondary.TaskStore
	git        *GitService
	projectDir string
}

// NewVerifyService creates a VerifyService with injected dependencies.
func NewVerifyService(store secondary.TaskStore, git *GitService, projectDir string) *VerifyServiceImpl {
	return &VerifyServiceImpl{store: store, git: git, projectDir: projectDir}
}

// VerifyTask runs the task's verification suite and persists the report
// so later drift evaluations can trust it. Unlike check, verify demands
// a contract: there is nothing to verify without one.
func (s *VerifyServiceImpl) VerifyTask(ctx context.Context, req primary.VerifyRequest) (*primary.VerifyResponse, error) {
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
		return nil, fmt.Errorf("task %s has no redrift block; add one first", req.TaskID)
	}
	decoded, err := spec.Decode(body)
	if err != nil {
		return nil, err
	}

	gitRoot, _ := s.git.RootDir(s.projectDir)
	report := verify.Run(verify.Input{
		TaskID:     req.TaskID,
		TaskTitle:  title,
		Spec:       decoded,
		ProjectDir: s.projectDir,
		GitRoot:    gitRoot,
	})
	verify.WriteState(s.projectDir, req.TaskID, report)

	return &primary.VerifyResponse{
		Report:    report,
		StatePath: verify.StatePath(s.projectDir, req.TaskID),
	}, nil
}
