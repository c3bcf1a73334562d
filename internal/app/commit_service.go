package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// CommitPhases are the accepted checkpoint phase labels.
var CommitPhases = []string{"root", "analyze", "respec", "design", "build"}

// CommitExcludePaths are the drift-suite state paths kept out of
// checkpoint commits. Artifacts under .redrift stay tracked; only the
// transient last.json cache is excluded.
var CommitExcludePaths = []string{
	".workgraph/.speedrift/**",
	".workgraph/.specdrift/**",
	".workgraph/.datadrift/**",
	".workgraph/.depsdrift/**",
	".workgraph/.uxdrift/**",
	".workgraph/.therapydrift/**",
	".workgraph/.yagnidrift/**",
	".workgraph/.redrift/last.json",
}

// CommitServiceImpl implements primary.CommitService.
type CommitServiceImpl struct {
	store      secondary.TaskStore
	git        *GitService
	projectDir string
}

// NewCommitService creates a CommitService with injected dependencies.
func NewCommitService(store secondary.TaskStore, git *GitService, projectDir string) *CommitServiceImpl {
	return &CommitServiceImpl{store: store, git: git, projectDir: projectDir}
}

// CommitCheckpoint stages the tree minus drift-suite state and creates a
// structured checkpoint commit for the task.
func (s *CommitServiceImpl) CommitCheckpoint(ctx context.Context, req primary.CommitRequest) (*primary.CommitResponse, error) {
	if _, ok := s.git.RootDir(s.projectDir); !ok {
		return nil, fmt.Errorf("project is not inside a git repository")
	}

	task, err := s.store.ShowTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	title := task.Title
	if title == "" {
		title = req.TaskID
	}

	commitPhase := strings.ToLower(strings.TrimSpace(req.Phase))
	if commitPhase == "" {
		commitPhase = phase.FromTaskID(req.TaskID)
	}
	if !isCommitPhase(commitPhase) {
		return nil, fmt.Errorf("unsupported phase %q", commitPhase)
	}

	hasChanges, err := s.git.HasChanges(s.projectDir)
	if err != nil {
		return nil, err
	}
	if !hasChanges {
		return nil, fmt.Errorf("no git changes to commit")
	}

	subject := strings.TrimSpace(req.Message)
	if subject == "" {
		subject = title
	}
	message := FormatCommitMessage(commitPhase, subject, req.TaskID)

	sha := "dry-run"
	if !req.DryRun {
		if err := s.git.StageAllExcluding(s.projectDir, CommitExcludePaths); err != nil {
			return nil, err
		}
		staged, err := s.git.HasStagedChanges(s.projectDir)
		if err != nil {
			return nil, err
		}
		if !staged {
			return nil, fmt.Errorf("no commit-eligible git changes after redrift excludes")
		}
		if err := s.git.Commit(s.projectDir, message, req.NoVerify); err != nil {
			return nil, err
		}
		sha, err = s.git.ShortHead(s.projectDir)
		if err != nil {
			return nil, err
		}
		if req.WriteLog {
			_ = s.store.AppendLog(ctx, req.TaskID, fmt.Sprintf("Redrift commit: %s %s", sha, message))
		}
	}

	return &primary.CommitResponse{
		TaskID:        req.TaskID,
		Phase:         commitPhase,
		CommitMessage: message,
		CommitSHA:     sha,
		ProjectDir:    s.projectDir,
		DryRun:        req.DryRun,
	}, nil
}

// FormatCommitMessage renders the structured checkpoint subject line.
func FormatCommitMessage(commitPhase, subject, taskID string) string {
	return fmt.Sprintf("redrift(%s): %s [%s]", commitPhase, subject, taskID)
}

func isCommitPhase(p string) bool {
	for _, known := range CommitPhases {
		if p == known {
			return true
		}
	}
	return false
}
