package app

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// GitService provides the git plumbing checkpoint commits and v2
// bootstrap need.
type GitService struct{}

// NewGitService creates a new GitService.
func NewGitService() *GitService {
	return &GitService{}
}

// RootDir resolves the repository toplevel for a directory. The second
// result is false when the directory is not inside a git repository.
func (s *GitService) RootDir(dir string) (string, bool) {
	out, err := s.output(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", false
	}
	root := strings.TrimSpace(out)
	return root, root != ""
}

// HasChanges reports whether the working tree has any changes, staged or
// not.
func (s *GitService) HasChanges(dir string) (bool, error) {
	out, err := s.output(dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// HasStagedChanges reports whether anything is staged for commit.
func (s *GitService) HasStagedChanges(dir string) (bool, error) {
	out, err := s.output(dir, "diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("failed to check staged changes: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// StageAllExcluding stages the full tree minus the given pathspec
// exclude patterns. Git exits 1 when an excluded path is also gitignored;
// that outcome is fine and tolerated.
func (s *GitService) StageAllExcluding(dir string, excludes []string) error {
	args := []string{"add", "-A", "--", "."}
	for _, pat := range excludes {
		args = append(args, ":(exclude)"+pat)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 &&
		strings.Contains(stderr.String(), "ignored by one of your .gitignore files") {
		return nil
	}
	return fmt.Errorf("failed to stage changes: %s", strings.TrimSpace(stderr.String()))
}

// Commit creates a commit with the given message.
func (s *GitService) Commit(dir, message string, noVerify bool) error {
	args := []string{"commit", "-m", message}
	if noVerify {
		args = append(args, "--no-verify")
	}
	if err := s.run(dir, args...); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ShortHead returns the abbreviated sha of HEAD.
func (s *GitService) ShortHead(dir string) (string, error) {
	out, err := s.output(dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// HasHead reports whether the repository has any commit yet.
func (s *GitService) HasHead(dir string) bool {
	return s.run(dir, "rev-parse", "--verify", "HEAD") == nil
}

// Init initializes a repository in dir.
func (s *GitService) Init(dir string) error {
	if err := s.run(dir, "init"); err != nil {
		return fmt.Errorf("failed to init git repo: %w", err)
	}
	return nil
}

// StageAll stages everything.
func (s *GitService) StageAll(dir string) error {
	if err := s.run(dir, "add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

func (s *GitService) run(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}

func (s *GitService) output(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
