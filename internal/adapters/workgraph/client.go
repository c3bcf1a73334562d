package workgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dbmcco/redrift/internal/models"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// Client drives the external wg binary for task operations. It
// implements secondary.TaskStore.
type Client struct {
	wgDir string
	bin   string
}

// NewClient creates a client bound to one workgraph directory.
func NewClient(wgDir string) *Client {
	return &Client{wgDir: wgDir, bin: "wg"}
}

// ShowTask loads a task via `wg task show --json`.
func (c *Client) ShowTask(ctx context.Context, taskID string) (*models.Task, error) {
	out, err := c.run(ctx, "task", "show", taskID, "--json")
	if err != nil {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	var task models.Task
	if err := json.Unmarshal(out, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return &task, nil
}

// EnsureTask creates a task unless it already exists.
func (c *Client) EnsureTask(ctx context.Context, req secondary.EnsureTaskRequest) error {
	if _, err := c.ShowTask(ctx, req.TaskID); err == nil {
		return nil
	}

	args := []string{"task", "add", req.TaskID, "--title", req.Title, "--description", req.Description}
	for _, dep := range req.BlockedBy {
		args = append(args, "--blocked-by", dep)
	}
	for _, tag := range req.Tags {
		args = append(args, "--tag", tag)
	}
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create task %s: %w", req.TaskID, err)
	}
	return nil
}

// AppendLog writes one audit line via `wg task log`.
func (c *Client) AppendLog(ctx context.Context, taskID, message string) error {
	if _, err := c.run(ctx, "task", "log", taskID, message); err != nil {
		return fmt.Errorf("failed to write wg log for %s: %w", taskID, err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"--dir", c.wgDir}, args...)
	cmd := exec.CommandContext(ctx, c.bin, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("wg %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.Bytes(), nil
}
