// Package wire provides dependency injection for the redrift CLI. A
// container is built per invocation because the workgraph directory is a
// command flag, not ambient process state.
package wire

import (
	"path/filepath"

	"github.com/dbmcco/redrift/internal/adapters/workgraph"
	"github.com/dbmcco/redrift/internal/app"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// Container holds the wired service graph for one resolved project.
type Container struct {
	WgDir      string
	ProjectDir string

	Drift   primary.DriftService
	Verify  primary.VerifyService
	Execute primary.ExecuteService
	Commit  primary.CommitService
}

// Build resolves the workgraph directory from dir (or upward from the
// working directory when dir is empty) and wires the full service graph
// against it.
func Build(dir string) (*Container, error) {
	wgDir, err := workgraph.FindDir(dir)
	if err != nil {
		return nil, err
	}
	projectDir := filepath.Dir(wgDir)

	store := workgraph.NewClient(wgDir)
	log := workgraph.NewLogReader(wgDir)
	git := app.NewGitService()

	storeFactory := func(wgDir string) secondary.TaskStore {
		return workgraph.NewClient(wgDir)
	}

	return &Container{
		WgDir:      wgDir,
		ProjectDir: projectDir,
		Drift:      app.NewDriftService(store, log, git, wgDir, projectDir),
		Verify:     app.NewVerifyService(store, git, projectDir),
		Execute:    app.NewExecuteService(storeFactory, git, wgDir, projectDir),
		Commit:     app.NewCommitService(store, git, projectDir),
	}, nil
}
