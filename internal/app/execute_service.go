package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/core/spec"
	"github.com/dbmcco/redrift/internal/models"
	"github.com/dbmcco/redrift/internal/ports/primary"
	"github.com/dbmcco/redrift/internal/ports/secondary"
)

// Exit codes shared with the CLI. Findings are a distinct, non-fatal
// outcome: the run worked, the gate is just not green.
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitFindings = 3
)

// V2WorkgraphIgnores are appended to a bootstrapped repo's workgraph
// gitignore. Redrift artifacts stay tracked; only suite state and the
// last.json cache are ignored.
var V2WorkgraphIgnores = []string{
	".speedrift/",
	".specdrift/",
	".datadrift/",
	".depsdrift/",
	".uxdrift/",
	".therapydrift/",
	".yagnidrift/",
	".redrift/last.json",
}

// bootstrapCopyNames are the suite wrappers and policy files carried
// from the source workgraph into a bootstrapped sibling repo.
var bootstrapCopyNames = []string{
	"drifts",
	"driftdriver",
	"speedrift",
	"specdrift",
	"datadrift",
	"depsdrift",
	"uxdrift",
	"therapydrift",
	"yagnidrift",
	"redrift",
	"drift-policy.toml",
}

// StoreFactory builds a TaskStore for a workgraph directory. Execute
// needs one because a v2 bootstrap targets a different repository than
// the one it started from.
type StoreFactory func(wgDir string) secondary.TaskStore

// ExecuteServiceImpl implements primary.ExecuteService.
type ExecuteServiceImpl struct {
	newStore   StoreFactory
	git        *GitService
	wgDir      string
	projectDir string
}

// NewExecuteService creates an ExecuteService with injected dependencies.
func NewExecuteService(newStore StoreFactory, git *GitService, wgDir, projectDir string) *ExecuteServiceImpl {
	return &ExecuteServiceImpl{newStore: newStore, git: git, wgDir: wgDir, projectDir: projectDir}
}

// ExecuteLane creates the four-phase execution lane for a contract task
// and runs the plugin suite against it, optionally inside a bootstrapped
// sibling v2 repository.
func (s *ExecuteServiceImpl) ExecuteLane(ctx context.Context, req primary.ExecuteRequest) (*primary.ExecuteResponse, error) {
	if !fileExists(filepath.Join(s.wgDir, "speedrift")) {
		return nil, fmt.Errorf("%s not found; run driftdriver install first", filepath.Join(s.wgDir, "speedrift"))
	}

	sourceStore := s.newStore(s.wgDir)
	task, err := sourceStore.ShowTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	title := task.Title
	if title == "" {
		title = req.TaskID
	}
	description := task.Description

	body, found := spec.ExtractBlock(description)
	if !found {
		return nil, fmt.Errorf("task %s has no redrift block; add one first", req.TaskID)
	}
	decoded, err := spec.Decode(body)
	if err != nil {
		return nil, err
	}

	targetProject := s.projectDir
	targetWgDir := s.wgDir
	targetStore := sourceStore
	var bootstrapNotes []string

	if req.V2Repo != "" {
		targetProject, targetWgDir, bootstrapNotes, err = s.bootstrapV2Repo(req.V2Repo)
		if err != nil {
			return nil, err
		}
		targetStore = s.newStore(targetWgDir)

		rootDesc := strings.Join([]string{
			"Redrift v2 root lane generated from source repository.",
			"",
			fmt.Sprintf("Source repo: `%s`", s.projectDir),
			fmt.Sprintf("Source task: `%s`", req.TaskID),
			"",
			description,
		}, "\n")
		err = targetStore.EnsureTask(ctx, secondary.EnsureTaskRequest{
			TaskID:      req.TaskID,
			Title:       title,
			Description: rootDesc,
			Tags:        []string{"redrift", "execute", "v2-root"},
		})
		if err != nil {
			return nil, err
		}
		description = rootDesc
	}

	if !fileExists(filepath.Join(targetWgDir, "speedrift")) {
		return nil, fmt.Errorf("target repo missing %s wrapper; install driftdriver in target repo first",
			filepath.Join(targetWgDir, "speedrift"))
	}

	inherited := extractSuiteFences(description)
	phaseMap := phase.GroupArtifacts(decoded)

	var phaseTaskIDs []string
	phaseDescriptions := map[string]string{}
	var previousTaskID string

	for _, p := range phase.Order {
		required := phaseMap[p]
		if len(required) == 0 {
			continue
		}
		phaseTaskID := PhaseTaskID(p, req.TaskID)
		phaseTitle := fmt.Sprintf("redrift execute %s: %s", p, title)
		phaseDesc := buildPhaseTaskDescription(p, req.TaskID, title, phaseTaskID, decoded, required, inherited)

		var blockedBy []string
		if previousTaskID != "" {
			blockedBy = []string{previousTaskID}
		}
		err := targetStore.EnsureTask(ctx, secondary.EnsureTaskRequest{
			TaskID:      phaseTaskID,
			Title:       phaseTitle,
			Description: phaseDesc,
			BlockedBy:   blockedBy,
			Tags:        []string{"drift", "redrift", "execute", p},
		})
		if err != nil {
			return nil, err
		}
		phaseTaskIDs = append(phaseTaskIDs, phaseTaskID)
		phaseDescriptions[phaseTaskID] = phaseDesc
		previousTaskID = phaseTaskID
	}

	var suiteResults []primary.SuiteResult
	outRC := ExitOK

	rootRC, rootPlugins := s.runSuiteCheck(targetWgDir, targetProject, req.TaskID, description, req.WriteLog, req.CreateFollowups)
	suiteResults = append(suiteResults, primary.SuiteResult{TaskID: req.TaskID, ExitCode: rootRC, Plugins: rootPlugins})
	if rootRC != ExitOK && rootRC != ExitFindings {
		outRC = rootRC
	} else if rootRC == ExitFindings {
		outRC = ExitFindings
	}

	if (outRC == ExitOK || outRC == ExitFindings) && req.PhaseChecks {
		for _, phaseTaskID := range phaseTaskIDs {
			rc, plugins := s.runSuiteCheck(targetWgDir, targetProject, phaseTaskID,
				phaseDescriptions[phaseTaskID], req.WriteLog, req.PhaseFollowups && req.CreateFollowups)
			suiteResults = append(suiteResults, primary.SuiteResult{TaskID: phaseTaskID, ExitCode: rc, Plugins: plugins})
			if rc != ExitOK && rc != ExitFindings {
				outRC = rc
				break
			}
			if rc == ExitFindings && outRC == ExitOK {
				outRC = ExitFindings
			}
		}
	}

	serviceStarted := false
	serviceError := ""
	if req.StartService {
		if err := runCommandInherit("wg", "--dir", targetWgDir, "service", "start"); err != nil {
			serviceError = err.Error()
		} else {
			serviceStarted = true
		}
	}

	fences := make([]string, 0, len(inherited))
	for fence := range inherited {
		fences = append(fences, fence)
	}
	sort.Strings(fences)

	return &primary.ExecuteResponse{
		TaskID:          req.TaskID,
		TaskTitle:       title,
		TargetRepo:      targetProject,
		TargetWorkgraph: targetWgDir,
		BootstrapNotes:  bootstrapNotes,
		PhaseTasks:      phaseTaskIDs,
		InheritedFences: fences,
		SuiteResults:    suiteResults,
		ServiceStarted:  serviceStarted,
		ServiceError:    serviceError,
		ExitCode:        outRC,
	}, nil
}

// PhaseTaskID names the generated execution task for a phase.
func PhaseTaskID(p, rootTaskID string) string {
	return fmt.Sprintf("redrift-exec-%s-%s", p, rootTaskID)
}

// phaseTouchPaths lists the path globs a phase task is expected to edit.
func phaseTouchPaths(decoded *models.Spec, rootTaskID, p string) []string {
	base := []string{
		fmt.Sprintf("%s/%s/%s/**", decoded.ArtifactRoot, rootTaskID, p),
		"docs/**",
		".workgraph/**",
	}
	if p == phase.Build {
		base = append(base, "src/**", "api/**", "db/**")
	}
	return base
}

func buildPhaseTaskDescription(p, rootTaskID, rootTitle, phaseTaskID string, decoded *models.Spec, required []string, inherited map[string]string) string {
	title := fmt.Sprintf("redrift execute %s: %s", p, rootTitle)

	artifactLines := "- (none)"
	if len(required) > 0 {
		lines := make([]string, 0, len(required))
		for _, rel := range required {
			lines = append(lines, "- "+rel)
		}
		artifactLines = strings.Join(lines, "\n")
	}

	parts := []string{
		fmt.Sprintf("Execute redrift %s phase for `%s`.", p, rootTaskID),
		"",
		"Context:",
		"- Origin task: " + rootTaskID,
		"- Phase: " + p,
		"- Required artifacts:",
		artifactLines,
		"",
		"Execution protocol:",
		fmt.Sprintf("- Before edits: `./.workgraph/drifts check --task %s --write-log`", phaseTaskID),
		fmt.Sprintf("- Before done: `./.workgraph/drifts check --task %s --write-log`", phaseTaskID),
		fmt.Sprintf("- Checkpoint commit: `./.workgraph/redrift wg commit --task %s --phase %s`", phaseTaskID, p),
		"",
		formatContractBlock(phase.Mode(p), title, phaseTouchPaths(decoded, rootTaskID, p)),
		"",
		strings.TrimSpace(spec.FormatBlock(decoded, required, false)),
	}

	for _, fence := range OptionalSuiteFences {
		fenceBody := inherited[fence]
		if fenceBody == "" {
			continue
		}
		parts = append(parts, "", "```"+fence, fenceBody, "```")
	}

	return strings.Join(parts, "\n") + "\n"
}

// runSuiteCheck invokes the sibling plugin binaries for one task in the
// fixed order: speedrift unconditionally, then each plugin enabled by a
// fence in the task description. A plugin exit other than ok/findings
// aborts the suite.
func (s *ExecuteServiceImpl) runSuiteCheck(wgDir, projectDir, taskID, description string, writeLog, createFollowups bool) (int, []primary.PluginRun) {
	var plugins []primary.PluginRun

	enabled := extractSuiteFences(description)
	if _, ok := spec.ExtractBlock(description); ok {
		enabled["redrift"] = "<embedded>"
	}

	overall := ExitOK

	args := []string{"--dir", projectDir, "check", "--task", taskID}
	if writeLog {
		args = append(args, "--write-log")
	}
	if createFollowups {
		args = append(args, "--create-followups")
	}
	speedRC := runPluginBinary(filepath.Join(wgDir, "speedrift"), args)
	plugins = append(plugins, primary.PluginRun{Plugin: "speedrift", ExitCode: speedRC})
	if speedRC != ExitOK && speedRC != ExitFindings {
		return speedRC, plugins
	}
	if speedRC == ExitFindings {
		overall = ExitFindings
	}

	for _, plugin := range ExecutePluginOrder {
		if plugin == "speedrift" {
			continue
		}
		if _, ok := enabled[plugin]; !ok {
			continue
		}

		pluginBin := filepath.Join(wgDir, plugin)
		if !fileExists(pluginBin) {
			plugins = append(plugins, primary.PluginRun{Plugin: plugin, ExitCode: ExitOK, Note: "wrapper_missing"})
			continue
		}

		// uxdrift takes its wg subcommand before --dir; the rest after.
		var pluginArgs []string
		if plugin == "uxdrift" {
			pluginArgs = []string{"wg", "--dir", projectDir, "check", "--task", taskID}
		} else {
			pluginArgs = []string{"--dir", projectDir, "wg", "check", "--task", taskID}
		}
		if writeLog {
			pluginArgs = append(pluginArgs, "--write-log")
		}
		if createFollowups {
			pluginArgs = append(pluginArgs, "--create-followups")
		}

		rc := runPluginBinary(pluginBin, pluginArgs)
		plugins = append(plugins, primary.PluginRun{Plugin: plugin, ExitCode: rc})
		if rc != ExitOK && rc != ExitFindings {
			return rc, plugins
		}
		if rc == ExitFindings && overall == ExitOK {
			overall = ExitFindings
		}
	}

	return overall, plugins
}

// bootstrapV2Repo prepares a sibling repository for the v2 rebuild:
// fresh git repo, fresh workgraph, suite wrappers copied across, and a
// first checkpoint commit when possible.
func (s *ExecuteServiceImpl) bootstrapV2Repo(requested string) (targetProject, targetWgDir string, notes []string, err error) {
	if strings.ToLower(strings.TrimSpace(requested)) != "auto" {
		targetProject, err = filepath.Abs(requested)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to resolve v2 repo path: %w", err)
		}
	} else {
		targetProject = filepath.Join(filepath.Dir(s.projectDir), filepath.Base(s.projectDir)+"-v2")
	}

	if err := os.MkdirAll(targetProject, 0755); err != nil {
		return "", "", nil, fmt.Errorf("failed to create v2 repo dir: %w", err)
	}

	if !fileExists(filepath.Join(targetProject, ".git")) {
		if err := s.git.Init(targetProject); err != nil {
			return "", "", nil, err
		}
		notes = append(notes, "initialized_git_repo")
	}

	targetWgDir = filepath.Join(targetProject, ".workgraph")
	if !fileExists(filepath.Join(targetWgDir, "graph.jsonl")) {
		if err := runCommandInherit("wg", "init", "--dir", targetWgDir); err != nil {
			return "", "", nil, fmt.Errorf("failed to init target workgraph: %w", err)
		}
		notes = append(notes, "initialized_workgraph")
	}

	readme := filepath.Join(targetProject, "README.md")
	if !fileExists(readme) {
		content := fmt.Sprintf("# %s\n\nv2 rebuild workspace bootstrapped by redrift.\n\nSource repo: `%s`\n",
			filepath.Base(targetProject), s.projectDir)
		if err := os.WriteFile(readme, []byte(content), 0644); err == nil {
			notes = append(notes, "created_readme")
		}
	}

	additions, err := mergeV2WorkgraphGitignore(filepath.Join(s.wgDir, ".gitignore"), filepath.Join(targetWgDir, ".gitignore"))
	if err != nil {
		return "", "", nil, err
	}
	if additions > 0 {
		notes = append(notes, fmt.Sprintf("merged:.gitignore:%d", additions))
	}

	for _, name := range bootstrapCopyNames {
		src := filepath.Join(s.wgDir, name)
		dst := filepath.Join(targetWgDir, name)
		if !fileExists(src) || fileExists(dst) {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			continue
		}
		notes = append(notes, "copied:"+name)
	}

	srcExec := filepath.Join(s.wgDir, "executors")
	dstExec := filepath.Join(targetWgDir, "executors")
	if isDirectory(srcExec) && !fileExists(dstExec) {
		if err := copyTree(srcExec, dstExec); err == nil {
			notes = append(notes, "copied:executors")
		}
	}

	// First checkpoint commit in brand-new repos, best-effort.
	if !s.git.HasHead(targetProject) {
		if hasChanges, _ := s.git.HasChanges(targetProject); hasChanges {
			err := s.git.StageAll(targetProject)
			if err == nil {
				err = s.git.Commit(targetProject, "redrift: bootstrap v2 workspace", false)
			}
			if err != nil {
				notes = append(notes, "bootstrap_commit_failed")
			} else if sha, shaErr := s.git.ShortHead(targetProject); shaErr == nil {
				notes = append(notes, "bootstrap_commit:"+sha)
			}
		}
	}

	return targetProject, targetWgDir, notes, nil
}

// mergeV2WorkgraphGitignore carries source workgraph ignores into the
// target, dropping the blanket `.redrift/` ignore (artifacts must stay
// tracked in a v2 repo) and appending the suite-state defaults. Returns
// the number of lines added.
func mergeV2WorkgraphGitignore(source, target string) (int, error) {
	var sourceLines []string
	if data, err := os.ReadFile(source); err == nil {
		sourceLines = strings.Split(string(data), "\n")
	}

	var targetLines []string
	if data, err := os.ReadFile(target); err == nil {
		targetLines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	existing := map[string]bool{}
	for _, line := range targetLines {
		existing[line] = true
	}

	var additions []string
	for _, line := range sourceLines {
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		if strings.TrimSpace(line) == ".redrift/" {
			continue
		}
		if !existing[line] {
			additions = append(additions, line)
			existing[line] = true
		}
	}
	for _, line := range V2WorkgraphIgnores {
		if !existing[line] {
			additions = append(additions, line)
			existing[line] = true
		}
	}

	if len(additions) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to prepare gitignore dir: %w", err)
	}
	merged := strings.TrimRight(strings.Join(append(targetLines, additions...), "\n"), "\n") + "\n"
	if err := os.WriteFile(target, []byte(merged), 0644); err != nil {
		return 0, fmt.Errorf("failed to write gitignore: %w", err)
	}
	return len(additions), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

func runPluginBinary(bin string, args []string) int {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return ExitOK
}

func runCommandInherit(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
