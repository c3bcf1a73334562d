// Package verify executes a contract's verification suite: shell commands
// plus structural file assertions, scored into a persistable report.
// Execution is synchronous and sequential; a command that hangs blocks
// the run, and no timeout is enforced.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dbmcco/redrift/internal/models"
)

// outputLimit caps captured stdout/stderr per command.
const outputLimit = 2000

// truncatedMarker is appended when captured output exceeds the limit.
const truncatedMarker = "\n...[truncated]..."

// Input carries everything a verification run needs.
type Input struct {
	TaskID     string
	TaskTitle  string
	Spec       *models.Spec
	ProjectDir string
	GitRoot    string
}

// Run executes the contract's verify commands and assertions against the
// project tree and scores the outcome: green iff no findings, else red.
// A required gate with nothing configured is itself a finding; an empty
// optional gate is vacuously green.
func Run(in Input) *models.VerificationReport {
	var findings []models.Finding

	commands := make([]string, 0, len(in.Spec.VerifyCommands))
	for _, c := range in.Spec.VerifyCommands {
		c = strings.TrimSpace(c)
		if c != "" {
			commands = append(commands, c)
		}
	}
	assertions := in.Spec.VerifyAssertions

	if in.Spec.VerifyRequired && len(commands) == 0 && len(assertions) == 0 {
		findings = append(findings, models.Finding{
			Kind:     models.KindVerifyUnconfigured,
			Severity: models.SeverityError,
			Summary:  "verify_required=true but no verify commands/assertions are configured",
		})
	}

	commandResults := make([]models.CommandResult, 0, len(commands))
	for _, command := range commands {
		row := runCommand(in.ProjectDir, command)
		commandResults = append(commandResults, row)
		if !row.OK {
			findings = append(findings, models.Finding{
				Kind:     models.KindVerifyCommandFailed,
				Severity: models.SeverityError,
				Summary:  fmt.Sprintf("Command failed: %s", command),
				Details:  map[string]any{"exit_code": row.ExitCode},
			})
		}
	}

	assertionResults := make([]models.AssertionResult, 0, len(assertions))
	for _, assertion := range assertions {
		row := runAssertion(in.ProjectDir, assertion)
		assertionResults = append(assertionResults, row)
		if !row.OK {
			findings = append(findings, models.Finding{
				Kind:     models.KindVerifyAssertionError,
				Severity: models.SeverityError,
				Summary:  row.Summary,
				Details:  map[string]any{"assertion": assertionDetail(assertion), "result": row},
			})
		}
	}

	score := models.ScoreGreen
	if len(findings) > 0 {
		score = models.ScoreRed
	}
	if findings == nil {
		findings = []models.Finding{}
	}

	return &models.VerificationReport{
		TaskID:     in.TaskID,
		TaskTitle:  in.TaskTitle,
		GitRoot:    in.GitRoot,
		Score:      score,
		Required:   in.Spec.VerifyRequired,
		Commands:   commandResults,
		Assertions: assertionResults,
		Findings:   findings,
		Summary: models.VerifySummary{
			CommandsTotal:    len(commandResults),
			CommandsFailed:   countFailedCommands(commandResults),
			AssertionsTotal:  len(assertionResults),
			AssertionsFailed: countFailedAssertions(assertionResults),
		},
		GeneratedAtEpochMS: time.Now().UnixMilli(),
	}
}

// runCommand runs one verify command through a shell, blocking until it
// completes, and captures exit code, duration, and truncated output.
// assertionDetail reproduces the assertion definition for finding
// details. The raw contract table wins when present so extra keys the
// typed struct does not model survive into the persisted report.
func assertionDetail(a models.Assertion) any {
	if a.Raw != nil {
		return a.Raw
	}
	return a
}

func runCommand(projectDir, command string) models.CommandResult {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("bash", "-lc", command)
	cmd.Dir = projectDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	duration := time.Since(started).Milliseconds()

	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	return models.CommandResult{
		Command:    command,
		ExitCode:   exitCode,
		OK:         exitCode == 0,
		DurationMS: duration,
		Stdout:     truncate(stdout.String()),
		Stderr:     truncate(stderr.String()),
	}
}

func truncate(text string) string {
	if len(text) <= outputLimit {
		return text
	}
	return text[:outputLimit] + truncatedMarker
}

func countFailedCommands(rows []models.CommandResult) int {
	n := 0
	for _, r := range rows {
		if !r.OK {
			n++
		}
	}
	return n
}

func countFailedAssertions(rows []models.AssertionResult) int {
	n := 0
	for _, r := range rows {
		if !r.OK {
			n++
		}
	}
	return n
}
