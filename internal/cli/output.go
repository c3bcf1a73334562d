// Package cli implements the redrift command tree. Commands parse flags,
// call the wired services, and render reports; evaluation logic lives in
// the core packages.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/dbmcco/redrift/internal/app"
	"github.com/dbmcco/redrift/internal/models"
)

// ExitError carries a process exit code through cobra's error return.
// Findings are reported this way so scripts can branch on exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// emitJSON writes v as indented JSON to stdout.
func emitJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// scoreLabel renders a score in the suite's traffic-light colors.
func scoreLabel(score string) string {
	switch score {
	case models.ScoreGreen:
		return color.New(color.FgHiGreen).Sprint("GREEN")
	case models.ScoreYellow:
		return color.New(color.FgYellow).Sprint("YELLOW")
	case models.ScoreRed:
		return color.New(color.FgHiRed).Sprint("RED")
	default:
		return score
	}
}

func severityLabel(severity string) string {
	if severity == models.SeverityError {
		return color.New(color.FgHiRed).Sprint("error")
	}
	return color.New(color.FgYellow).Sprint("warn")
}

func printReport(report *models.Report) {
	fmt.Printf("Redrift %s - %s (%s)\n", scoreLabel(report.Score), report.TaskTitle, report.TaskID)
	if len(report.Findings) == 0 {
		fmt.Println("No findings.")
		return
	}
	fmt.Println()
	fmt.Println("Findings:")
	for _, f := range report.Findings {
		fmt.Printf("  [%s] %s: %s\n", severityLabel(f.Severity), f.Kind, f.Summary)
	}
	if len(report.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Next steps:")
		for _, r := range report.Recommendations {
			fmt.Printf("  - %s\n", r.Action)
		}
	}
}

func printVerification(report *models.VerificationReport, statePath string) {
	fmt.Printf("Redrift verify %s - %s (%s)\n", scoreLabel(report.Score), report.TaskTitle, report.TaskID)
	for _, c := range report.Commands {
		mark := color.New(color.FgHiGreen).Sprint("ok")
		if !c.OK {
			mark = color.New(color.FgHiRed).Sprintf("exit %d", c.ExitCode)
		}
		fmt.Printf("  cmd [%s] %s\n", mark, c.Command)
	}
	for _, a := range report.Assertions {
		mark := color.New(color.FgHiGreen).Sprint("ok")
		if !a.OK {
			mark = color.New(color.FgHiRed).Sprint("failed")
		}
		fmt.Printf("  assert [%s] %s: %s\n", mark, a.Kind, a.Summary)
	}
	if len(report.Findings) > 0 {
		fmt.Println()
		fmt.Println("Findings:")
		for _, f := range report.Findings {
			fmt.Printf("  [%s] %s: %s\n", severityLabel(f.Severity), f.Kind, f.Summary)
		}
	}
	fmt.Printf("State written to %s\n", statePath)
}

func usageError(format string, args ...any) error {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return &ExitError{Code: app.ExitUsage}
}
