// Package drift evaluates a task's migration contract against the
// working tree: artifact completeness per phase, unresolved follow-up
// lineage, and the persisted verification gate, assembled into a single
// scored report.
package drift

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/models"
)

// Detail caps keep finding payloads bounded on pathological contracts.
const (
	missingDetailCap  = 120
	phaseDetailCap    = 60
	followupDetailCap = 30
)

// ArtifactAudit is the result of checking required artifacts on disk.
type ArtifactAudit struct {
	Dir           string
	ExistingCount int
	Missing       []string
	PhaseMissing  map[string][]string
}

// AuditArtifacts checks each required artifact under
// <projectDir>/<artifact_root>/<taskID>/ and groups missing ones by
// phase. The result reflects filesystem state at call time; concurrent
// modification between check and use is accepted.
func AuditArtifacts(spec *models.Spec, taskID, projectDir string) ArtifactAudit {
	audit := ArtifactAudit{
		Dir:          filepath.Join(projectDir, filepath.FromSlash(spec.ArtifactRoot), taskID),
		PhaseMissing: map[string][]string{},
	}

	for _, rel := range spec.RequiredArtifacts {
		rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
		if rel == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(audit.Dir, filepath.FromSlash(rel))); err == nil {
			audit.ExistingCount++
			continue
		}
		audit.Missing = append(audit.Missing, rel)
		p := phase.ForArtifact(rel)
		audit.PhaseMissing[p] = append(audit.PhaseMissing[p], rel)
	}

	return audit
}

// Findings converts the audit into drift findings: one for an unsupported
// schema, one for the overall missing set, and one per incomplete phase
// in lifecycle order.
func (a ArtifactAudit) Findings(spec *models.Spec) []models.Finding {
	var findings []models.Finding

	if spec.Schema != models.SupportedSchema {
		findings = append(findings, models.Finding{
			Kind:     models.KindUnsupportedSchema,
			Severity: models.SeverityError,
			Summary:  fmt.Sprintf("Unsupported redrift schema: %d (expected %d)", spec.Schema, models.SupportedSchema),
		})
	}

	if len(a.Missing) > 0 {
		findings = append(findings, models.Finding{
			Kind:     models.KindMissingArtifacts,
			Severity: models.SeverityError,
			Summary:  fmt.Sprintf("Missing %d required redrift artifact(s)", len(a.Missing)),
			Details:  map[string]any{"missing": capList(a.Missing, missingDetailCap)},
		})
	}

	for _, p := range phase.Order {
		missing := a.PhaseMissing[p]
		if len(missing) == 0 {
			continue
		}
		findings = append(findings, models.Finding{
			Kind:     models.KindPhaseIncomplete + p,
			Severity: models.SeverityError,
			Summary:  fmt.Sprintf("%s phase is incomplete (%d artifact(s) missing)", p, len(missing)),
			Details:  map[string]any{"missing": capList(missing, phaseDetailCap)},
		})
	}

	return findings
}

func capList(items []string, limit int) []string {
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}
