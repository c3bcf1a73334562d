package spec

import (
	"fmt"
	"strings"

	"github.com/dbmcco/redrift/internal/models"
)

// FormatBlock re-encodes a contract block for embedding in generated task
// descriptions. Only the artifact contract is carried forward; generated
// tasks never re-trigger verification or followup spawning on their own.
func FormatBlock(s *models.Spec, requiredArtifacts []string, createPhaseFollowups bool) string {
	var b strings.Builder
	b.WriteString("```" + FenceInfo + "\n")
	fmt.Fprintf(&b, "schema = %d\n", s.Schema)
	fmt.Fprintf(&b, "artifact_root = %s\n", tomlString(s.ArtifactRoot))
	b.WriteString("required_artifacts = [\n")
	for _, rel := range requiredArtifacts {
		fmt.Fprintf(&b, "  %s,\n", tomlString(rel))
	}
	b.WriteString("]\n")
	fmt.Fprintf(&b, "create_phase_followups = %t\n", createPhaseFollowups)
	b.WriteString("```\n")
	return b.String()
}

// tomlString renders s as a TOML basic string, scrubbing quotes and
// newlines rather than escaping them. Artifact paths and roots never
// legitimately contain either.
func tomlString(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "\n", " ")
	return `"` + strings.TrimSpace(s) + `"`
}
