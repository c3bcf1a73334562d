// Package phase contains the pure classification logic for the four
// migration lifecycle phases. Every artifact path and task id maps to
// exactly one phase; there is no error case.
package phase

import (
	"regexp"
	"strings"

	"github.com/dbmcco/redrift/internal/models"
)

// Phase names in lifecycle order.
const (
	Analyze = "analyze"
	Respec  = "respec"
	Design  = "design"
	Build   = "build"
)

// Order is the canonical phase sequence.
var Order = []string{Analyze, Respec, Design, Build}

var execTaskRe = regexp.MustCompile(`^redrift-exec-(analyze|respec|design|build)-`)

// Known reports whether name is one of the four lifecycle phases.
func Known(name string) bool {
	switch name {
	case Analyze, Respec, Design, Build:
		return true
	}
	return false
}

// ForArtifact classifies a relative artifact path by its first path
// segment. Unknown segments land in the build phase.
func ForArtifact(rel string) string {
	part, _, _ := strings.Cut(rel, "/")
	part = strings.ToLower(strings.TrimSpace(part))
	if Known(part) {
		return part
	}
	return Build
}

// GroupArtifacts buckets a contract's required artifacts by phase,
// preserving the contract's ordering within each bucket. Every phase key
// is present even when empty.
func GroupArtifacts(spec *models.Spec) map[string][]string {
	out := make(map[string][]string, len(Order))
	for _, p := range Order {
		out[p] = []string{}
	}
	for _, rel := range spec.RequiredArtifacts {
		rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
		if rel == "" {
			continue
		}
		p := ForArtifact(rel)
		out[p] = append(out[p], rel)
	}
	return out
}

// Mode returns the execution mode for generated phase tasks: exploration
// for the pre-build phases, core implementation for build.
func Mode(p string) string {
	if p == Build {
		return "core"
	}
	return "explore"
}

// FromTaskID recovers the phase label from a generated execution task id
// (redrift-exec-<phase>-...). Anything else is the root lane.
func FromTaskID(taskID string) string {
	m := execTaskRe.FindStringSubmatch(taskID)
	if m != nil {
		return m[1]
	}
	return "root"
}
