package app

import (
	"fmt"
	"regexp"
	"strings"
)

// OptionalSuiteFences are the sibling drift-plugin blocks a task
// description may carry. Their bodies are opaque to redrift and are
// inherited verbatim by generated phase tasks.
var OptionalSuiteFences = []string{
	"specdrift",
	"datadrift",
	"depsdrift",
	"uxdrift",
	"therapydrift",
	"yagnidrift",
}

// ExecutePluginOrder is the fixed invocation order of the sibling
// verification plugins during suite checks. speedrift always runs first;
// the rest run only when enabled by a fence in the task description.
var ExecutePluginOrder = []string{
	"speedrift", "specdrift", "datadrift", "depsdrift", "uxdrift", "therapydrift", "yagnidrift", "redrift",
}

var genericFenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_-]+)[ \t]*\n(.*?)\n```")

// extractSuiteFences collects the optional plugin fence bodies from a
// task description, first occurrence per plugin.
func extractSuiteFences(description string) map[string]string {
	blocks := map[string]string{}
	for _, m := range genericFenceRe.FindAllStringSubmatch(description, -1) {
		info := strings.ToLower(strings.TrimSpace(m[1]))
		if !isSuiteFence(info) {
			continue
		}
		if _, seen := blocks[info]; seen {
			continue
		}
		blocks[info] = strings.TrimSpace(m[2])
	}
	return blocks
}

func isSuiteFence(info string) bool {
	for _, fence := range OptionalSuiteFences {
		if info == fence {
			return true
		}
	}
	return false
}

// formatContractBlock renders the driftdriver contract fence embedded in
// generated task descriptions.
func formatContractBlock(mode, objective string, touch []string) string {
	var b strings.Builder
	b.WriteString("```contract\n")
	fmt.Fprintf(&b, "mode = %q\n", mode)
	fmt.Fprintf(&b, "objective = %q\n", scrubTOMLString(objective))
	if len(touch) == 0 {
		b.WriteString("touch = []\n")
	} else {
		b.WriteString("touch = [\n")
		for _, t := range touch {
			fmt.Fprintf(&b, "  %q,\n", scrubTOMLString(t))
		}
		b.WriteString("]\n")
	}
	b.WriteString("```")
	return b.String()
}

func scrubTOMLString(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
