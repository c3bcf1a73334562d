// Package lineage recovers the root task behind chains of auto-spawned
// follow-up tasks and audits the workgraph log for descendants that are
// still open. Everything here is pure string and slice processing; log
// access is the caller's concern.
package lineage

import (
	"strings"

	"github.com/dbmcco/redrift/internal/core/phase"
	"github.com/dbmcco/redrift/internal/models"
)

// maxStrips bounds prefix stripping so pathological ids (a prefix repeated
// into a cycle-looking string) still terminate.
const maxStrips = 20

// followupPrefixes are the id families redrift and its sibling tools use
// when spawning follow-up work: phase execution lanes, per-phase drift
// followups, the generic v2 followup, and therapydrift-generated tasks.
var followupPrefixes = buildPrefixes()

func buildPrefixes() []string {
	out := make([]string, 0, len(phase.Order)*2+2)
	for _, p := range phase.Order {
		out = append(out, "redrift-exec-"+p+"-")
	}
	for _, p := range phase.Order {
		out = append(out, "redrift-"+p+"-")
	}
	out = append(out, "redrift-v2-", "therapydrift-")
	return out
}

// Resolve strips known follow-up prefixes from the front of taskID until
// none match, returning the root task id and the number of strips (the
// lineage depth). Resolving an id that is already a root returns depth 0
// and the id unchanged, so Resolve is idempotent.
func Resolve(taskID string) (root string, depth int) {
	root = taskID
	for depth < maxStrips {
		stripped := false
		for _, prefix := range followupPrefixes {
			if rest, ok := strings.CutPrefix(root, prefix); ok && rest != "" {
				root = rest
				depth++
				stripped = true
				break
			}
		}
		if !stripped {
			return root, depth
		}
	}
	return root, depth
}

// HasFollowupPrefix reports whether taskID belongs to one of the known
// follow-up id families.
func HasFollowupPrefix(taskID string) bool {
	for _, prefix := range followupPrefixes {
		if strings.HasPrefix(taskID, prefix) {
			return true
		}
	}
	return false
}

// NormalizeStatus maps a raw store status into the fixed vocabulary.
// Unrecognized statuses fall back to open rather than failing, so a store
// with newer states still audits conservatively.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "done", "complete", "completed", "closed":
		return models.StatusDone
	case "abandoned", "cancelled", "canceled", "wont_do", "wontfix":
		return models.StatusAbandoned
	case "failed", "error":
		return models.StatusFailed
	case "blocked":
		return models.StatusBlocked
	case "in_progress", "in-progress", "active", "started", "doing":
		return models.StatusInProgress
	case "pending_review", "in_review", "review":
		return models.StatusPendingReview
	default:
		return models.StatusOpen
	}
}

// Followup is one unresolved descendant of a root task.
type Followup struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UnresolvedFollowups filters log records down to open descendants of
// rootID: task records, distinct from the originating task, carrying the
// root id, named by a follow-up prefix family, and not yet done or
// abandoned. The log is append-only, so the last record for a given id
// carries its current status.
func UnresolvedFollowups(records []models.TaskRecord, rootID, originID string) []Followup {
	latest := make(map[string]string)
	var order []string

	for _, rec := range records {
		if rec.Kind != models.RecordKindTask {
			continue
		}
		if rec.ID == "" || rec.ID == originID {
			continue
		}
		if !strings.Contains(rec.ID, rootID) {
			continue
		}
		if !HasFollowupPrefix(rec.ID) {
			continue
		}
		if _, seen := latest[rec.ID]; !seen {
			order = append(order, rec.ID)
		}
		latest[rec.ID] = NormalizeStatus(rec.Status)
	}

	var out []Followup
	for _, id := range order {
		status := latest[id]
		if status == models.StatusDone || status == models.StatusAbandoned {
			continue
		}
		out = append(out, Followup{ID: id, Status: status})
	}
	return out
}
