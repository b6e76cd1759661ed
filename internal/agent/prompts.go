package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"marknav/internal/document"
)

const stepSystemPrompt = `You are scanning a Markdown document in bounded batches. You never see
the whole document at once. Each batch lists items with a pointer, a
type, and markdown content.

Respond with exactly one JSON object:
{
  "decision": "continue" | "done" | "not_found",
  "new_evidence": [{"pointer": "<id>:<label>", "excerpt": "...", "reason": "..."}],
  "progress": "one line of scan notes"
}

Rules:
- Only cite pointers that appear in the current batch.
- "done" means you have enough evidence to answer the task.
- "not_found" means the remaining document cannot contain the answer.
- Otherwise answer "continue" to request the next batch.`

const finalSystemPrompt = `You are answering a task about a Markdown document using only the
evidence items collected during a scan. Pick the single best evidence
item as your anchor.

Respond with exactly one JSON object:
{
  "decision": "success" | "not_found",
  "semantic_pointer_from": "<pointer of the anchoring evidence item>",
  "excerpt": "the supporting text",
  "why_this": "why this item answers the task",
  "summary": "one paragraph answer"
}

semantic_pointer_from must be copied verbatim from an evidence item. If
no evidence answers the task, use decision "not_found" and summarize
what was seen instead.`

// snapshotPrompt gives the model its own bookkeeping: how much evidence
// it already banked and the most recent pointers.
func snapshotPrompt(evidence *evidenceSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evidence so far: %d item(s).", evidence.len())
	if recent := evidence.recentPointers(5); len(recent) > 0 {
		fmt.Fprintf(&b, " Most recent pointers: %s.", strings.Join(recent, ", "))
	}
	return b.String()
}

// batchPrompt serializes one served portion.
func batchPrompt(items []document.Item, first, hasMore bool) string {
	var b strings.Builder
	switch {
	case first && !hasMore:
		b.WriteString("Batch 1 (first and last batch):\n")
	case first:
		b.WriteString("Batch 1 (first batch, more follow):\n")
	case !hasMore:
		b.WriteString("Final batch:\n")
	default:
		b.WriteString("Next batch (more follow):\n")
	}
	for _, it := range items {
		fmt.Fprintf(&b, "[%s] (%s) %s\n", it.Pointer.Compact(), it.Type, it.Markdown)
	}
	return b.String()
}

// taskPrompt frames the user task for a step call.
func taskPrompt(task string) string {
	return fmt.Sprintf("Task: %s", task)
}

// finalizerPrompt serializes the accumulated evidence for the
// finalizer call.
func finalizerPrompt(task string, evidence []EvidenceItem, cursorComplete bool, stepsUsed int) string {
	serialized, _ := json.MarshalIndent(evidence, "", "  ")
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	fmt.Fprintf(&b, "Scan used %d step(s); document fully scanned: %t.\n\n", stepsUsed, cursorComplete)
	fmt.Fprintf(&b, "Evidence:\n%s\n", serialized)
	return b.String()
}
