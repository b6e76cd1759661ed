// Package agent drives a bounded cursor scan through an external
// reasoning model, accumulating grounded evidence and producing a
// final answer that can only point at content the model actually saw.
package agent

// Decision is the model's verdict for one step or for finalization.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionDone     Decision = "done"
	DecisionNotFound Decision = "not_found"
	DecisionSuccess  Decision = "success"
)

// EvidenceItem is one candidate fact reported by the model, keyed by
// the compact pointer of the item it came from.
type EvidenceItem struct {
	Pointer string `json:"pointer"`
	Excerpt string `json:"excerpt"`
	Reason  string `json:"reason,omitempty"`
}

// stepResponse is the JSON object expected inside each step reply.
type stepResponse struct {
	Decision    Decision       `json:"decision"`
	NewEvidence []EvidenceItem `json:"new_evidence"`
	Progress    string         `json:"progress,omitempty"`
}

// finalResponse is the JSON object expected from the finalizer.
type finalResponse struct {
	Decision            Decision `json:"decision"`
	SemanticPointerFrom string   `json:"semantic_pointer_from"`
	Excerpt             string   `json:"excerpt"`
	WhyThis             string   `json:"why_this"`
	Summary             string   `json:"summary"`
}

func (d Decision) validStep() bool {
	switch d {
	case DecisionContinue, DecisionDone, DecisionNotFound:
		return true
	}
	return false
}
