package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marknav/internal/cursor"
	"marknav/internal/document"
	"marknav/internal/logging"
)

const (
	// HardStepCeiling bounds MaxSteps regardless of configuration.
	HardStepCeiling = 128

	defaultMaxSteps     = 32
	defaultMaxEvidence  = 64
	defaultParseRetries = 2
)

// StopReason records why a run's step loop ended.
type StopReason string

const (
	StopDone           StopReason = "done"
	StopNotFound       StopReason = "not_found"
	StopCursorComplete StopReason = "cursor_complete"
	StopMaxSteps       StopReason = "max_steps"
	StopCanceled       StopReason = "canceled"
)

// PortionSource yields successive document portions. A cursor stream
// satisfies it directly.
type PortionSource interface {
	NextPortion() (cursor.Portion, error)
}

// Completer is the chat surface the orchestrator needs from an LLM
// client.
type Completer interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Config bounds one orchestration run.
type Config struct {
	MaxSteps     int
	MaxEvidence  int
	ParseRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	if c.MaxSteps > HardStepCeiling {
		c.MaxSteps = HardStepCeiling
	}
	if c.MaxEvidence <= 0 {
		c.MaxEvidence = defaultMaxEvidence
	}
	if c.ParseRetries < 0 {
		c.ParseRetries = defaultParseRetries
	}
	return c
}

// Result is the outcome of one run. Success implies Pointer names an
// evidence item that was actually served during the scan.
type Result struct {
	RunID      string         `json:"run_id"`
	Success    bool           `json:"success"`
	Pointer    string         `json:"pointer,omitempty"`
	Excerpt    string         `json:"excerpt,omitempty"`
	WhyThis    string         `json:"why_this,omitempty"`
	Summary    string         `json:"summary"`
	StopReason StopReason     `json:"stop_reason"`
	StepsUsed  int            `json:"steps_used"`
	Evidence   []EvidenceItem `json:"evidence"`
}

// Orchestrator runs bounded scan-and-answer loops against a reasoning
// model and a separate finalizer model.
type Orchestrator struct {
	reasoner  Completer
	finalizer Completer
	config    Config
	trace     TraceSink
}

// New creates an orchestrator. The finalizer may equal the reasoner;
// trace may be nil.
func New(reasoner, finalizer Completer, config Config, trace TraceSink) *Orchestrator {
	if finalizer == nil {
		finalizer = reasoner
	}
	if trace == nil {
		trace = nopTrace{}
	}
	return &Orchestrator{
		reasoner:  reasoner,
		finalizer: finalizer,
		config:    config.withDefaults(),
		trace:     trace,
	}
}

// Run scans portions from source until the model decides, the source
// drains, or the step ceiling is hit, then finalizes against the
// accumulated evidence. The document is never mutated.
func (o *Orchestrator) Run(ctx context.Context, task string, source PortionSource) (Result, error) {
	runID := uuid.New().String()
	evidence := newEvidenceSet(o.config.MaxEvidence)
	stepsUsed := 0
	stopReason := StopMaxSteps
	cursorComplete := false

	logging.Agent("Run %s started: %s", runID, logging.Truncate(task, 120))

	for stepsUsed < o.config.MaxSteps {
		if err := ctx.Err(); err != nil {
			logging.Agent("Run %s canceled after %d step(s)", runID, stepsUsed)
			return o.degraded(runID, evidence, stepsUsed, StopCanceled, "run canceled"), err
		}

		portion, done, err := nextNonEmptyPortion(source)
		if err != nil {
			return o.degraded(runID, evidence, stepsUsed, StopCursorComplete, "cursor failed"),
				fmt.Errorf("pulling portion: %w", err)
		}
		if done && len(portion.Items) == 0 {
			stopReason = StopCursorComplete
			cursorComplete = true
			break
		}
		if !portion.HasMore {
			cursorComplete = true
		}

		stepsUsed++
		first := stepsUsed == 1
		prompt := taskPrompt(task) + "\n\n" + snapshotPrompt(evidence) + "\n\n" +
			batchPrompt(portion.Items, first, portion.HasMore)

		resp, ok, err := o.stepWithRetries(ctx, prompt, runID, stepsUsed)
		if err != nil {
			return o.degraded(runID, evidence, stepsUsed, StopCursorComplete, "model unavailable"),
				err
		}
		if !ok {
			// Persistently malformed reply. Skip the step and keep scanning.
			logging.Agent("Run %s step %d skipped (unparseable response)", runID, stepsUsed)
			if cursorComplete {
				stopReason = StopCursorComplete
				break
			}
			continue
		}

		accepted := o.mergeEvidence(evidence, resp.NewEvidence, portion.Items)
		logging.AgentDebug("Run %s step %d: decision=%s accepted=%d/%d progress=%s",
			runID, stepsUsed, resp.Decision, accepted, len(resp.NewEvidence),
			logging.Truncate(resp.Progress, 80))
		if err := o.trace.RecordStep(runID, stepsUsed, resp.Decision, accepted, resp.Progress); err != nil {
			logging.AgentDebug("Run %s trace step failed: %v", runID, err)
		}

		if resp.Decision == DecisionDone {
			stopReason = StopDone
			break
		}
		if resp.Decision == DecisionNotFound {
			stopReason = StopNotFound
			break
		}
		if cursorComplete {
			stopReason = StopCursorComplete
			break
		}
	}

	result, err := o.finalize(ctx, runID, task, evidence, stepsUsed, stopReason, cursorComplete)
	if traceErr := o.trace.RecordResult(runID, result); traceErr != nil {
		logging.AgentDebug("Run %s trace result failed: %v", runID, traceErr)
	}
	return result, err
}

// nextNonEmptyPortion pulls until a portion carries items or the
// source drains. Filtered streams legitimately return empty portions
// that still have more behind them.
func nextNonEmptyPortion(source PortionSource) (cursor.Portion, bool, error) {
	for {
		portion, err := source.NextPortion()
		if err != nil {
			if errors.Is(err, cursor.ErrComplete) {
				return cursor.Portion{}, true, nil
			}
			return cursor.Portion{}, false, err
		}
		if len(portion.Items) > 0 {
			return portion, false, nil
		}
		if !portion.HasMore {
			return portion, true, nil
		}
	}
}

// stepWithRetries issues one reasoning call, re-issuing it when the
// reply carries no usable JSON object. Transport failures are
// terminal; the client already retried rate limits.
func (o *Orchestrator) stepWithRetries(ctx context.Context, prompt, runID string, step int) (stepResponse, bool, error) {
	attempts := o.config.ParseRetries + 1
	for i := 0; i < attempts; i++ {
		raw, err := o.reasoner.CompleteWithSystem(ctx, stepSystemPrompt, prompt)
		if err != nil {
			return stepResponse{}, false, fmt.Errorf("step %d: %w", step, err)
		}
		resp, perr := parseStepResponse(raw)
		if perr == nil {
			return resp, true, nil
		}
		logging.AgentDebug("Run %s step %d attempt %d unparseable: %v (%s)",
			runID, step, i+1, perr, logging.Truncate(raw, 200))
	}
	return stepResponse{}, false, nil
}

// mergeEvidence normalizes reported evidence against the batch that
// produced it. Pointers not present in the batch are dropped, empty
// excerpts are backfilled from the true item content.
func (o *Orchestrator) mergeEvidence(evidence *evidenceSet, reported []EvidenceItem, batch []document.Item) int {
	served := make(map[string]string, len(batch))
	for _, it := range batch {
		served[it.Pointer.Compact()] = it.Markdown
	}

	accepted := 0
	for _, item := range reported {
		markdown, ok := served[item.Pointer]
		if !ok {
			logging.AgentDebug("Dropping ungrounded evidence pointer %s", item.Pointer)
			continue
		}
		if item.Excerpt == "" {
			item.Excerpt = markdown
		}
		if evidence.add(item) {
			accepted++
		}
	}
	return accepted
}

// finalize asks the finalizer model for a grounded answer, degrading
// to a non-success result when grounding fails or evidence is empty.
func (o *Orchestrator) finalize(ctx context.Context, runID, task string, evidence *evidenceSet, stepsUsed int, stopReason StopReason, cursorComplete bool) (Result, error) {
	if evidence.len() == 0 {
		logging.Agent("Run %s finished without evidence (%s, %d steps)", runID, stopReason, stepsUsed)
		return o.degraded(runID, evidence, stepsUsed, stopReason, "no matching content found"), nil
	}
	if err := ctx.Err(); err != nil {
		return o.degraded(runID, evidence, stepsUsed, StopCanceled, "run canceled"), err
	}

	prompt := finalizerPrompt(task, evidence.all(), cursorComplete, stepsUsed)
	attempts := o.config.ParseRetries + 1
	var final finalResponse
	parsed := false
	for i := 0; i < attempts; i++ {
		raw, err := o.finalizer.CompleteWithSystem(ctx, finalSystemPrompt, prompt)
		if err != nil {
			return o.degraded(runID, evidence, stepsUsed, stopReason, "finalizer unavailable"),
				fmt.Errorf("finalizing: %w", err)
		}
		final, err = parseFinalResponse(raw)
		if err == nil {
			parsed = true
			break
		}
		logging.AgentDebug("Run %s finalizer attempt %d unparseable: %v", runID, i+1, err)
	}
	if !parsed {
		return o.degraded(runID, evidence, stepsUsed, stopReason, "finalizer response unusable"), nil
	}

	if final.Decision != DecisionSuccess {
		logging.Agent("Run %s finalizer declined: %s", runID, logging.Truncate(final.Summary, 120))
		result := o.degraded(runID, evidence, stepsUsed, stopReason, final.Summary)
		return result, nil
	}
	if !evidence.has(final.SemanticPointerFrom) {
		// The one rule the finalizer cannot break: it may only anchor
		// on evidence that was actually served.
		logging.Agent("Run %s finalizer cited foreign pointer %s, degrading",
			runID, final.SemanticPointerFrom)
		return o.degraded(runID, evidence, stepsUsed, stopReason, final.Summary), nil
	}

	logging.Agent("Run %s succeeded: %s after %d step(s)", runID, final.SemanticPointerFrom, stepsUsed)
	return Result{
		RunID:      runID,
		Success:    true,
		Pointer:    final.SemanticPointerFrom,
		Excerpt:    final.Excerpt,
		WhyThis:    final.WhyThis,
		Summary:    final.Summary,
		StopReason: stopReason,
		StepsUsed:  stepsUsed,
		Evidence:   evidence.all(),
	}, nil
}

func (o *Orchestrator) degraded(runID string, evidence *evidenceSet, stepsUsed int, stopReason StopReason, summary string) Result {
	return Result{
		RunID:      runID,
		Summary:    summary,
		StopReason: stopReason,
		StepsUsed:  stepsUsed,
		Evidence:   evidence.all(),
	}
}
