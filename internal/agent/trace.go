package agent

// TraceSink receives per-step and per-run records from the
// orchestrator. Implementations must tolerate being called from a
// single goroutine per run.
type TraceSink interface {
	RecordStep(runID string, step int, decision Decision, accepted int, progress string) error
	RecordResult(runID string, result Result) error
}

// nopTrace discards everything. Used when tracing is disabled.
type nopTrace struct{}

func (nopTrace) RecordStep(string, int, Decision, int, string) error { return nil }
func (nopTrace) RecordResult(string, Result) error                   { return nil }
