package agent

import (
	"context"
	"testing"

	"go.uber.org/goleak"

	"marknav/internal/cursor"
	"marknav/internal/document"
	"marknav/internal/llm"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (a transitive dependency of google.golang.org/genai)
	// starts a worker goroutine in its package init that never exits.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testStream(markdown string, maxElements int) *cursor.Stream {
	items := document.Load(markdown, "test-doc").Items()
	return cursor.NewStream(items, cursor.Start{}, cursor.Forward,
		cursor.Params{MaxElements: maxElements, MaxBytes: 1 << 20, IncludeContent: true}, nil)
}

const smallDoc = "# Title\n\nalpha\n\nbeta"

// Pointer compacts for smallDoc: 1:1, 2:1.p1, 3:1.p2.

func TestRunSucceedsWithGroundedAnswer(t *testing.T) {
	client := llm.NewScriptedClient(
		`{"decision":"done","new_evidence":[{"pointer":"2:1.p1","excerpt":"alpha","reason":"matches"}]}`,
		`{"decision":"success","semantic_pointer_from":"2:1.p1","excerpt":"alpha","why_this":"direct","summary":"Answer is alpha."}`,
	)
	orch := New(client, client, Config{}, nil)

	result, err := orch.Run(context.Background(), "find alpha", testStream(smallDoc, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("result not successful: %+v", result)
	}
	if result.Pointer != "2:1.p1" {
		t.Errorf("pointer = %q, want 2:1.p1", result.Pointer)
	}
	if result.StopReason != StopDone || result.StepsUsed != 1 {
		t.Errorf("stop = %s after %d steps", result.StopReason, result.StepsUsed)
	}
	if len(result.Evidence) != 1 {
		t.Errorf("evidence = %+v", result.Evidence)
	}
}

func TestRunDropsHallucinatedPointers(t *testing.T) {
	client := llm.NewScriptedClient(
		`{"decision":"done","new_evidence":[{"pointer":"99:9.p9","excerpt":"made up"},{"pointer":"3:1.p2","excerpt":"beta"}]}`,
		`{"decision":"success","semantic_pointer_from":"3:1.p2","excerpt":"beta","why_this":"real","summary":"Answer is beta."}`,
	)
	orch := New(client, client, Config{}, nil)

	result, err := orch.Run(context.Background(), "find beta", testStream(smallDoc, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Evidence) != 1 || result.Evidence[0].Pointer != "3:1.p2" {
		t.Errorf("evidence = %+v, want only the grounded item", result.Evidence)
	}
	if !result.Success {
		t.Error("grounded answer rejected")
	}
}

func TestRunBackfillsEmptyExcerpts(t *testing.T) {
	client := llm.NewScriptedClient(
		`{"decision":"done","new_evidence":[{"pointer":"2:1.p1","excerpt":""}]}`,
		`{"decision":"not_found","summary":"inconclusive"}`,
	)
	orch := New(client, client, Config{}, nil)

	result, err := orch.Run(context.Background(), "task", testStream(smallDoc, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Evidence) != 1 || result.Evidence[0].Excerpt != "alpha" {
		t.Errorf("evidence = %+v, want excerpt backfilled with item markdown", result.Evidence)
	}
}

func TestRunDegradesOnForeignFinalizerPointer(t *testing.T) {
	client := llm.NewScriptedClient(
		`{"decision":"done","new_evidence":[{"pointer":"2:1.p1","excerpt":"alpha"}]}`,
		`{"decision":"success","semantic_pointer_from":"42:7.p7","excerpt":"x","why_this":"y","summary":"Still a summary."}`,
	)
	orch := New(client, client, Config{}, nil)

	result, err := orch.Run(context.Background(), "task", testStream(smallDoc, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Success {
		t.Error("finalizer pointer outside the evidence set must not succeed")
	}
	if result.Pointer != "" {
		t.Errorf("degraded result carries pointer %q", result.Pointer)
	}
	if result.Summary != "Still a summary." {
		t.Errorf("summary = %q, want the finalizer's best summary", result.Summary)
	}
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	client := llm.NewScriptedClient(
		`{"decision":"continue","new_evidence":[]}`,
		`{"decision":"continue","new_evidence":[]}`,
	)
	orch := New(client, client, Config{MaxSteps: 2}, nil)

	result, err := orch.Run(context.Background(), "task", testStream(smallDoc, 1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Success {
		t.Error("run without evidence succeeded")
	}
	if result.StopReason != StopMaxSteps || result.StepsUsed != 2 {
		t.Errorf("stop = %s after %d steps, want max_steps after 2", result.StopReason, result.StepsUsed)
	}
	if calls := len(client.Calls()); calls != 2 {
		t.Errorf("made %d model calls, want 2 (no finalizer without evidence)", calls)
	}
}

func TestRunRetriesThenSkipsMalformedStep(t *testing.T) {
	client := llm.NewScriptedClient(
		"total garbage",
		"still garbage",
		"garbage forever",
	)
	orch := New(client, client, Config{ParseRetries: 2}, nil)

	result, err := orch.Run(context.Background(), "task", testStream(smallDoc, 10))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Success {
		t.Error("run with only malformed replies succeeded")
	}
	if result.StopReason != StopCursorComplete {
		t.Errorf("stop = %s, want cursor_complete", result.StopReason)
	}
	if calls := len(client.Calls()); calls != 3 {
		t.Errorf("made %d model calls, want 3 parse attempts", calls)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llm.NewScriptedClient(`{"decision":"done","new_evidence":[]}`)
	orch := New(client, client, Config{}, nil)

	result, err := orch.Run(ctx, "task", testStream(smallDoc, 10))
	if err == nil {
		t.Fatal("canceled run returned no error")
	}
	if result.StopReason != StopCanceled {
		t.Errorf("stop = %s, want canceled", result.StopReason)
	}
	if len(client.Calls()) != 0 {
		t.Error("model called after cancellation")
	}
}

func TestRunClampsStepCeiling(t *testing.T) {
	cfg := Config{MaxSteps: 10_000}.withDefaults()
	if cfg.MaxSteps != HardStepCeiling {
		t.Errorf("MaxSteps = %d, want clamped to %d", cfg.MaxSteps, HardStepCeiling)
	}
}

func TestEvidenceSetDedupAndCap(t *testing.T) {
	set := newEvidenceSet(2)

	if !set.add(EvidenceItem{Pointer: "1:1"}) {
		t.Error("first add refused")
	}
	if set.add(EvidenceItem{Pointer: "1:1", Excerpt: "dup"}) {
		t.Error("duplicate pointer accepted")
	}
	if !set.add(EvidenceItem{Pointer: "2:1.p1"}) {
		t.Error("second distinct add refused")
	}
	if set.add(EvidenceItem{Pointer: "3:1.p2"}) {
		t.Error("add past the cap accepted")
	}

	if set.len() != 2 {
		t.Errorf("len = %d, want 2", set.len())
	}
	recent := set.recentPointers(1)
	if len(recent) != 1 || recent[0] != "2:1.p1" {
		t.Errorf("recentPointers = %v", recent)
	}
}
