package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marknav/internal/agent"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	rs, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return rs
}

func sampleResult(runID string, success bool) agent.Result {
	return agent.Result{
		RunID:      runID,
		Success:    success,
		Pointer:    "2:1.p1",
		Summary:    "found the answer",
		StopReason: agent.StopDone,
		StepsUsed:  3,
		Evidence: []agent.EvidenceItem{
			{Pointer: "2:1.p1", Excerpt: "alpha"},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	rs := openTestStore(t)

	require.NoError(t, rs.RecordResult("run-1", sampleResult("run-1", true)))

	rec, err := rs.GetRun("run-1")
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, "2:1.p1", rec.Pointer)
	assert.Equal(t, "done", rec.StopReason)
	assert.Equal(t, 3, rec.StepsUsed)
	assert.Contains(t, rec.Evidence, `"2:1.p1"`)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestGetRunMissing(t *testing.T) {
	rs := openTestStore(t)

	_, err := rs.GetRun("nope")
	assert.Error(t, err)
}

func TestStepHistoryInOrder(t *testing.T) {
	rs := openTestStore(t)

	require.NoError(t, rs.RecordStep("run-1", 1, agent.DecisionContinue, 2, "scanning intro"))
	require.NoError(t, rs.RecordStep("run-1", 2, agent.DecisionDone, 1, "found it"))
	require.NoError(t, rs.RecordStep("run-2", 1, agent.DecisionNotFound, 0, ""))

	steps, err := rs.Steps("run-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Step)
	assert.Equal(t, "continue", steps[0].Decision)
	assert.Equal(t, 2, steps[1].Step)
	assert.Equal(t, "done", steps[1].Decision)
	assert.Equal(t, 1, steps[1].Accepted)
}

func TestRecentRunsAndStats(t *testing.T) {
	rs := openTestStore(t)

	require.NoError(t, rs.RecordResult("run-1", sampleResult("run-1", true)))
	require.NoError(t, rs.RecordResult("run-2", sampleResult("run-2", false)))

	runs, err := rs.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	total, succeeded, err := rs.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, succeeded)
}

func TestCleanupKeepsRecentRuns(t *testing.T) {
	rs := openTestStore(t)

	require.NoError(t, rs.RecordResult("run-1", sampleResult("run-1", true)))

	deleted, err := rs.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = rs.GetRun("run-1")
	assert.NoError(t, err)
}

func TestRecordIsIdempotentPerRunID(t *testing.T) {
	rs := openTestStore(t)

	require.NoError(t, rs.RecordResult("run-1", sampleResult("run-1", false)))
	require.NoError(t, rs.RecordResult("run-1", sampleResult("run-1", true)))

	total, succeeded, err := rs.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, succeeded)
}
