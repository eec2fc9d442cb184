package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftSavedAfterDebounce(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	require.Eventually(t, func() bool {
		_, ok := env.drafts.stored("sess-test")
		return ok
	}, time.Second, 5*time.Millisecond)

	draft, _ := env.drafts.stored("sess-test")
	assert.Equal(t, 1, draft.Version)
	require.Len(t, draft.Uploads, 1)
	assert.Equal(t, "f1", draft.Uploads[0].ID)
}

func TestDraftRoundTripRestoresDurableState(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	addLockedFile(t, orch, "f2")
	prepareAll(t, orch)

	qty := 3
	require.NoError(t, orch.UpdateSettings("f1", SettingsPatch{Quantity: &qty}))
	orch.SetAddress(fullAddress())
	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)
	require.NoError(t, orch.SaveDraft(context.Background()))

	stored, ok := env.drafts.stored("sess-test")
	require.True(t, ok)

	fresh, _ := newTestOrchestrator(t)
	require.NoError(t, fresh.ResumeDraft(context.Background(), stored))

	view := fresh.Snapshot()
	require.Len(t, view.Files, 2)
	assert.Equal(t, 3, view.Files[0].Settings.Quantity)
	assert.True(t, view.Files[0].Locked)
	assert.True(t, view.Files[1].Locked)
	require.NotNil(t, view.Files[0].Metrics)
	assert.Equal(t, StatusSuccess, view.Files[0].Status.Status)
	assert.Equal(t, fullAddress(), view.Address)
	assert.Nil(t, view.Price, "a stored price is never trusted")
	assert.Nil(t, view.CurrentlyOrienting, "all files locked, nothing to orient")
}

func TestDraftNeverContainsPrice(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)
	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)
	require.NotNil(t, orch.Snapshot().Price)

	require.NoError(t, orch.SaveDraft(context.Background()))
	draft, ok := env.drafts.stored("sess-test")
	require.True(t, ok)

	fresh, _ := newTestOrchestrator(t)
	require.NoError(t, fresh.ResumeDraft(context.Background(), draft))
	assert.Nil(t, fresh.Snapshot().Price)
}

func TestResumeDropsMetricsForUnlockedFiles(t *testing.T) {
	t.Parallel()

	draft := Draft{
		Version: 1,
		Step:    StepConfigure,
		Uploads: []Upload{{ID: "f1", Filename: "a.stl"}, {ID: "f2", Filename: "b.stl"}},
		Settings: map[string]FileSettings{
			"f1": DefaultSettings("pla-standard"),
			"f2": DefaultSettings("pla-standard"),
		},
		Locked: map[string]bool{"f1": true},
		Metrics: map[string]FileMetrics{
			"f1": {Grams: 80, TimeSec: 3600},
			"f2": {Grams: 10, TimeSec: 600},
		},
	}

	orch, _ := newTestOrchestrator(t)
	require.NoError(t, orch.ResumeDraft(context.Background(), draft))

	view := orch.Snapshot()
	require.NotNil(t, view.Files[0].Metrics)
	assert.Nil(t, view.Files[1].Metrics, "metrics cannot exist without a lock")
	require.NotNil(t, view.CurrentlyOrienting)
	assert.Equal(t, "f2", *view.CurrentlyOrienting)
	// Configure requires every file sliced; the step walks back.
	assert.NotEqual(t, StepConfigure, view.Step)
}

func TestResumeRejectedWhenPipelineHasFiles(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	err := orch.ResumeDraft(context.Background(), Draft{
		Version: 1,
		Uploads: []Upload{{ID: "f9", Filename: "z.stl"}},
	})
	require.Error(t, err)
}

func TestPendingDraftOnlyAsksOnce(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.drafts.drafts["sess-test"] = Draft{
		Version: 1,
		Uploads: []Upload{{ID: "f1", Filename: "a.stl"}},
	}

	first, err := orch.PendingDraft(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := orch.PendingDraft(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second, "the resume prompt is a one-shot")
}

func TestDiscardDraftRemovesStoredCopy(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.drafts.drafts["sess-test"] = Draft{
		Version: 1,
		Uploads: []Upload{{ID: "f1", Filename: "a.stl"}},
	}

	require.NoError(t, orch.DiscardDraft(context.Background()))
	_, ok := env.drafts.stored("sess-test")
	assert.False(t, ok)
}

func TestRemovingLastFileClearsDraft(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))
	require.NoError(t, orch.SaveDraft(context.Background()))
	_, ok := env.drafts.stored("sess-test")
	require.True(t, ok)

	require.NoError(t, orch.RemoveUpload("f1"))
	require.Eventually(t, func() bool {
		_, still := env.drafts.stored("sess-test")
		return !still
	}, time.Second, 5*time.Millisecond)
}

func TestUntouchedOrchestratorNeverClobbersDraft(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.drafts.drafts["sess-test"] = Draft{
		Version: 1,
		Uploads: []Upload{{ID: "f1", Filename: "a.stl"}},
	}

	require.NoError(t, orch.SaveDraft(context.Background()))
	_, ok := env.drafts.stored("sess-test")
	assert.True(t, ok, "an idle flush must not delete a pending draft")
}
