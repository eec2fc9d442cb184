package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistryDeps(drafts DraftStore) Deps {
	return Deps{
		Slicer:          &stubSlicer{},
		Pricer:          &stubPricer{},
		Checkout:        &stubCheckout{},
		Orientation:     &stubOrientation{},
		Wallet:          &stubWallet{},
		Materials:       &stubMaterials{},
		Drafts:          drafts,
		SaveDebounce:    time.Millisecond,
		RepriceDebounce: time.Millisecond,
	}
}

func TestRegistryReturnsSameOrchestratorPerSession(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testRegistryDeps(newStubDrafts()), time.Hour, nil)
	require.NoError(t, err)
	defer reg.Close(context.Background())

	a, err := reg.Get("sess-a")
	require.NoError(t, err)
	b, err := reg.Get("sess-a")
	require.NoError(t, err)
	other, err := reg.Get("sess-b")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, reg.ActiveSessions())
}

func TestRegistryEvictsIdleSessionsAndFlushesDrafts(t *testing.T) {
	t.Parallel()

	drafts := newStubDrafts()
	reg, err := NewRegistry(testRegistryDeps(drafts), 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer reg.Close(context.Background())

	orch, err := reg.Get("sess-idle")
	require.NoError(t, err)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	require.Eventually(t, func() bool {
		return reg.ActiveSessions() == 0
	}, time.Second, 5*time.Millisecond)

	draft, ok := drafts.stored("sess-idle")
	require.True(t, ok, "eviction flushes the draft")
	assert.Len(t, draft.Uploads, 1)
}

func TestRegistryCloseFlushesAllSessions(t *testing.T) {
	t.Parallel()

	drafts := newStubDrafts()
	reg, err := NewRegistry(testRegistryDeps(drafts), time.Hour, nil)
	require.NoError(t, err)

	orch, err := reg.Get("sess-x")
	require.NoError(t, err)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	reg.Close(context.Background())

	_, ok := drafts.stored("sess-x")
	assert.True(t, ok)
	assert.Equal(t, 0, reg.ActiveSessions())
}
