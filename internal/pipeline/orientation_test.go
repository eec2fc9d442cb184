package pipeline

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOrientationRequiresCurrentFile(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	err := orch.ApplyOrientation(DefaultOrientation())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestEditingLockedFileRevokesLockAndClearsMetrics(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	_, err := orch.ComputePrice(context.Background())
	require.NoError(t, err)

	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))
	snap := DefaultOrientation()
	snap.Quaternion = [4]float64{0, 0.7071, 0, 0.7071}
	require.NoError(t, orch.ApplyOrientation(snap))

	view := orch.Snapshot()
	fv := view.Files[0]
	assert.False(t, fv.Locked)
	assert.Nil(t, fv.Metrics, "metrics cannot outlive the lock")
	assert.Nil(t, view.Price, "price cannot outlive its inputs")
	assert.Equal(t, StatusIdle, fv.Status.Status)
}

func TestCosmeticOrientationWriteAlsoRevokes(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	addLockedFile(t, orch, "f1")
	prepareAll(t, orch)

	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))

	snap := orch.Snapshot().Files[0].Orientation
	require.NotNil(t, snap)
	visible := true
	updated := *snap
	updated.HelpersVisible = &visible
	require.NoError(t, orch.ApplyOrientation(updated))

	fv := orch.Snapshot().Files[0]
	assert.False(t, fv.Locked)
	assert.Nil(t, fv.Metrics)
}

func TestLockRejectsGuardFlags(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))
	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))

	snap := DefaultOrientation()
	snap.OutOfBounds = true
	require.NoError(t, orch.ApplyOrientation(snap))

	err := orch.LockOrientation(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.False(t, orch.Snapshot().Files[0].Locked)
}

func TestLockPersistFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	env.orient.fn = func(OrientationPersistRequest) (OrientationSnapshot, error) {
		return OrientationSnapshot{}, errors.New("storage down")
	}

	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))
	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))

	err := orch.LockOrientation(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	view := orch.Snapshot()
	assert.False(t, view.Files[0].Locked)
	require.NotNil(t, view.CurrentlyOrienting)
	assert.Equal(t, "f1", *view.CurrentlyOrienting)
}

func TestLockDiscardedWhenOrientationChangedMidFlight(t *testing.T) {
	t.Parallel()

	orch, env := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))
	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))

	// Mutate the orientation while the persist call is in flight.
	env.orient.fn = func(req OrientationPersistRequest) (OrientationSnapshot, error) {
		snap := DefaultOrientation()
		snap.Quaternion = [4]float64{0.5, 0.5, 0.5, 0.5}
		require.NoError(t, orch.ApplyOrientation(snap))
		return req.Snapshot, nil
	}

	err := orch.LockOrientation(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.False(t, orch.Snapshot().Files[0].Locked)
}

func TestSetCurrentlyOrientingHydratesDefaultPose(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(t)
	require.NoError(t, orch.AddUpload(Upload{ID: "f1", Filename: "a.stl"}, DefaultSettings("pla-standard")))

	id := "f1"
	require.NoError(t, orch.SetCurrentlyOrienting(&id))

	fv := orch.Snapshot().Files[0]
	require.NotNil(t, fv.Orientation)
	assert.Equal(t, DefaultOrientation().Quaternion, fv.Orientation.Quaternion)

	require.NoError(t, orch.SetCurrentlyOrienting(nil))
	assert.Nil(t, orch.Snapshot().CurrentlyOrienting)
}
