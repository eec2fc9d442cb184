package pipeline

import (
	"context"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

// SetCurrentlyOrienting selects which file the viewer is editing, or
// clears the slot with nil. The viewer hydrates its live buffer from the
// snapshot returned in the next Snapshot call.
func (o *Orchestrator) SetCurrentlyOrienting(id *string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id == nil {
		o.st.currentlyOrienting = nil
		return nil
	}
	if _, exists := o.findUploadLocked(*id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	target := *id
	o.st.currentlyOrienting = &target
	if _, ok := o.st.orientation[target]; !ok {
		o.st.orientation[target] = DefaultOrientation()
	}
	return nil
}

// ApplyOrientation mirrors a live-buffer write into the current file's
// stored snapshot. If the file was locked, the lock is revoked and the
// metrics/price derived from the old pose are cleared: editing a locked
// orientation forces re-preparation. Every buffer write revokes,
// cosmetic fields included.
func (o *Orchestrator) ApplyOrientation(snapshot OrientationSnapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.st.currentlyOrienting == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no file is being oriented")
	}
	id := *o.st.currentlyOrienting

	o.st.orientation[id] = snapshot
	o.st.orientationRev[id]++

	if o.st.locked[id] {
		o.st.locked[id] = false
		o.clearMetricsLocked(id)
	}

	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

// LockOrientation persists the current file's snapshot and marks it
// locked, then advances the orienting slot to the next unlocked file.
// When none remain the pipeline moves on to configure.
func (o *Orchestrator) LockOrientation(ctx context.Context) error {
	o.mu.Lock()
	if o.st.currentlyOrienting == nil {
		o.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no file is being oriented")
	}
	id := *o.st.currentlyOrienting
	snapshot, ok := o.st.orientation[id]
	if !ok {
		snapshot = DefaultOrientation()
	}
	if snapshot.OutOfBounds {
		o.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodePrecondition, "model does not fit the build volume").
			WithDetails(map[string]any{"file_id": id})
	}
	if snapshot.InteractionLocked {
		o.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodePrecondition, "model could not be rendered").
			WithDetails(map[string]any{"file_id": id})
	}
	revAtCall := o.st.orientationRev[id]
	o.mu.Unlock()

	persisted, err := o.deps.Orientation.Persist(ctx, OrientationPersistRequest{
		FileID:   id,
		Snapshot: snapshot,
	})
	if err != nil {
		// Recoverable: lock state untouched, the caller may retry.
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist orientation")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file removed while locking")
	}
	if o.st.orientationRev[id] != revAtCall {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "orientation changed while locking")
	}

	o.st.orientation[id] = persisted
	o.st.locked[id] = true

	if next := o.firstUnlockedLocked(); next != nil {
		o.st.currentlyOrienting = next
	} else {
		o.st.currentlyOrienting = nil
		if o.isStepUnlockedLocked(StepConfigure) {
			o.st.step = StepConfigure
		}
	}

	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

// firstUnlockedLocked returns the id of the first upload without a lock,
// in upload order, or nil.
func (o *Orchestrator) firstUnlockedLocked() *string {
	for _, u := range o.st.uploads {
		if !o.st.locked[u.ID] {
			id := u.ID
			return &id
		}
	}
	return nil
}
