package pipeline

import (
	"fmt"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

// DefaultSettings are applied to every fresh upload. The material id is
// substituted with the catalog default at wiring time.
func DefaultSettings(materialID string) FileSettings {
	return FileSettings{
		MaterialID:      materialID,
		LayerHeight:     0.2,
		Infill:          20,
		Quantity:        1,
		SupportsEnabled: false,
	}
}

// AddUpload registers a transferred file with default settings. The
// upload list changed, so any computed price is dropped.
func (o *Orchestrator) AddUpload(u Upload, defaults FileSettings) error {
	if u.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload id required")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(u.ID); exists {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("file %s already registered", u.ID))
	}

	o.st.uploads = append(o.st.uploads, u)
	o.st.settings[u.ID] = defaults
	o.st.statuses[u.ID] = FileState{Status: StatusIdle}
	o.invalidatePriceLocked()
	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

// RemoveUpload drops a file and cascades over every piece of dependent
// state: settings, metrics, orientation, lock, status, accepted-fallback
// membership, and the computed price.
func (o *Orchestrator) RemoveUpload(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}

	kept := o.st.uploads[:0]
	for _, u := range o.st.uploads {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	o.st.uploads = kept

	delete(o.st.settings, id)
	delete(o.st.slicedSettings, id)
	delete(o.st.orientation, id)
	delete(o.st.locked, id)
	delete(o.st.orientationRev, id)
	delete(o.st.metrics, id)
	delete(o.st.statuses, id)
	delete(o.st.acceptedFallbacks, id)

	if o.st.currentlyOrienting != nil && *o.st.currentlyOrienting == id {
		o.st.currentlyOrienting = o.firstUnlockedLocked()
	}

	o.invalidatePriceLocked()
	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

// UpdateSettings applies a partial settings change. Price always becomes
// stale; metrics survive only when the fields the file was sliced
// against are untouched (a quantity change does not need a re-slice).
func (o *Orchestrator) UpdateSettings(id string, patch SettingsPatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}

	current := o.st.settings[id]
	updated := current
	if patch.MaterialID != nil {
		updated.MaterialID = *patch.MaterialID
	}
	if patch.LayerHeight != nil {
		updated.LayerHeight = *patch.LayerHeight
	}
	if patch.Infill != nil {
		updated.Infill = *patch.Infill
	}
	if patch.Quantity != nil {
		updated.Quantity = *patch.Quantity
	}
	if patch.SupportsEnabled != nil {
		updated.SupportsEnabled = *patch.SupportsEnabled
	}

	if err := validateSettings(updated); err != nil {
		return err
	}
	if updated == current {
		return nil
	}

	o.st.settings[id] = updated

	if sliced, ok := o.st.slicedSettings[id]; ok && !sameSliceInputs(sliced, updated) {
		o.clearMetricsLocked(id)
	}
	o.invalidatePriceLocked()
	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

// ResetSettings restores a file to the given baseline and clears its
// metrics: a reset file counts as never sliced.
func (o *Orchestrator) ResetSettings(id string, baseline FileSettings) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}

	o.st.settings[id] = baseline
	o.clearMetricsLocked(id)
	o.bumpRevLocked()
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	return nil
}

func validateSettings(s FileSettings) error {
	if s.MaterialID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "material is required")
	}
	if s.LayerHeight <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "layer height must be positive")
	}
	if s.Infill < 0 || s.Infill > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "infill must be between 0 and 100")
	}
	if s.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return nil
}

// sameSliceInputs compares the fields the slicer consumes; quantity is
// pricing-only.
func sameSliceInputs(a, b FileSettings) bool {
	return a.MaterialID == b.MaterialID &&
		a.LayerHeight == b.LayerHeight &&
		a.Infill == b.Infill &&
		a.SupportsEnabled == b.SupportsEnabled
}
