package pipeline

import (
	"context"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

const draftVersion = 1

// scheduleDraftSaveLocked resets the save debounce. Rapid mutation
// bursts collapse into a single write once the session goes quiet.
func (o *Orchestrator) scheduleDraftSaveLocked() {
	if o.deps.Drafts == nil || o.closed {
		return
	}
	if o.saveTimer != nil {
		o.saveTimer.Stop()
	}
	o.saveTimer = time.AfterFunc(o.deps.SaveDebounce, o.saveDraftNow)
}

// saveDraftNow snapshots state under the lock and writes it out. A
// failed save is logged and dropped; the next mutation schedules a
// fresh attempt.
func (o *Orchestrator) saveDraftNow() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	empty := len(o.st.uploads) == 0
	var draft Draft
	if !empty {
		draft = o.snapshotDraftLocked()
	}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundCallTimeout)
	defer cancel()
	if empty {
		// The last file was removed; the stored draft is obsolete.
		if err := o.deps.Drafts.Clear(ctx, o.sessionID); err != nil {
			o.logError(ctx, "draft clear failed", err)
		}
		return
	}
	if err := o.deps.Drafts.Save(ctx, o.sessionID, draft); err != nil {
		o.logError(ctx, "draft save failed", err)
	}
}

// SaveDraft writes the current state immediately, bypassing the
// debounce. Used on explicit client flush (page unload).
func (o *Orchestrator) SaveDraft(ctx context.Context) error {
	if o.deps.Drafts == nil {
		return nil
	}
	o.mu.Lock()
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	if len(o.st.uploads) == 0 {
		// A pristine orchestrator must not clobber a stored draft the
		// user has not looked at yet.
		untouched := o.st.rev == 0
		o.mu.Unlock()
		if untouched {
			return nil
		}
		return o.deps.Drafts.Clear(ctx, o.sessionID)
	}
	draft := o.snapshotDraftLocked()
	o.mu.Unlock()

	if err := o.deps.Drafts.Save(ctx, o.sessionID, draft); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}

// snapshotDraftLocked copies the durable subset of state. Prices,
// fallback acceptances and transient statuses are deliberately absent:
// they must be re-earned after a resume.
func (o *Orchestrator) snapshotDraftLocked() Draft {
	draft := Draft{
		Version:     draftVersion,
		SavedAt:     time.Now().UTC(),
		Step:        o.st.step,
		Uploads:     append([]Upload(nil), o.st.uploads...),
		Settings:    make(map[string]FileSettings, len(o.st.settings)),
		Orientation: make(map[string]OrientationSnapshot, len(o.st.orientation)),
		Locked:      make(map[string]bool, len(o.st.locked)),
		Address:     o.st.address,
		Metrics:     make(map[string]FileMetrics, len(o.st.metrics)),
	}
	for id, s := range o.st.settings {
		draft.Settings[id] = s
	}
	for id, snap := range o.st.orientation {
		draft.Orientation[id] = snap
	}
	for id, locked := range o.st.locked {
		if locked {
			draft.Locked[id] = true
		}
	}
	for id, m := range o.st.metrics {
		draft.Metrics[id] = m
	}
	return draft
}

// PendingDraft reports whether a resumable draft exists for this
// session. The check runs once per orchestrator lifetime: after the
// user decides, the question never comes back.
func (o *Orchestrator) PendingDraft(ctx context.Context) (*Draft, error) {
	if o.deps.Drafts == nil {
		return nil, nil
	}
	o.mu.Lock()
	if o.st.draftChecked || len(o.st.uploads) > 0 {
		o.mu.Unlock()
		return nil, nil
	}
	o.st.draftChecked = true
	o.mu.Unlock()

	draft, err := o.deps.Drafts.Load(ctx, o.sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if draft == nil || len(draft.Uploads) == 0 {
		return nil, nil
	}
	return draft, nil
}

// ResumeDraft rehydrates the pipeline from a saved draft. Derived state
// is rebuilt rather than trusted: statuses come from the saved metrics,
// the orienting slot points at the first unlocked file, and the price
// starts nil so the user re-quotes against current rates.
func (o *Orchestrator) ResumeDraft(ctx context.Context, draft Draft) error {
	if len(draft.Uploads) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "draft has no files")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.st.uploads) > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pipeline already has files")
	}

	o.st.uploads = append([]Upload(nil), draft.Uploads...)
	o.st.settings = map[string]FileSettings{}
	o.st.slicedSettings = map[string]FileSettings{}
	o.st.orientation = map[string]OrientationSnapshot{}
	o.st.locked = map[string]bool{}
	o.st.orientationRev = map[string]uint64{}
	o.st.metrics = map[string]FileMetrics{}
	o.st.statuses = map[string]FileState{}
	o.st.acceptedFallbacks = map[string]struct{}{}
	o.st.address = draft.Address
	o.st.price = nil
	o.st.draftChecked = true

	for _, u := range o.st.uploads {
		id := u.ID
		if s, ok := draft.Settings[id]; ok {
			o.st.settings[id] = s
		} else {
			o.st.settings[id] = DefaultSettings("")
		}
		if snap, ok := draft.Orientation[id]; ok {
			o.st.orientation[id] = snap
		}
		locked := draft.Locked[id]
		o.st.locked[id] = locked

		m, hasMetrics := draft.Metrics[id]
		if hasMetrics && locked {
			o.st.metrics[id] = m
			o.st.slicedSettings[id] = o.st.settings[id]
			if m.Fallback {
				o.st.statuses[id] = FileState{Status: StatusFallback, Message: m.Message}
			} else {
				o.st.statuses[id] = FileState{Status: StatusSuccess}
			}
		} else {
			o.st.statuses[id] = FileState{Status: StatusIdle}
		}
	}

	o.st.currentlyOrienting = o.firstUnlockedLocked()

	o.st.step = draft.Step
	if !ValidStep(o.st.step) {
		o.st.step = StepUpload
	}
	o.reconcileStepLocked()
	o.bumpRevLocked()
	return nil
}

// ResumeSavedDraft loads the stored draft and rehydrates from it.
func (o *Orchestrator) ResumeSavedDraft(ctx context.Context) error {
	if o.deps.Drafts == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no draft to resume")
	}
	draft, err := o.deps.Drafts.Load(ctx, o.sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if draft == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no draft to resume")
	}
	return o.ResumeDraft(ctx, *draft)
}

// DiscardDraft deletes the saved draft without touching live state.
func (o *Orchestrator) DiscardDraft(ctx context.Context) error {
	o.mu.Lock()
	o.st.draftChecked = true
	o.mu.Unlock()

	if o.deps.Drafts == nil {
		return nil
	}
	if err := o.deps.Drafts.Clear(ctx, o.sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard draft")
	}
	return nil
}

// clearDraft best-effort removes the saved draft after a successful
// checkout; the order already exists, so a failure only risks a stale
// resume prompt.
func (o *Orchestrator) clearDraft(ctx context.Context) {
	if o.deps.Drafts == nil {
		return
	}
	o.mu.Lock()
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	o.mu.Unlock()
	if err := o.deps.Drafts.Clear(ctx, o.sessionID); err != nil {
		o.logError(ctx, "draft clear failed", err)
	}
}
