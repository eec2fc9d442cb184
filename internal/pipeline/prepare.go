package pipeline

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"go.uber.org/multierr"
)

// sliceOutcome tags the result of preparing one file.
type sliceOutcome int

const (
	sliceSuccess sliceOutcome = iota
	sliceFallback
	sliceFailure
)

type sliceAttempt struct {
	outcome sliceOutcome
	metrics FileMetrics
	message string

	// supportsRetried marks a fallback produced by the supports-disabled
	// retry, as opposed to one the service reported on the first attempt.
	supportsRetried bool
}

// PrepareReport summarizes a preparation batch. Per-file failures never
// abort the loop; they are aggregated here and surfaced once.
type PrepareReport struct {
	SupportsWarning bool     `json:"supports_warning"`
	FailedFiles     []string `json:"failed_files,omitempty"`
	Err             error    `json:"-"`
}

// PrepareFiles slices every upload sequentially, in upload order, with
// at most two attempts per file: the configured settings, then a single
// retry with supports forced off (only when supports were enabled). A
// re-run starts from scratch: accepted fallbacks and any computed price
// are cleared first.
func (o *Orchestrator) PrepareFiles(ctx context.Context) (PrepareReport, error) {
	o.mu.Lock()
	if o.st.preparing {
		o.mu.Unlock()
		return PrepareReport{}, pkgerrors.New(pkgerrors.CodeConflict, "preparation already running")
	}
	if len(o.st.uploads) == 0 {
		o.mu.Unlock()
		return PrepareReport{}, pkgerrors.New(pkgerrors.CodePrecondition, "no files uploaded")
	}
	for _, u := range o.st.uploads {
		if !o.st.locked[u.ID] {
			o.mu.Unlock()
			return PrepareReport{}, pkgerrors.New(pkgerrors.CodePrecondition,
				"lock orientation for every file before preparing").
				WithDetails(map[string]any{"file_id": u.ID})
		}
	}

	o.st.preparing = true
	o.st.supportsWarning = false
	o.st.acceptedFallbacks = map[string]struct{}{}
	o.invalidatePriceLocked()
	o.bumpRevLocked()

	order := append([]Upload(nil), o.st.uploads...)
	settings := make(map[string]FileSettings, len(order))
	for _, u := range order {
		settings[u.ID] = o.st.settings[u.ID]
	}
	o.mu.Unlock()

	started := time.Now()
	report := PrepareReport{}
	var batchErr error

	for _, u := range order {
		if !o.markRunning(u.ID) {
			// File removed mid-batch; skip.
			continue
		}

		attempt := o.sliceWithRetry(ctx, u.ID, settings[u.ID])
		switch attempt.outcome {
		case sliceFailure:
			report.FailedFiles = append(report.FailedFiles, u.ID)
			batchErr = multierr.Append(batchErr, fmt.Errorf("file %s: %s", u.ID, attempt.message))
			o.logWarnFile(ctx, u.ID, "file failed to prepare: "+attempt.message)
		case sliceFallback:
			if attempt.supportsRetried {
				report.SupportsWarning = true
			}
		}
		o.applySliceAttempt(u.ID, settings[u.ID], attempt)
	}

	o.mu.Lock()
	o.st.preparing = false
	if report.SupportsWarning {
		o.st.supportsWarning = true
	}
	o.reconcileStepLocked()
	o.scheduleDraftSaveLocked()
	o.mu.Unlock()

	result := "ok"
	if len(report.FailedFiles) > 0 {
		result = "partial_failure"
		report.Err = pkgerrors.Wrap(pkgerrors.CodeDependency, batchErr,
			"some files failed to prepare, expand each file for details").
			WithDetails(map[string]any{"failed_files": report.FailedFiles})
	}
	o.deps.Metrics.ObservePrepareDuration(result, time.Since(started))

	return report, nil
}

// sliceWithRetry runs the two-tier policy for one file.
func (o *Orchestrator) sliceWithRetry(ctx context.Context, fileID string, s FileSettings) sliceAttempt {
	primary, err := o.deps.Slicer.Slice(ctx, SliceRequest{
		FileID:          fileID,
		MaterialID:      s.MaterialID,
		LayerHeight:     s.LayerHeight,
		Infill:          s.Infill,
		SupportsEnabled: s.SupportsEnabled,
	})
	if err == nil {
		outcome := sliceSuccess
		if primary.Fallback {
			outcome = sliceFallback
		}
		o.deps.Metrics.IncSliceAttempt(outcomeLabel(outcome))
		return sliceAttempt{
			outcome: outcome,
			metrics: FileMetrics{Grams: primary.Grams, TimeSec: primary.TimeSec, Fallback: primary.Fallback},
		}
	}

	if !s.SupportsEnabled {
		o.deps.Metrics.IncSliceAttempt(outcomeLabel(sliceFailure))
		return sliceAttempt{outcome: sliceFailure, message: err.Error()}
	}

	retry, retryErr := o.deps.Slicer.Slice(ctx, SliceRequest{
		FileID:          fileID,
		MaterialID:      s.MaterialID,
		LayerHeight:     s.LayerHeight,
		Infill:          s.Infill,
		SupportsEnabled: false,
	})
	if retryErr != nil {
		o.deps.Metrics.IncSliceAttempt(outcomeLabel(sliceFailure))
		return sliceAttempt{outcome: sliceFailure, message: retryErr.Error()}
	}

	msg := fmt.Sprintf("slicing with supports failed (%s); estimate computed with supports disabled", err.Error())
	o.deps.Metrics.IncSliceAttempt(outcomeLabel(sliceFallback))
	return sliceAttempt{
		outcome:         sliceFallback,
		metrics:         FileMetrics{Grams: retry.Grams, TimeSec: retry.TimeSec, Fallback: true, Message: msg},
		message:         msg,
		supportsRetried: true,
	}
}

// markRunning flips a file to running; false when the file disappeared.
func (o *Orchestrator) markRunning(fileID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.findUploadLocked(fileID); !exists {
		return false
	}
	o.st.statuses[fileID] = FileState{Status: StatusRunning}
	return true
}

// applySliceAttempt commits one file's outcome. A result is only written
// while the file still exists, stays locked, and still has the settings
// it was sliced against; otherwise the metrics would instantly violate
// an invariant and are dropped instead.
func (o *Orchestrator) applySliceAttempt(fileID string, sliced FileSettings, attempt sliceAttempt) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(fileID); !exists {
		return
	}

	switch attempt.outcome {
	case sliceFailure:
		delete(o.st.metrics, fileID)
		delete(o.st.slicedSettings, fileID)
		delete(o.st.acceptedFallbacks, fileID)
		o.st.statuses[fileID] = FileState{Status: StatusError, Message: attempt.message}
	default:
		if !o.st.locked[fileID] {
			o.st.statuses[fileID] = FileState{Status: StatusIdle}
			return
		}
		if !sameSliceInputs(o.st.settings[fileID], sliced) {
			// The settings moved while the slice was in flight; the
			// estimate no longer describes them.
			o.st.statuses[fileID] = FileState{Status: StatusIdle}
			return
		}
		o.st.metrics[fileID] = attempt.metrics
		o.st.slicedSettings[fileID] = sliced
		// A fresh attempt always needs re-approval.
		delete(o.st.acceptedFallbacks, fileID)
		if attempt.outcome == sliceFallback {
			o.st.statuses[fileID] = FileState{Status: StatusFallback, Message: attempt.metrics.Message}
		} else {
			o.st.statuses[fileID] = FileState{Status: StatusSuccess}
		}
	}
	o.bumpRevLocked()
	o.reconcileStepLocked()
}

// AcceptFallback records the user's explicit approval of a file's
// fallback estimate, unblocking pricing and checkout for it.
func (o *Orchestrator) AcceptFallback(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.findUploadLocked(id); !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	m, ok := o.st.metrics[id]
	if !ok || !m.Fallback {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "file has no fallback estimate to accept")
	}
	o.st.acceptedFallbacks[id] = struct{}{}
	return nil
}

// unacceptedFallbacksLocked lists files whose fallback estimates still
// need approval.
func (o *Orchestrator) unacceptedFallbacksLocked() []string {
	var pending []string
	for _, u := range o.st.uploads {
		if m, ok := o.st.metrics[u.ID]; ok && m.Fallback {
			if _, accepted := o.st.acceptedFallbacks[u.ID]; !accepted {
				pending = append(pending, u.ID)
			}
		}
	}
	return pending
}

func outcomeLabel(outcome sliceOutcome) string {
	switch outcome {
	case sliceSuccess:
		return "success"
	case sliceFallback:
		return "fallback"
	default:
		return "failure"
	}
}
