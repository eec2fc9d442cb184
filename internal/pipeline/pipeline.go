// Package pipeline implements the quick-order orchestrator: the step
// state machine, per-file preparation workflow, pricing/checkout
// coordination, and the draft persistence protocol. All pipeline state
// is owned here; collaborators mutate it only through the exported
// methods so the invalidation rules cannot be bypassed.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/metrics"
	"github.com/printforge/quickorder-backend/pkg/types"
)

const backgroundCallTimeout = 10 * time.Second

// Deps wires the orchestrator to its collaborators. Slicer, Pricer,
// Checkout, Orientation and Materials are required; Wallet, Drafts,
// Logger and Metrics degrade gracefully when nil.
type Deps struct {
	Slicer      Slicer
	Pricer      Pricer
	Checkout    CheckoutGateway
	Orientation OrientationPersister
	Wallet      WalletReader
	Materials   MaterialResolver
	Drafts      DraftStore
	Logger      *logger.Logger
	Metrics     *metrics.PipelineMetrics

	SaveDebounce    time.Duration
	RepriceDebounce time.Duration
}

func (d Deps) validate() error {
	if d.Slicer == nil {
		return fmt.Errorf("slicer required")
	}
	if d.Pricer == nil {
		return fmt.Errorf("pricer required")
	}
	if d.Checkout == nil {
		return fmt.Errorf("checkout gateway required")
	}
	if d.Orientation == nil {
		return fmt.Errorf("orientation persister required")
	}
	if d.Materials == nil {
		return fmt.Errorf("material resolver required")
	}
	return nil
}

// state is the mutable pipeline state guarded by the orchestrator mutex.
type state struct {
	step               Step
	uploads            []Upload
	settings           map[string]FileSettings
	slicedSettings     map[string]FileSettings
	orientation        map[string]OrientationSnapshot
	locked             map[string]bool
	orientationRev     map[string]uint64
	metrics            map[string]FileMetrics
	statuses           map[string]FileState
	acceptedFallbacks  map[string]struct{}
	currentlyOrienting *string
	address            types.Address
	price              *PriceData
	supportsWarning    bool
	preparing          bool
	draftChecked       bool

	// rev increments on every mutation; long-running external calls use
	// it to detect that their inputs changed mid-flight.
	rev uint64
}

// Orchestrator coordinates one session's quick-order pipeline.
type Orchestrator struct {
	mu        sync.Mutex
	sessionID string
	deps      Deps
	st        state

	saveTimer    *time.Timer
	repriceTimer *time.Timer
	closed       bool
}

// NewOrchestrator builds an empty pipeline for the given session.
func NewOrchestrator(sessionID string, deps Deps) (*Orchestrator, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.SaveDebounce <= 0 {
		deps.SaveDebounce = 800 * time.Millisecond
	}
	if deps.RepriceDebounce <= 0 {
		deps.RepriceDebounce = 600 * time.Millisecond
	}
	return &Orchestrator{
		sessionID: sessionID,
		deps:      deps,
		st: state{
			step:              StepUpload,
			settings:          map[string]FileSettings{},
			slicedSettings:    map[string]FileSettings{},
			orientation:       map[string]OrientationSnapshot{},
			locked:            map[string]bool{},
			orientationRev:    map[string]uint64{},
			metrics:           map[string]FileMetrics{},
			statuses:          map[string]FileState{},
			acceptedFallbacks: map[string]struct{}{},
		},
	}, nil
}

// SessionID returns the owning session id.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// Close stops the background timers. Pending external calls are left to
// resolve; their results are discarded by the revision guard.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	if o.repriceTimer != nil {
		o.repriceTimer.Stop()
		o.repriceTimer = nil
	}
}

// GoToStep navigates to the requested stage if its prerequisite is met.
func (o *Orchestrator) GoToStep(s Step) error {
	if !ValidStep(s) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown step %q", s))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isStepUnlockedLocked(s) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("step %q is locked", s)).
			WithDetails(map[string]any{"step": string(s)})
	}
	o.st.step = s
	o.scheduleDraftSaveLocked()
	return nil
}

// CurrentStep returns the stage the pipeline is on.
func (o *Orchestrator) CurrentStep() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.st.step
}

// FileView combines everything the client renders for one upload.
type FileView struct {
	Upload           Upload               `json:"upload"`
	Settings         FileSettings         `json:"settings"`
	Orientation      *OrientationSnapshot `json:"orientation,omitempty"`
	Locked           bool                 `json:"locked"`
	Metrics          *FileMetrics         `json:"metrics,omitempty"`
	Status           FileState            `json:"status"`
	FallbackAccepted bool                 `json:"fallback_accepted"`
}

// View is a consistent snapshot of the whole pipeline.
type View struct {
	Step               Step          `json:"step"`
	StepCompletion     map[Step]bool `json:"step_completion"`
	Files              []FileView    `json:"files"`
	CurrentlyOrienting *string       `json:"currently_orienting,omitempty"`
	Address            types.Address `json:"address"`
	Price              *PriceData    `json:"price,omitempty"`
	SupportsWarning    bool          `json:"supports_warning"`
	Preparing          bool          `json:"preparing"`
}

// Snapshot returns a copy of the current pipeline state for rendering.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	files := make([]FileView, 0, len(o.st.uploads))
	for _, u := range o.st.uploads {
		fv := FileView{
			Upload:   u,
			Settings: o.st.settings[u.ID],
			Locked:   o.st.locked[u.ID],
			Status:   o.fileStateLocked(u.ID),
		}
		if snap, ok := o.st.orientation[u.ID]; ok {
			snapCopy := snap
			fv.Orientation = &snapCopy
		}
		if m, ok := o.st.metrics[u.ID]; ok {
			mCopy := m
			fv.Metrics = &mCopy
		}
		if _, ok := o.st.acceptedFallbacks[u.ID]; ok {
			fv.FallbackAccepted = true
		}
		files = append(files, fv)
	}

	view := View{
		Step:            o.st.step,
		StepCompletion:  o.stepCompletionLocked(),
		Files:           files,
		Address:         o.st.address,
		SupportsWarning: o.st.supportsWarning,
		Preparing:       o.st.preparing,
	}
	if o.st.currentlyOrienting != nil {
		id := *o.st.currentlyOrienting
		view.CurrentlyOrienting = &id
	}
	if o.st.price != nil {
		priceCopy := *o.st.price
		priceCopy.Items = append([]PriceItem(nil), o.st.price.Items...)
		view.Price = &priceCopy
	}
	return view
}

func (o *Orchestrator) fileStateLocked(id string) FileState {
	if fs, ok := o.st.statuses[id]; ok {
		return fs
	}
	return FileState{Status: StatusIdle}
}

func (o *Orchestrator) findUploadLocked(id string) (Upload, bool) {
	for _, u := range o.st.uploads {
		if u.ID == id {
			return u, true
		}
	}
	return Upload{}, false
}

// invalidatePriceLocked drops the computed price and any pending
// auto-reprice. Must be called synchronously with the mutation that
// makes the price stale.
func (o *Orchestrator) invalidatePriceLocked() {
	o.st.price = nil
	if o.repriceTimer != nil {
		o.repriceTimer.Stop()
		o.repriceTimer = nil
	}
}

// clearMetricsLocked removes the slicing result for one file and the
// price derived from it.
func (o *Orchestrator) clearMetricsLocked(id string) {
	delete(o.st.metrics, id)
	delete(o.st.slicedSettings, id)
	delete(o.st.acceptedFallbacks, id)
	o.st.statuses[id] = FileState{Status: StatusIdle}
	o.invalidatePriceLocked()
}

func (o *Orchestrator) bumpRevLocked() {
	o.st.rev++
}

func (o *Orchestrator) logError(ctx context.Context, msg string, err error) {
	if o.deps.Logger == nil {
		return
	}
	o.deps.Logger.Error(o.deps.Logger.WithSessionID(ctx, o.sessionID), msg, err)
}

func (o *Orchestrator) logWarn(ctx context.Context, msg string) {
	if o.deps.Logger == nil {
		return
	}
	o.deps.Logger.Warn(o.deps.Logger.WithSessionID(ctx, o.sessionID), msg)
}

func (o *Orchestrator) logWarnFile(ctx context.Context, fileID, msg string) {
	if o.deps.Logger == nil {
		return
	}
	ctx = o.deps.Logger.WithSessionID(ctx, o.sessionID)
	o.deps.Logger.Warn(o.deps.Logger.WithFileID(ctx, fileID), msg)
}
