package pipeline

// Step is one of the five ordered stages of the quick-order flow.
type Step string

const (
	StepUpload    Step = "upload"
	StepOrient    Step = "orient"
	StepConfigure Step = "configure"
	StepPrice     Step = "price"
	StepCheckout  Step = "checkout"
)

// stepOrder fixes the total order used for unlock checks and the
// background correction walk.
var stepOrder = []Step{StepUpload, StepOrient, StepConfigure, StepPrice, StepCheckout}

// ValidStep reports whether s names a known stage.
func ValidStep(s Step) bool {
	return stepIndex(s) >= 0
}

func stepIndex(s Step) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

func previousStep(s Step) (Step, bool) {
	idx := stepIndex(s)
	if idx <= 0 {
		return "", false
	}
	return stepOrder[idx-1], true
}

// isStepCompleteLocked evaluates a stage's completion predicate against
// current state. Checkout is terminal and never "complete": it gates
// nothing downstream.
func (o *Orchestrator) isStepCompleteLocked(s Step) bool {
	switch s {
	case StepUpload:
		return len(o.st.uploads) > 0
	case StepOrient:
		if len(o.st.uploads) == 0 {
			return false
		}
		for _, u := range o.st.uploads {
			if !o.st.locked[u.ID] {
				return false
			}
		}
		return true
	case StepConfigure:
		if len(o.st.uploads) == 0 {
			return false
		}
		for _, u := range o.st.uploads {
			if _, ok := o.st.metrics[u.ID]; !ok {
				return false
			}
		}
		return true
	case StepPrice:
		return o.isStepCompleteLocked(StepConfigure) && o.st.price != nil
	case StepCheckout:
		return false
	default:
		return false
	}
}

func (o *Orchestrator) isStepUnlockedLocked(s Step) bool {
	if s == StepUpload {
		return true
	}
	prev, ok := previousStep(s)
	if !ok {
		return false
	}
	return o.isStepCompleteLocked(prev)
}

// reconcileStepLocked walks the current step backward while its
// prerequisite no longer holds. Runs after every mutation so the client
// can never be presented an invalid stage.
func (o *Orchestrator) reconcileStepLocked() {
	for o.st.step != StepUpload && !o.isStepUnlockedLocked(o.st.step) {
		prev, ok := previousStep(o.st.step)
		if !ok {
			break
		}
		o.st.step = prev
	}
}

// IsStepUnlocked reports whether the given stage can be navigated to.
func (o *Orchestrator) IsStepUnlocked(s Step) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isStepUnlockedLocked(s)
}

// StepCompletion returns the completion flag for every stage.
func (o *Orchestrator) StepCompletion() map[Step]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stepCompletionLocked()
}

func (o *Orchestrator) stepCompletionLocked() map[Step]bool {
	completion := make(map[Step]bool, len(stepOrder))
	for _, s := range stepOrder {
		completion[s] = o.isStepCompleteLocked(s)
	}
	return completion
}
