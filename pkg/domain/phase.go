package domain

// Phase is the position of a slot lifecycle in its state machine.
type Phase string

const (
	PhaseLoadScript       Phase = "load_script"
	PhaseReady            Phase = "ready"
	PhaseMounting         Phase = "mounting"
	PhaseMounted          Phase = "mounted"
	PhaseUpdating         Phase = "updating"
	PhaseUnmounting       Phase = "unmounting"
	PhaseErrorHandling    Phase = "error_handling"
	PhaseUnmountingFailed Phase = "unmounting_failed"
	PhaseDone             Phase = "done"
)

// SlotSnapshot describes one mounted slot.
type SlotSnapshot struct {
	Slot     string `json:"slot"`
	Fragment string `json:"fragment"`
	Phase    Phase  `json:"phase"`
}
