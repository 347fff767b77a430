package upload

// State is the orchestrator's position in one upload attempt.
type State string

const (
	StateIdle                State = "idle"
	StateValidatingURL       State = "validating-url"
	StateGeneratingURL       State = "generating-url"
	StateInitiatingSegmented State = "initiating-segmented"
	StateUploading           State = "uploading"
	StateUploadingSegments   State = "uploading-segments"
	StateConfirming          State = "confirming"
	StateCompletingSegmented State = "completing-segmented"
	StateDone                State = "done"
	StateError               State = "error"
)

// validTransitions encodes the attempt lifecycle. StateError is reachable
// from every non-terminal state and is handled separately; StateIdle is
// reachable from the terminal states via Reset.
var validTransitions = map[State][]State{
	StateIdle:                {StateValidatingURL},
	StateValidatingURL:       {StateGeneratingURL, StateInitiatingSegmented, StateUploading},
	StateGeneratingURL:       {StateUploading},
	StateInitiatingSegmented: {StateUploadingSegments},
	StateUploading:           {StateConfirming},
	StateUploadingSegments:   {StateCompletingSegmented},
	StateConfirming:          {StateDone},
	StateCompletingSegmented: {StateDone},
	StateDone:                {StateIdle},
	StateError:               {StateIdle},
}

// terminal reports whether s ends an attempt.
func (s State) terminal() bool {
	return s == StateDone || s == StateError
}

func canTransition(from, to State) bool {
	if to == StateError {
		return !from.terminal()
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
