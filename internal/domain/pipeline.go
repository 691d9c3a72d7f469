package domain

import "time"

// PipelineState is one step of a request's lifecycle.
type PipelineState string

const (
	StateReceived   PipelineState = "received"
	StateClassified PipelineState = "classified"
	StateTranslated PipelineState = "translated"
	StateAnalyzing  PipelineState = "analyzing"
	StateVerifying  PipelineState = "verifying"
	StateCompleted  PipelineState = "completed"
	StateFailed     PipelineState = "failed"
)

func (s PipelineState) String() string {
	return string(s)
}

func (s PipelineState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var forwardTransitions = map[PipelineState]PipelineState{
	StateReceived:   StateClassified,
	StateClassified: StateTranslated,
	StateTranslated: StateAnalyzing,
	StateAnalyzing:  StateVerifying,
	StateVerifying:  StateCompleted,
}

// CanTransition reports whether from -> to is a legal edge. Failed is
// reachable from every non-terminal state.
func CanTransition(from, to PipelineState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return forwardTransitions[from] == to
}

// StageEvent is emitted on every state transition.
type StageEvent struct {
	RequestID string        `json:"request_id"`
	State     PipelineState `json:"state"`
	At        time.Time     `json:"at"`
	Detail    string        `json:"detail,omitempty"`
}
