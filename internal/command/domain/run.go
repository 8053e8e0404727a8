package domain

import "time"

// RunState is a state of the pipeline state machine
type RunState string

const (
	StateReceived       RunState = "received"
	StateClassified     RunState = "classified"
	StateExtracted      RunState = "extracted"
	StateNormalized     RunState = "normalized"
	StateLabelsResolved RunState = "labels_resolved"
	StateDispatched     RunState = "dispatched"
	StateDone           RunState = "done"
	StateFailed         RunState = "failed"
)

// RunOutcome is the terminal value of one pipeline run
type RunOutcome struct {
	RunID       string          `json:"run_id"`
	State       RunState        `json:"state"`
	Intent      Intent          `json:"intent"`
	FailedStage Stage           `json:"failed_stage,omitempty"`
	Err         error           `json:"-"`
	Result      *DispatchResult `json:"result,omitempty"`
	Reply       string          `json:"reply"`
	Transitions []RunState      `json:"transitions"`
}

// Failed reports whether the run ended in the Failed state
func (o *RunOutcome) Failed() bool {
	return o.State == StateFailed
}

// CommandRun is the audit row kept for every run. The transcript is not stored.
type CommandRun struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index;not null"`
	Source       string    `json:"source"` // "text", "voice" or "pubsub"
	Intent       Intent    `json:"intent"`
	State        RunState  `json:"state"`
	FailedStage  Stage     `json:"failed_stage,omitempty"`
	ErrorDetail  string    `json:"error_detail,omitempty"`
	ExternalLink string    `json:"external_link,omitempty"`
	ExternalID   string    `json:"external_id,omitempty"`
	Reply        string    `json:"reply"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at"`
}
