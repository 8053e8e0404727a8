package domain

import "time"

// Intent is the closed vocabulary of actions a voice command can request
type Intent string

const (
	IntentCreateEvent Intent = "create_event"
	IntentCreateTask  Intent = "create_task"
	IntentUnknown     Intent = "unknown"
)

// Transcript is the recognized text of one voice message
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// ExtractedFields holds the raw, loosely-typed values read from the model output.
// They are never dispatched directly.
type ExtractedFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	DateText    string   `json:"date_text,omitempty"`
	TimeText    string   `json:"time_text,omitempty"`
	DueText     string   `json:"due_text,omitempty"`
	Area        string   `json:"area,omitempty"`
	Content     string   `json:"content,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

// NormalizedEvent is a validated calendar payload. Start is always before End.
type NormalizedEvent struct {
	Title       string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Description string
	Location    string
	Attendees   []string
}

// NormalizedTask is a validated task payload
type NormalizedTask struct {
	Title     string
	ProjectID string
	Labels    []string
	Priority  Priority
	DueString string // passed verbatim to the task service's own parser
}

// LabelRef is a label name resolved to the task service's identifier
type LabelRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// DispatchResult is the outcome of the single external create call
type DispatchResult struct {
	Success     bool   `json:"success"`
	Link        string `json:"link,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}
