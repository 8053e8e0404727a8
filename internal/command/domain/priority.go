package domain

import "strings"

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Todoist numeric priorities. The table is kept as the product defined it
// (Low=4, High=1) even though it reads inverted next to Todoist's own scale.
var priorityValues = map[Priority]int{
	PriorityLow:    4,
	PriorityMedium: 3,
	PriorityHigh:   1,
}

// ParsePriority maps free text to a level. Anything outside Low/Medium/High
// (compared case-insensitively after trimming) falls back to Low.
func ParsePriority(text string) Priority {
	t := strings.TrimSpace(text)
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(t, string(p)) {
			return p
		}
	}
	return PriorityLow
}

// Value returns the numeric priority sent to the task service
func (p Priority) Value() int {
	if v, ok := priorityValues[p]; ok {
		return v
	}
	return priorityValues[PriorityLow]
}

// Areas is the closed vocabulary for the area tag
var Areas = []string{"Operations", "Finance", "Marketing", "Dev", "Graphic", "Sales"}

// CanonicalArea returns the vocabulary spelling of an area tag, or the
// trimmed input when it is not part of the vocabulary.
func CanonicalArea(text string) string {
	t := strings.TrimSpace(text)
	for _, a := range Areas {
		if strings.EqualFold(t, a) {
			return a
		}
	}
	return t
}
