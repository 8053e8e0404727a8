package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
)

var (
	dayMonthYearPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	rangeSeparator      = regexp.MustCompile(`\s*[-–]\s*`)
	clockPattern        = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Date is a calendar day without a timezone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Clock is a wall-clock time of day in 24-hour form
type Clock struct {
	Hour   int
	Minute int
}

// ParseDate accepts DD/MM/YYYY or YYYY-MM-DD. Exactly one layout has to match.
func ParseDate(text string) (Date, error) {
	t := strings.TrimSpace(text)

	var candidates []Date
	if m := dayMonthYearPattern.FindStringSubmatch(t); m != nil {
		candidates = append(candidates, Date{Year: atoi(m[3]), Month: time.Month(atoi(m[2])), Day: atoi(m[1])})
	}
	if m := isoDatePattern.FindStringSubmatch(t); m != nil {
		candidates = append(candidates, Date{Year: atoi(m[1]), Month: time.Month(atoi(m[2])), Day: atoi(m[3])})
	}

	switch len(candidates) {
	case 0:
		return Date{}, domain.NewParseError("unrecognized date %q", text)
	case 1:
	default:
		return Date{}, domain.NewParseError("ambiguous date %q", text)
	}

	d := candidates[0]
	// time.Date normalizes overflow (31/02 becomes 03/03), so compare back
	probe := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	if probe.Year() != d.Year || probe.Month() != d.Month || probe.Day() != d.Day {
		return Date{}, domain.NewParseError("invalid calendar date %q", text)
	}
	return d, nil
}

// ParseClock parses one strict 24-hour HH:MM token
func ParseClock(text string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Clock{}, domain.NewParseError("malformed time %q", text)
	}
	c := Clock{Hour: atoi(m[1]), Minute: atoi(m[2])}
	if c.Hour > 23 || c.Minute > 59 {
		return Clock{}, domain.NewParseError("time out of range %q", text)
	}
	return c, nil
}

// ParseTimeRange parses "HH:MM - HH:MM"; the separator may be a hyphen or an en dash.
func ParseTimeRange(text string) (Clock, Clock, error) {
	parts := rangeSeparator.Split(strings.TrimSpace(text), -1)
	if len(parts) != 2 {
		return Clock{}, Clock{}, domain.NewParseError("malformed time range %q", text)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Clock{}, Clock{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Clock{}, Clock{}, err
	}
	return start, end, nil
}

// NormalizeEvent turns extracted event fields into a dispatchable event in loc
func NormalizeEvent(fields *domain.ExtractedFields, loc *time.Location) (*domain.NormalizedEvent, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := ParseDate(fields.DateText)
	if err != nil {
		return nil, err
	}
	from, to, err := ParseTimeRange(fields.TimeText)
	if err != nil {
		return nil, err
	}

	start := time.Date(date.Year, date.Month, date.Day, from.Hour, from.Minute, 0, 0, loc)
	end := time.Date(date.Year, date.Month, date.Day, to.Hour, to.Minute, 0, 0, loc)
	if !start.Before(end) {
		return nil, domain.NewParseError("event must end after it starts (%s)", strings.TrimSpace(fields.TimeText))
	}

	return &domain.NormalizedEvent{
		Title:       fields.Title,
		Start:       start,
		End:         end,
		TimeZone:    loc.String(),
		Description: fields.Description,
		Location:    fields.Location,
		Attendees:   fields.Attendees,
	}, nil
}

// NormalizeTask builds the task payload. Labels are area, content and priority, in that order.
func NormalizeTask(fields *domain.ExtractedFields, projectID string) *domain.NormalizedTask {
	priority := domain.ParsePriority(fields.Priority)

	var labels []string
	if area := domain.CanonicalArea(fields.Area); area != "" {
		labels = append(labels, area)
	}
	if content := strings.TrimSpace(fields.Content); content != "" {
		labels = append(labels, content)
	}
	if strings.TrimSpace(fields.Priority) != "" {
		labels = append(labels, string(priority))
	}

	return &domain.NormalizedTask{
		Title:     fields.Title,
		ProjectID: projectID,
		Labels:    labels,
		Priority:  priority,
		DueString: strings.TrimSpace(fields.DueText),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
