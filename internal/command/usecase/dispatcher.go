package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"syscall"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/metrics"
	"voicecmd-backend/pkg/todoist"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// MaxDispatchRetries caps the extra attempts after the first create call
const MaxDispatchRetries = 2

// CalendarInserter creates calendar events
type CalendarInserter interface {
	Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error)
}

// TaskCreator creates tasks
type TaskCreator interface {
	CreateTask(ctx context.Context, req todoist.CreateTaskRequest) (*todoist.Task, error)
}

// ActionDispatcher issues the single create call of a run
type ActionDispatcher struct {
	calendar   CalendarInserter
	tasks      TaskCreator
	maxRetries int
	newBackOff func() backoff.BackOff
	metrics    *metrics.Metrics
}

// NewActionDispatcher builds a dispatcher. maxRetries is clamped to [0, MaxDispatchRetries].
func NewActionDispatcher(calendar CalendarInserter, tasks TaskCreator, maxRetries int, initialBackoff time.Duration, m *metrics.Metrics) *ActionDispatcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > MaxDispatchRetries {
		maxRetries = MaxDispatchRetries
	}
	if initialBackoff <= 0 {
		initialBackoff = 500 * time.Millisecond
	}
	return &ActionDispatcher{
		calendar:   calendar,
		tasks:      tasks,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initialBackoff
			b.MaxInterval = 8 * initialBackoff
			b.MaxElapsedTime = 0
			return b
		},
		metrics: m,
	}
}

// BuildCalendarEvent converts a normalized event to the Calendar API payload
func BuildCalendarEvent(ev *domain.NormalizedEvent) *gcal.Event {
	out := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	for _, email := range ev.Attendees {
		out.Attendees = append(out.Attendees, &gcal.EventAttendee{Email: email})
	}
	return out
}

// BuildTaskRequest converts a normalized task and its resolved labels to the Todoist payload
func BuildTaskRequest(task *domain.NormalizedTask, labels []domain.LabelRef, requestID string) todoist.CreateTaskRequest {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return todoist.CreateTaskRequest{
		Content:   task.Title,
		ProjectID: task.ProjectID,
		Labels:    names,
		Priority:  task.Priority.Value(),
		DueString: task.DueString,
		RequestID: requestID,
	}
}

// DispatchEvent creates the calendar event
func (d *ActionDispatcher) DispatchEvent(ctx context.Context, ev *domain.NormalizedEvent) (*domain.DispatchResult, error) {
	if d.calendar == nil {
		return nil, domain.NewDispatchError(errors.New("calendar service not configured"))
	}
	payload := BuildCalendarEvent(ev)

	var created *gcal.Event
	err := d.retry(ctx, "calendar", func(ctx context.Context) error {
		var err error
		created, err = d.calendar.Insert(ctx, payload)
		return err
	})
	if err != nil {
		return &domain.DispatchResult{ErrorDetail: err.Error()}, domain.NewDispatchError(err)
	}
	return &domain.DispatchResult{Success: true, Link: created.HtmlLink, ExternalID: created.Id}, nil
}

// DispatchTask creates the task. requestID is reused across retries so the
// task service can drop a replayed create.
func (d *ActionDispatcher) DispatchTask(ctx context.Context, task *domain.NormalizedTask, labels []domain.LabelRef, requestID string) (*domain.DispatchResult, error) {
	if d.tasks == nil {
		return nil, domain.NewDispatchError(errors.New("task service not configured"))
	}
	payload := BuildTaskRequest(task, labels, requestID)

	var created *todoist.Task
	err := d.retry(ctx, "todoist", func(ctx context.Context) error {
		var err error
		created, err = d.tasks.CreateTask(ctx, payload)
		return err
	})
	if err != nil {
		return &domain.DispatchResult{ErrorDetail: err.Error()}, domain.NewDispatchError(err)
	}
	return &domain.DispatchResult{Success: true, Link: created.URL, ExternalID: created.ID}, nil
}

// retry runs op, repeating it only for transient network errors
func (d *ActionDispatcher) retry(ctx context.Context, target string, op func(context.Context) error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), uint64(d.maxRetries)), ctx)

	err := backoff.Retry(func() error {
		attempt++
		d.metrics.IncDispatchAttempt(target)
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		log.Printf("[Dispatcher] %s attempt %d failed with transient error: %v", target, attempt, err)
		return fmt.Errorf("%w: %w", domain.ErrTransientNetwork, err)
	}, b)
	if err != nil && attempt > 1 {
		log.Printf("[Dispatcher] %s gave up after %d attempts: %v", target, attempt, err)
	}
	return err
}

// IsTransient reports whether err is a transport failure that happened before
// any response status arrived: a refused or failed dial, or a request timeout.
// A response with a status, including one from the OAuth token endpoint, is
// never transient, and neither is a failure while reading a response body.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return false
	}
	var terr *todoist.APIError
	if errors.As(err, &terr) {
		return false
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var operr *net.OpError
	if errors.As(err, &operr) && operr.Op == "dial" {
		return true
	}
	// http.Client wraps only pre-response failures in *url.Error
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return true
	}
	return false
}
