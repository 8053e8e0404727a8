package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"syscall"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/ai"
	"voicecmd-backend/pkg/todoist"

	gcal "google.golang.org/api/calendar/v3"
)

// scriptedLLM answers completions in call order
type scriptedLLM struct {
	mu       sync.Mutex
	answers  []string
	errs     []error
	requests []ai.CompletionRequest
}

func newScriptedLLM(answers ...string) *scriptedLLM {
	return &scriptedLLM{answers: answers}
}

func (s *scriptedLLM) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "", fmt.Errorf("unexpected completion call #%d", i+1)
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// blockingLLM waits for the context to end
type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fakeCalendar struct {
	mu     sync.Mutex
	errs   []error
	events []*gcal.Event
}

func (f *fakeCalendar) Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.events)
	f.events = append(f.events, event)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	created := *event
	created.Id = fmt.Sprintf("ev%d", i+1)
	created.HtmlLink = "https://calendar.google.com/event?eid=" + created.Id
	return &created, nil
}

func (f *fakeCalendar) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeTodoist struct {
	mu          sync.Mutex
	labels      []todoist.Label
	listErr     error
	createErr   error
	taskErrs    []error
	listCalls   int
	createdName []string
	tasks       []todoist.CreateTaskRequest
	nextID      int
	createDelay time.Duration

	// when set, CreateLabel signals createStarted and blocks until createGate
	// is closed or its context ends
	createGate    chan struct{}
	createStarted chan struct{}
}

func (f *fakeTodoist) ListLabels(ctx context.Context) ([]todoist.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]todoist.Label, len(f.labels))
	copy(out, f.labels)
	return out, nil
}

func (f *fakeTodoist) CreateLabel(ctx context.Context, name string) (*todoist.Label, error) {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	if f.createGate != nil {
		f.createStarted <- struct{}{}
		select {
		case <-f.createGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdName = append(f.createdName, name)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	l := todoist.Label{ID: fmt.Sprintf("new-%d", f.nextID), Name: name}
	f.labels = append(f.labels, l)
	return &l, nil
}

func (f *fakeTodoist) CreateTask(ctx context.Context, req todoist.CreateTaskRequest) (*todoist.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.tasks)
	f.tasks = append(f.tasks, req)
	if i < len(f.taskErrs) && f.taskErrs[i] != nil {
		return nil, f.taskErrs[i]
	}
	id := fmt.Sprintf("task%d", i+1)
	return &todoist.Task{ID: id, Content: req.Content, URL: "https://todoist.com/showTask?id=" + id}, nil
}

func (f *fakeTodoist) creates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.createdName...)
}

func (f *fakeTodoist) taskCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return f.text, f.err
}

func connRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: &net.AddrError{Err: "refused", Addr: "127.0.0.1:1"}}
}

func connReset() error {
	return fmt.Errorf("post: %w", syscall.ECONNRESET)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// headerTimeout is what http.Client returns when no response arrived in time
func headerTimeout() error {
	return &url.Error{Op: "Post", URL: "https://api.todoist.com/rest/v2/tasks", Err: timeoutErr{}}
}

var errBoom = errors.New("boom")

type memRunRepo struct {
	mu   sync.Mutex
	runs []*domain.CommandRun
	err  error
}

func (m *memRunRepo) Create(run *domain.CommandRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRunRepo) FindByID(id string) (*domain.CommandRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memRunRepo) FindByUserID(userID string, limit, offset int) ([]*domain.CommandRun, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CommandRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].UserID == userID {
			out = append(out, m.runs[i])
		}
	}
	return out, int64(len(out)), nil
}
