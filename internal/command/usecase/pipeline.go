package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/pkg/metrics"
	"voicecmd-backend/pkg/transcribe"
)

// PipelineController runs one utterance through every stage and produces one reply
type PipelineController struct {
	transcriber  transcribe.Transcriber
	classifier   *IntentClassifier
	extractor    *FieldExtractor
	reconciler   *LabelReconciler
	dispatcher   *ActionDispatcher
	location     *time.Location
	projectID    string
	stageTimeout time.Duration
	metrics      *metrics.Metrics
}

// PipelineDeps are the collaborators of a PipelineController. They are built
// once at startup and shared by every run.
type PipelineDeps struct {
	Transcriber  transcribe.Transcriber // optional, needed for audio input only
	Classifier   *IntentClassifier
	Extractor    *FieldExtractor
	Reconciler   *LabelReconciler
	Dispatcher   *ActionDispatcher
	Location     *time.Location
	ProjectID    string
	StageTimeout time.Duration
	Metrics      *metrics.Metrics
}

func NewPipelineController(deps PipelineDeps) *PipelineController {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := deps.StageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PipelineController{
		transcriber:  deps.Transcriber,
		classifier:   deps.Classifier,
		extractor:    deps.Extractor,
		reconciler:   deps.Reconciler,
		dispatcher:   deps.Dispatcher,
		location:     loc,
		projectID:    deps.ProjectID,
		stageTimeout: timeout,
		metrics:      deps.Metrics,
	}
}

// run tracks the state machine of one execution
type run struct {
	out *domain.RunOutcome
}

func (r *run) advance(state domain.RunState) {
	r.out.State = state
	r.out.Transitions = append(r.out.Transitions, state)
}

func newRun(runID string) *run {
	return &run{out: &domain.RunOutcome{
		RunID:       runID,
		State:       domain.StateReceived,
		Transitions: []domain.RunState{domain.StateReceived},
	}}
}

// RunAudio transcribes audio and runs the resulting transcript
func (p *PipelineController) RunAudio(ctx context.Context, runID string, audio []byte, filename, language string) *domain.RunOutcome {
	if p.transcriber == nil {
		return p.finish(newRun(runID), domain.NewTranscriptionError(errors.New("transcription service not configured")))
	}

	var text string
	err := p.stage(ctx, domain.StageTranscription, func(ctx context.Context) error {
		var err error
		text, err = p.transcriber.Transcribe(ctx, audio, filename, language)
		if err != nil {
			return domain.NewTranscriptionError(err)
		}
		return nil
	})
	if err != nil {
		return p.finish(newRun(runID), err)
	}
	return p.Run(ctx, runID, domain.Transcript{Text: text, Language: language})
}

// Run executes the pipeline for one transcript. It never panics on stage
// failure and always returns an outcome carrying exactly one reply.
func (p *PipelineController) Run(ctx context.Context, runID string, transcript domain.Transcript) *domain.RunOutcome {
	r := newRun(runID)
	log.Printf("[Pipeline] run %s: received transcript (%d chars)", runID, len(transcript.Text))

	var intent domain.Intent
	err := p.stage(ctx, domain.StageClassification, func(ctx context.Context) error {
		var err error
		intent, err = p.classifier.Classify(ctx, transcript)
		return err
	})
	if err != nil {
		return p.finish(r, err)
	}
	r.out.Intent = intent
	r.advance(domain.StateClassified)

	if intent == domain.IntentUnknown {
		return p.finish(r, domain.NewUnknownIntentError())
	}

	var fields *domain.ExtractedFields
	err = p.stage(ctx, domain.StageExtraction, func(ctx context.Context) error {
		var err error
		fields, err = p.extractor.Extract(ctx, transcript, intent, p.location)
		return err
	})
	if err != nil {
		return p.finish(r, err)
	}
	r.advance(domain.StateExtracted)

	switch intent {
	case domain.IntentCreateEvent:
		p.runEvent(ctx, r, fields)
	case domain.IntentCreateTask:
		p.runTask(ctx, r, fields)
	}
	return r.out
}

func (p *PipelineController) runEvent(ctx context.Context, r *run, fields *domain.ExtractedFields) {
	started := time.Now()
	event, err := NormalizeEvent(fields, p.location)
	p.metrics.ObserveStage(string(domain.StageNormalization), started, err)
	if err != nil {
		p.finish(r, err)
		return
	}
	r.advance(domain.StateNormalized)

	var result *domain.DispatchResult
	err = p.stage(ctx, domain.StageDispatch, func(ctx context.Context) error {
		var err error
		result, err = p.dispatcher.DispatchEvent(ctx, event)
		return err
	})
	r.out.Result = result
	if err != nil {
		p.finish(r, err)
		return
	}
	r.advance(domain.StateDispatched)
	r.out.Reply = eventReply(event, result)
	p.finish(r, nil)
}

func (p *PipelineController) runTask(ctx context.Context, r *run, fields *domain.ExtractedFields) {
	task := NormalizeTask(fields, p.projectID)
	r.advance(domain.StateNormalized)

	registry := NewLabelRegistry()
	var labels []domain.LabelRef
	err := p.stage(ctx, domain.StageReconciliation, func(ctx context.Context) error {
		var err error
		labels, err = p.reconciler.Resolve(ctx, registry, task.Labels)
		return err
	})
	if err != nil {
		p.finish(r, err)
		return
	}
	r.advance(domain.StateLabelsResolved)

	var result *domain.DispatchResult
	err = p.stage(ctx, domain.StageDispatch, func(ctx context.Context) error {
		var err error
		result, err = p.dispatcher.DispatchTask(ctx, task, labels, r.out.RunID)
		return err
	})
	r.out.Result = result
	if err != nil {
		p.finish(r, err)
		return
	}
	r.advance(domain.StateDispatched)
	r.out.Reply = taskReply(task, result)
	p.finish(r, nil)
}

// stage runs fn under the per-stage timeout and records its duration
func (p *PipelineController) stage(ctx context.Context, stage domain.Stage, fn func(ctx context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	started := time.Now()
	err := fn(stageCtx)
	p.metrics.ObserveStage(string(stage), started, err)
	return err
}

// finish moves the run to its terminal state. A nil err means Done.
func (p *PipelineController) finish(r *run, err error) *domain.RunOutcome {
	if err == nil {
		r.advance(domain.StateDone)
		log.Printf("[Pipeline] run %s: done (%s)", r.out.RunID, r.out.Intent)
		p.metrics.ObserveRun(string(domain.StateDone), "")
		return r.out
	}

	stage, _ := domain.StageOf(err)
	r.out.FailedStage = stage
	r.out.Err = err
	r.out.Reply = FailureReply(err)
	r.advance(domain.StateFailed)
	log.Printf("[Pipeline] run %s: failed at %s: %v", r.out.RunID, stage, err)
	p.metrics.ObserveRun(string(domain.StateFailed), string(stage))
	return r.out
}

var stageDescriptions = map[domain.Stage]string{
	domain.StageTranscription:  "la trascrizione del messaggio vocale",
	domain.StageClassification: "la comprensione del comando",
	domain.StageExtraction:     "l'estrazione dei dati",
	domain.StageNormalization:  "la lettura di data e orario",
	domain.StageReconciliation: "la preparazione delle etichette",
	domain.StageDispatch:       "la creazione",
}

// FailureReply is the single user-facing message for a failed run
func FailureReply(err error) string {
	if errors.Is(err, domain.ErrUnknownIntent) {
		return "❌ Non ho capito il comando."
	}
	stage, _ := domain.StageOf(err)
	desc, ok := stageDescriptions[stage]
	if !ok {
		desc = "l'elaborazione"
	}

	// only parse and missing-field details are shown; collaborator errors stay in the log
	var se *domain.StageError
	if errors.As(err, &se) && se.Err != nil && (errors.Is(err, domain.ErrParse) || errors.Is(err, domain.ErrMissingRequiredField)) {
		return fmt.Sprintf("❌ Errore durante %s: %v", desc, se.Err)
	}
	return fmt.Sprintf("❌ Errore durante %s.", desc)
}

func eventReply(ev *domain.NormalizedEvent, res *domain.DispatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Evento creato: %s (%s, %s–%s)", ev.Title, ev.Start.Format("02/01/2006"), ev.Start.Format("15:04"), ev.End.Format("15:04"))
	if res != nil && res.Link != "" {
		fmt.Fprintf(&b, "\n%s", res.Link)
	}
	return b.String()
}

func taskReply(task *domain.NormalizedTask, res *domain.DispatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Task creato: %s", task.Title)
	if task.DueString != "" {
		fmt.Fprintf(&b, " (scadenza: %s)", task.DueString)
	}
	if res != nil && res.Link != "" {
		fmt.Fprintf(&b, "\n%s", res.Link)
	}
	return b.String()
}
