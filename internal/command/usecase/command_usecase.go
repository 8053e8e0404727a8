package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/internal/command/repository"

	"github.com/google/uuid"
)

// Command sources recorded on the audit row
const (
	SourceText   = "text"
	SourceVoice  = "voice"
	SourcePubSub = "pubsub"
)

// ErrEmptyCommand is returned when a command carries neither text nor audio
var ErrEmptyCommand = errors.New("command has neither text nor audio")

// CommandInput is one utterance submitted by a user
type CommandInput struct {
	UserID   string
	Source   string
	Text     string
	Audio    []byte
	Filename string
	Language string
}

// CommandUsecase defines the interface for voice command business logic
type CommandUsecase interface {
	// Execute runs one command end to end and records its audit row
	Execute(ctx context.Context, in CommandInput) (*domain.RunOutcome, error)

	// GetRun returns one audit row owned by userID
	GetRun(userID, runID string) (*domain.CommandRun, error)

	// RecentRuns lists the caller's latest runs, newest first
	RecentRuns(userID string, limit, offset int) ([]*domain.CommandRun, int64, error)
}

// commandUsecase implements CommandUsecase interface
type commandUsecase struct {
	pipeline *PipelineController
	runRepo  repository.RunRepository
}

// NewCommandUsecase creates a new instance of commandUsecase. runRepo may be nil.
func NewCommandUsecase(pipeline *PipelineController, runRepo repository.RunRepository) CommandUsecase {
	return &commandUsecase{
		pipeline: pipeline,
		runRepo:  runRepo,
	}
}

func (u *commandUsecase) Execute(ctx context.Context, in CommandInput) (*domain.RunOutcome, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Audio) == 0 {
		return nil, ErrEmptyCommand
	}
	if in.Source == "" {
		in.Source = SourceText
	}

	runID := uuid.New().String()
	started := time.Now()

	var outcome *domain.RunOutcome
	if strings.TrimSpace(in.Text) != "" {
		outcome = u.pipeline.Run(ctx, runID, domain.Transcript{Text: in.Text, Language: in.Language})
	} else {
		outcome = u.pipeline.RunAudio(ctx, runID, in.Audio, in.Filename, in.Language)
	}

	u.record(in, outcome, started)
	return outcome, nil
}

// record stores the audit row. A storage failure never changes the outcome.
func (u *commandUsecase) record(in CommandInput, outcome *domain.RunOutcome, started time.Time) {
	if u.runRepo == nil {
		return
	}
	row := &domain.CommandRun{
		ID:          outcome.RunID,
		UserID:      in.UserID,
		Source:      in.Source,
		Intent:      outcome.Intent,
		State:       outcome.State,
		FailedStage: outcome.FailedStage,
		Reply:       outcome.Reply,
		CreatedAt:   started,
		CompletedAt: time.Now(),
	}
	if outcome.Err != nil {
		row.ErrorDetail = outcome.Err.Error()
	}
	if outcome.Result != nil {
		row.ExternalLink = outcome.Result.Link
		row.ExternalID = outcome.Result.ExternalID
	}
	if err := u.runRepo.Create(row); err != nil {
		log.Printf("[Command] Failed to store run %s: %v", outcome.RunID, err)
	}
}

func (u *commandUsecase) GetRun(userID, runID string) (*domain.CommandRun, error) {
	if u.runRepo == nil {
		return nil, errors.New("run history not available")
	}
	run, err := u.runRepo.FindByID(runID)
	if err != nil {
		return nil, err
	}
	if run == nil || run.UserID != userID {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (u *commandUsecase) RecentRuns(userID string, limit, offset int) ([]*domain.CommandRun, int64, error) {
	if u.runRepo == nil {
		return nil, 0, nil
	}
	return u.runRepo.FindByUserID(userID, limit, offset)
}
