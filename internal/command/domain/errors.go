package domain

import (
	"errors"
	"fmt"
)

// Stage names a step of the command pipeline
type Stage string

const (
	StageTranscription  Stage = "transcription"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageNormalization  Stage = "normalization"
	StageReconciliation Stage = "reconciliation"
	StageDispatch       Stage = "dispatch"
)

// Error kinds. Match them with errors.Is on any error returned by the pipeline.
var (
	ErrTranscription        = errors.New("transcription failed")
	ErrClassification       = errors.New("classification failed")
	ErrUnknownIntent        = errors.New("command not understood")
	ErrExtraction           = errors.New("extraction failed")
	ErrParse                = errors.New("parse failed")
	ErrReconciliation       = errors.New("label reconciliation failed")
	ErrDispatch             = errors.New("dispatch failed")
	ErrTransientNetwork     = errors.New("transient network error")
	ErrEmptyTranscript      = errors.New("empty transcript")
	ErrMissingRequiredField = errors.New("missing required field")
)

// StageError carries the stage that failed and the kind of failure
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newStageError(stage Stage, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func NewTranscriptionError(err error) error {
	return newStageError(StageTranscription, ErrTranscription, err)
}

func NewClassificationError(err error) error {
	return newStageError(StageClassification, ErrClassification, err)
}

// NewUnknownIntentError records a well-formed classification outside the vocabulary
func NewUnknownIntentError() error {
	return newStageError(StageClassification, ErrUnknownIntent, nil)
}

func NewExtractionError(err error) error {
	return newStageError(StageExtraction, ErrExtraction, err)
}

func NewParseError(format string, args ...any) error {
	return newStageError(StageNormalization, ErrParse, fmt.Errorf(format, args...))
}

func NewReconciliationError(err error) error {
	return newStageError(StageReconciliation, ErrReconciliation, err)
}

func NewDispatchError(err error) error {
	return newStageError(StageDispatch, ErrDispatch, err)
}

// StageOf reports the stage recorded in err, if any
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
