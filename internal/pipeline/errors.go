package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of a pipeline run.
type Stage string

const (
	StageConfig    Stage = "config"
	StageExtract   Stage = "extract"
	StageOCR       Stage = "ocr"
	StageNormalize Stage = "normalize"
	StageTranslate Stage = "translate"
	StagePolish    Stage = "polish"
	StageExport    Stage = "export"
)

// Error kinds. Match them with errors.Is on any error returned by Run.
var (
	ErrEmptyDocument      = errors.New("empty document")
	ErrExtraction         = errors.New("extraction failure")
	ErrRecognition        = errors.New("recognition failure")
	ErrDetection          = errors.New("detection failure")
	ErrTranslationService = errors.New("translation service failure")
	ErrPolishingService   = errors.New("polishing service failure")
	ErrExport             = errors.New("export failure")
	ErrConfiguration      = errors.New("configuration error")
)

// Error is a whole-stage failure. Kind is one of the sentinel errors above
// and Err is the underlying cause, if any.
type Error struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(stage Stage, kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// ConfigError wraps err as a configuration failure.
func ConfigError(err error) error {
	return newError(StageConfig, ErrConfiguration, err)
}

var errOCRNotConfigured = errors.New("no ocr engine configured")
