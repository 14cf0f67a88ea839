package domain

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by the typed errors below.
var (
	ErrMissingColumn    = errors.New("required column missing")
	ErrInsufficientRows = errors.New("insufficient rows")
	ErrNonNumericTarget = errors.New("non-numeric target column")
	ErrModelNotTrained  = errors.New("model not trained")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidLocation  = errors.New("invalid location")
	ErrNoPrediction     = errors.New("no prediction yet")
)

// DataLoadError reports a dataset that could not be read or lacks required columns.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load dataset: %v", e.Err)
	}
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// TrainingError reports a dataset the trainer cannot fit.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string { return fmt.Sprintf("train model: %v", e.Err) }

func (e *TrainingError) Unwrap() error { return e.Err }

// PredictionError reports a request the prediction service cannot answer.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return fmt.Sprintf("predict: %v", e.Err) }

func (e *PredictionError) Unwrap() error { return e.Err }
