package services

import (
	"errors"
	"fmt"
)

// Pipeline error kinds, persisted on failed runs as ReviewRun.ErrorKind.
const (
	ErrKindConfiguration = "configuration" // bad rule/category input, pre-flight
	ErrKindAIProvider    = "ai_provider"   // provider unreachable or rate-limited after retries
	ErrKindAIResponse    = "ai_response"   // unparseable output after one corrective retry
	ErrKindExtraction    = "extraction"    // per-issue evidence failure, recoverable
	ErrKindRender        = "render"        // report artifact write failure
	ErrKindAborted       = "aborted"       // explicit cancellation
)

// PipelineError classifies a review pipeline failure so callers can decide
// retry and reporting behavior without matching message strings.
type PipelineError struct {
	Kind    string
	Message string
	Raw     string // offending payload, set for ai_response errors
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Retryable reports whether re-running the video could succeed without a
// config or input change. Only provider-side failures qualify.
func (e *PipelineError) Retryable() bool {
	return e.Kind == ErrKindAIProvider
}

func NewConfigurationError(format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: ErrKindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func NewAIProviderError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindAIProvider, Message: msg, Err: err}
}

// NewAIResponseError keeps the raw payload so operators can see what the
// model actually said.
func NewAIResponseError(msg, raw string) *PipelineError {
	return &PipelineError{Kind: ErrKindAIResponse, Message: msg, Raw: raw}
}

func NewExtractionError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindExtraction, Message: msg, Err: err}
}

func NewRenderError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindRender, Message: msg, Err: err}
}

func NewAbortedError(msg string) *PipelineError {
	return &PipelineError{Kind: ErrKindAborted, Message: msg}
}

// ErrorKind extracts the pipeline kind from an error chain, or empty when
// the error is not a classified pipeline failure.
func ErrorKind(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given pipeline error kind.
func IsKind(err error, kind string) bool {
	return ErrorKind(err) == kind
}
