package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeIndexFailed  = "INDEX_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeSinkFailed   = "OUTPUT_FAILED"
	ErrCodeRunActive    = "RUN_ACTIVE"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Stages a run can fail in.
const (
	StageIndex   = "index"
	StageCollect = "collect"
	StageSession = "session"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// NavigationError is returned once every navigation attempt for a URL has
// failed. Err is the cause of the last attempt.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: navigation to %s failed after %d attempt(s): %v",
		e.Code(), e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Code maps the last cause to an error code.
func (e *NavigationError) Code() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeNavigation
}

// FatalRunError aborts a whole run. No records are produced.
type FatalRunError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *FatalRunError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s: run aborted at %s stage after %d attempt(s): %v",
			ErrCodeIndexFailed, e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: run aborted at %s stage: %v", ErrCodeIndexFailed, e.Stage, e.Err)
}

func (e *FatalRunError) Unwrap() error {
	return e.Err
}

// NewFatalRunError wraps err for the given stage, lifting the attempt count
// out of a NavigationError when there is one.
func NewFatalRunError(stage string, err error) *FatalRunError {
	fe := &FatalRunError{Stage: stage, Err: err}
	var navErr *NavigationError
	if errors.As(err, &navErr) {
		fe.Attempts = navErr.Attempts
	}
	return fe
}

// ToDetail converts any error into an API-facing ErrorDetail.
func ToDetail(err error) *ErrorDetail {
	var fe *FatalRunError
	if errors.As(err, &fe) {
		return &ErrorDetail{Code: ErrCodeIndexFailed, Message: fe.Error()}
	}
	var ne *NavigationError
	if errors.As(err, &ne) {
		return &ErrorDetail{Code: ne.Code(), Message: ne.Error()}
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}
