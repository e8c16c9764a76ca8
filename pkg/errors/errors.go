// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown       = "UNKNOWN_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeUploadError   = "UPLOAD_ERROR"
	CodeDownloadError = "DOWNLOAD_ERROR"
	CodeAnalysisError = "ANALYSIS_ERROR"
	CodeEmptyFile     = "EMPTY_FILE"
	CodeParseError    = "PARSE_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeTimeout       = "TIMEOUT_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConfigError   = "CONFIG_ERROR"

	// CodeInstrumentationBug marks a contract violation by the instrumented
	// program or a caller of the core (null names, double teardown, event
	// after teardown, addNode of an existing name, addEdge against a
	// missing vertex). These are never recoverable; the core aborts.
	CodeInstrumentationBug = "INSTRUMENTATION_BUG"
	// CodeRecoverableIO marks an unreadable or malformed recorded event log
	// (internal/eventlog); the replay stops with this error. A missing or
	// unreadable parallel-hints file is not returned as an error: teardown
	// logs a warning and continues without parallelism hints.
	CodeRecoverableIO = "RECOVERABLE_IO"
	// CodeAlgorithmicPrecondition marks an s-t cut invoked with a missing
	// source or sink vertex, which includes any s-t cut of an empty graph.
	// Hard failure. The global cut accepts an empty graph and returns 0.
	CodeAlgorithmicPrecondition = "ALGORITHMIC_PRECONDITION"
	// CodeOverflow marks edge-weight arithmetic that would exceed 2^63.
	CodeOverflow = "OVERFLOW"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrDatabaseError = New(CodeDatabaseError, "database error")
	ErrUploadError   = New(CodeUploadError, "upload error")
	ErrDownloadError = New(CodeDownloadError, "download error")
	ErrAnalysisError = New(CodeAnalysisError, "analysis error")
	ErrEmptyFile     = New(CodeEmptyFile, "empty file")
	ErrParseError    = New(CodeParseError, "parse error")
	ErrInvalidInput  = New(CodeInvalidInput, "invalid input")
	ErrTimeout       = New(CodeTimeout, "operation timeout")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrConfigError   = New(CodeConfigError, "configuration error")

	ErrInstrumentationBug      = New(CodeInstrumentationBug, "instrumentation contract violation")
	ErrRecoverableIO           = New(CodeRecoverableIO, "recoverable I/O error")
	ErrAlgorithmicPrecondition = New(CodeAlgorithmicPrecondition, "algorithmic precondition violated")
	ErrOverflow                = New(CodeOverflow, "edge weight overflow")
)

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsUploadError checks if the error is an upload error.
func IsUploadError(err error) bool {
	return errors.Is(err, ErrUploadError)
}

// IsDownloadError checks if the error is a download error.
func IsDownloadError(err error) bool {
	return errors.Is(err, ErrDownloadError)
}

// IsAnalysisError checks if the error is an analysis error.
func IsAnalysisError(err error) bool {
	return errors.Is(err, ErrAnalysisError)
}

// IsEmptyFileError checks if the error is an empty file error.
func IsEmptyFileError(err error) bool {
	return errors.Is(err, ErrEmptyFile)
}

// IsInstrumentationBug checks if the error is an instrumentation contract
// violation.
func IsInstrumentationBug(err error) bool {
	return GetErrorCode(err) == CodeInstrumentationBug
}

// IsRecoverableIO checks if the error is a recoverable I/O error.
func IsRecoverableIO(err error) bool {
	return GetErrorCode(err) == CodeRecoverableIO
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ErrorInfo provides error information mapping (compatible with Python version).
var ErrorInfo = map[string]string{
	"DatabaseError": CodeDatabaseError,
	"UploadError":   CodeUploadError,
	"DownloadError": CodeDownloadError,
	"AnalysisError": CodeAnalysisError,
	"EmptyFile":     CodeEmptyFile,
}
