// Package types defines core data types and error codes for the manuscript length estimator.
package types

import (
	"errors"
	"time"
)

// Method selects how the main-text word count is computed.
type Method string

const (
	// MethodDetex slices the detexed text after the title block.
	MethodDetex Method = "detex"
	// MethodWordcount runs the typesetting round-trip with the wordcount macro.
	MethodWordcount Method = "wordcount"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Var is a literal substitution applied to resolved figure filenames.
type Var struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Journal is a length-accounting profile.
type Journal struct {
	Name  string `json:"name" yaml:"name"`
	Limit int    `json:"limit" yaml:"limit"`
}

// Config is the resolved configuration for one run.
type Config struct {
	Method         Method         `json:"method" yaml:"method"`
	Figs           string         `json:"figs" yaml:"figs"`             // image metrics backend: identify, gs or native
	ScaleFigs      float64        `json:"scale_figs" yaml:"scale_figs"` // figure word-count scale factor
	Journal        string         `json:"journal" yaml:"journal"`
	Journals       map[string]int `json:"journals,omitempty" yaml:"journals,omitempty"` // extra or overriding word limits
	Env            []string       `json:"env" yaml:"env"`                               // environments detex ignores
	Vars           []Var          `json:"vars,omitempty" yaml:"vars,omitempty"`
	LaTeX          string         `json:"latex" yaml:"latex"`
	BibTeX         string         `json:"bibtex" yaml:"bibtex"`
	Detex          string         `json:"detex" yaml:"detex"`
	Identify       string         `json:"identify" yaml:"identify"`
	Ghostscript    string         `json:"ghostscript" yaml:"ghostscript"`
	WordcountMacro string         `json:"wordcount_macro" yaml:"wordcount_macro"` // path to wordcount.tex; empty searches next to the document
	WordcountEnvs  []string       `json:"wordcount_envs" yaml:"wordcount_envs"`   // environments commented out before the wordcount pass
	Timeout        time.Duration  `json:"-" yaml:"-"`                             // per external invocation
	Jobs           int            `json:"jobs" yaml:"jobs"`
	KeepGoing      bool           `json:"keep_going" yaml:"keep_going"`
	Format         Format         `json:"format" yaml:"format"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
	LogFile        string         `json:"log_file" yaml:"log_file"`
}

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	ErrMalformedDocument  ErrorCode = "MALFORMED_DOCUMENT"
	ErrAmbiguousReference ErrorCode = "AMBIGUOUS_REFERENCE"
	ErrConfig             ErrorCode = "CONFIG_ERROR"
	ErrExternalTool       ErrorCode = "EXTERNAL_TOOL_FAILED"
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
)

// Process exit codes, one per error family.
const (
	ExitOK                = 0
	ExitInternal          = 1
	ExitConfig            = 2
	ExitMalformedDocument = 3
	ExitAmbiguous         = 4
	ExitExternalTool      = 5
)

// AppError is an error with a code, a message and optional details.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CodeOf(err) {
	case ErrConfig:
		return ExitConfig
	case ErrMalformedDocument:
		return ExitMalformedDocument
	case ErrAmbiguousReference, ErrFileNotFound:
		return ExitAmbiguous
	case ErrExternalTool:
		return ExitExternalTool
	default:
		return ExitInternal
	}
}

// DocumentError attaches the offending document to a failure.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
