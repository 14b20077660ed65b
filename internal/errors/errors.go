package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION" // missing or invalid settings, fatal before any network call
	KindAuth          Kind = "AUTH"          // token exchange failed
	KindDownload      Kind = "DOWNLOAD"      // document retrieval failed
	KindParse         Kind = "PARSE"         // document could not be read
	KindGeneration    Kind = "GENERATION"    // summary inputs missing or API failure
)

// PipelineError is a structured error carrying its kind, a message, optional
// details for logging, and the underlying cause.
type PipelineError struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewConfiguration reports every missing required setting at once.
func NewConfiguration(missing []string) *PipelineError {
	return &PipelineError{
		Kind:    KindConfiguration,
		Message: fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")),
		Details: map[string]any{"missing": missing},
	}
}

// NewInvalidConfig creates a configuration error for a setting that is present but unusable.
func NewInvalidConfig(msg string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindConfiguration,
		Message: msg,
		Err:     err,
	}
}

// NewAuth creates an error for a failed token exchange.
func NewAuth(msg string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindAuth,
		Message: msg,
		Err:     err,
	}
}

// NewProviderAuth creates an error from an identity provider error payload.
// invalid_grant means the refresh token expired or was revoked and the
// operator has to authorize again out of band.
func NewProviderAuth(code, description string, err error) *PipelineError {
	msg := fmt.Sprintf("identity provider returned %s", code)
	if description != "" {
		msg += ": " + description
	}
	if code == "invalid_grant" {
		msg += " (refresh token expired or revoked; re-authorize and update REFRESH_TOKEN)"
	}
	return &PipelineError{
		Kind:    KindAuth,
		Message: msg,
		Details: map[string]any{"error": code, "error_description": description},
		Err:     err,
	}
}

// NewDownloadStatus creates an error for a non-success storage response.
func NewDownloadStatus(status int, body string) *PipelineError {
	return &PipelineError{
		Kind:    KindDownload,
		Message: fmt.Sprintf("unexpected status %d", status),
		Details: map[string]any{"status": status, "body": body},
	}
}

// NewDownload creates an error for a transport or filesystem failure during download.
func NewDownload(msg string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindDownload,
		Message: msg,
		Err:     err,
	}
}

// NewParse creates an error for a document that cannot be opened or decoded.
func NewParse(path string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindParse,
		Message: fmt.Sprintf("cannot parse document %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewGeneration creates an error for a failed summary generation.
func NewGeneration(msg string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindGeneration,
		Message: msg,
		Err:     err,
	}
}

// NewMissingInput creates a generation error for an unreadable input file.
func NewMissingInput(path string, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindGeneration,
		Message: fmt.Sprintf("cannot read input %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// Is checks if err is, or wraps, a PipelineError with the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the outermost PipelineError in err's chain,
// or the empty kind if there is none.
func KindOf(err error) Kind {
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Kind
	}
	return ""
}
