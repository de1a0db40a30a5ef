package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lborres/agenda"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The remote services refused or failed the request
	ExitCommandError = 2 // Bad flags, config or storage
	ExitNavigation   = 3 // The session does not allow the command (login first, already logged in)
)

// Error codes of the JSON envelope
const (
	CodeNavigation = "E001"
	CodeRemote     = "E002"
	CodeValidation = "E003"
	CodeCommand    = "E004"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode picks the envelope code for err
func errorCode(err error) string {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.Code == ExitNavigation:
		return CodeNavigation
	case errors.Is(err, agenda.ErrEmailRequired),
		errors.Is(err, agenda.ErrPasswordRequired),
		errors.Is(err, agenda.ErrNameRequired),
		errors.Is(err, agenda.ErrInvalidEntity):
		return CodeValidation
	case errors.Is(err, agenda.ErrRemoteCallFailed),
		errors.Is(err, agenda.ErrMalformedResponse):
		return CodeRemote
	default:
		return CodeCommand
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs data as a JSON envelope, or the text lines otherwise.
// Without lines, text output prints data with %v.
func (f *OutputFormatter) Success(data any, lines ...string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if len(lines) == 0 {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(f.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// Error outputs err in the configured format
func (f *OutputFormatter) Error(err error) error {
	code := errorCode(err)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: err.Error(),
			},
		})
	}

	_, werr := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, err)
	return werr
}
