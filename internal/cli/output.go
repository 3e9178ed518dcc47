package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Check failure (a scenario disagreed with its baseline or expectations)
	ExitCommandError = 2 // Command error (invalid paths, malformed scenarios, bad config, etc.)
)

// Error codes reported in the JSON envelope.
const (
	ErrCodeCheckFailed       = "E_CHECK_FAILED"        // One or more scenarios failed
	ErrCodeScenariosNotFound = "E_SCENARIOS_NOT_FOUND" // Scenarios directory missing
	ErrCodeScenarioLoad      = "E_SCENARIO_LOAD"       // Scenario file could not be parsed
	ErrCodeInvalidFilter     = "E_INVALID_FILTER"      // Bad --filter pattern
	ErrCodeConfig            = "E_CONFIG"              // Config could not be loaded
	ErrCodeFixture           = "E_FIXTURE"             // Fixture could not be opened
	ErrCodeScenarioError     = "E_SCENARIO_ERROR"      // Scenario could not be checked
	ErrCodeDatabase          = "E_DATABASE"            // Database could not be opened
	ErrCodeSeedFailed        = "E_SEED_FAILED"         // Seeding or counting failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// commandError writes the error envelope for err when format is json and
// returns err for the exit code. Text output is left to main.
func commandError(w io.Writer, format, code string, err error) error {
	if format != "json" {
		return err
	}
	message, details := err.Error(), any(nil)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		message = exitErr.Message
		if exitErr.Err != nil {
			details = exitErr.Err.Error()
		}
	}
	f := &OutputFormatter{Format: format, Writer: w}
	_ = f.Error(code, message, details)
	return err
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose output goes here so JSON on Writer stays clean (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // payload, also set on check failures
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // ErrCode* constant
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Failure outputs a result that failed its checks. JSON output keeps the
// payload next to the error.
func (f *OutputFormatter) Failure(data any, code, message string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
