package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/uuid"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The action was refused or failed
	ExitCommandError = 2 // Bad arguments, config or store connection
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success prints data as JSON, or calls text for the text format.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error prints err in the configured format and returns it for the exit code.
func (f *OutputFormatter) Error(err error) error {
	if f.Format == "json" {
		if werr := writeJSON(f.Writer, CLIResponse{Status: "error", Error: err.Error()}); werr != nil {
			return werr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUserID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid user id %q", arg), domain.ErrInvalidUserID)
	}
	return id, nil
}

func formatEdge(e *domain.Edge) string {
	if e == nil {
		return "none"
	}
	return fmt.Sprintf("%s (v%d, updated %s)", e.Status, e.Version, e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"))
}
