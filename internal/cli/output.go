package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // rejected operation: validation, conflict, not found
	ExitCommandError = 2 // bad flags, configuration or storage failure
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

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches code and message to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without one are
// failures.
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

// printer renders results as text or as indented JSON.
type printer struct {
	format string
	out    io.Writer
}

// emit writes data as JSON, or calls text for the text format.
func (p printer) emit(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func (p printer) events(events []scheduler.Event) error {
	return p.emit(persistence.ToRecords(events), func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "no events")
			return
		}
		for _, event := range events {
			writeEventLine(w, event)
		}
	})
}

func (p printer) event(event scheduler.Event) error {
	return p.emit(persistence.ToRecord(event), func(w io.Writer) {
		writeEventLine(w, event)
	})
}

func (p printer) message(data any, format string, args ...any) error {
	return p.emit(data, func(w io.Writer) {
		fmt.Fprintf(w, format+"\n", args...)
	})
}

func (p printer) names(names []string, empty string) error {
	if names == nil {
		names = []string{}
	}
	return p.emit(names, func(w io.Writer) {
		if len(names) == 0 {
			fmt.Fprintln(w, empty)
			return
		}
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
	})
}

func writeEventLine(w io.Writer, event scheduler.Event) {
	resources := "-"
	if event.HasResources() {
		resources = strings.Join(event.Resources, ", ")
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", event.Name, event.Start, event.End, resources)
}
