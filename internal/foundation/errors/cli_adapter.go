package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter turns command errors into a message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	stderr  io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter returns an adapter writing to os.Stderr. A nil logger
// uses slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, stderr: os.Stderr, exit: os.Exit}
}

// ExitCodeFor returns 0 for nil, the category's code for classified errors
// and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return routeFor(err).exitCode
}

// FormatError renders err for a terminal. Input problems show their message;
// internal failures stay terse unless verbose.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	switch {
	case !ok:
		return "Error: " + err.Error()
	case a.verbose:
		return c.Error()
	}

	switch c.category {
	case CategoryConfig, CategoryValidation, CategoryNotFound:
		return "Error: " + c.message
	case CategoryInternal, CategoryRuntime:
		return "Internal error occurred (use -v for details)"
	}
	if c.cause != nil {
		return fmt.Sprintf("Error: %s: %v", c.message, c.cause)
	}
	return "Error: " + c.message
}

// HandleError prints err and terminates the process with its exit code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.log(err)
	fmt.Fprintln(a.stderr, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// log records fatal and unclassified errors, and everything when verbose.
func (a *CLIErrorAdapter) log(err error) {
	c, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	if !a.verbose && c.severity != SeverityFatal {
		return
	}
	attrs := []slog.Attr{slog.String("category", string(c.category))}
	if c.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), severityLevel(c.severity), c.message, attrs...)
}

func severityLevel(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
