package extractor

import (
	"errors"
	"fmt"
)

var (
	ErrToolMissing     = errors.New("extractor not installed")
	ErrToolFailed      = errors.New("extractor failed")
	ErrDecodeFailed    = errors.New("malformed extractor output")
	ErrNoResults       = errors.New("no results")
	ErrUnsupported     = errors.New("unsupported operation")
	ErrTransportFailed = errors.New("transport failed")
)

// ToolError wraps a non-zero exit of the extractor together with what it
// printed on stderr.
type ToolError struct {
	Program string
	Stderr  string
	wrapped error
}

func (e *ToolError) Error() string {
	stderr := e.Stderr
	if stderr == "" {
		stderr = "<no error message>"
	}
	return fmt.Sprintf("%s failed with non-zero status code: %s", e.Program, stderr)
}

func (e *ToolError) Unwrap() error {
	return e.wrapped
}

// Is lets errors.Is(err, ErrToolFailed) match any ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

// Describe turns a resolution error into the single message shown to users.
// Content problems and environment problems read differently on purpose.
func Describe(err error) string {
	var toolErr *ToolError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoResults):
		return "No matches found"
	case errors.Is(err, ErrToolMissing):
		return "Media extractor is not installed on the server"
	case errors.As(err, &toolErr):
		return "Media extractor failed: " + toolErr.Stderr
	case errors.Is(err, ErrDecodeFailed):
		return "Media extractor returned output that could not be read"
	case errors.Is(err, ErrTransportFailed):
		return "Could not open the audio stream"
	case errors.Is(err, ErrUnsupported):
		return "That operation is not supported for this track"
	default:
		return "Something went wrong while loading the track"
	}
}
