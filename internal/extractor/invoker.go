// Package extractor runs the external media extractor (yt-dlp) and decodes
// its newline-delimited JSON output into records.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/jaki95/audio-resolver/internal/domain"
)

const (
	DefaultProgram = "yt-dlp"

	// DefaultFormat prefers audio-only formats with a real bitrate.
	DefaultFormat = "ba[abr>0][vcodec=none]/best"
)

// Request describes one extractor run.
type Request struct {
	Query domain.Query
	// Limit caps search results; ignored for URL queries.
	Limit int
	// Playlist expands a playlist URL flatly instead of refusing playlists.
	Playlist bool
}

// Invoker runs the extractor and returns its non-empty output lines.
type Invoker interface {
	Invoke(ctx context.Context, req Request) ([][]byte, error)
}

// Command invokes the extractor as a child process.
type Command struct {
	program   string
	format    string
	extraArgs []string
}

// Option configures a Command.
type Option func(*Command)

// WithProgram overrides the executable name or path.
func WithProgram(program string) Option {
	return func(c *Command) {
		if program != "" {
			c.program = program
		}
	}
}

// WithFormat overrides the format filter.
func WithFormat(format string) Option {
	return func(c *Command) {
		if format != "" {
			c.format = format
		}
	}
}

// WithExtraArgs adds arguments placed before the fixed argument set.
func WithExtraArgs(args ...string) Option {
	return func(c *Command) {
		c.extraArgs = append(c.extraArgs, args...)
	}
}

// NewCommand creates an extractor command runner.
func NewCommand(opts ...Option) *Command {
	c := &Command{
		program: DefaultProgram,
		format:  DefaultFormat,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Program returns the executable the command runs.
func (c *Command) Program() string {
	return c.program
}

// Available reports whether the executable can be found, so a missing
// extractor shows up at start-up rather than on the first request.
func (c *Command) Available() error {
	path, err := exec.LookPath(c.program)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, c.program)
	}
	slog.Debug("Found extractor", "program", c.program, "path", path)
	return nil
}

// Args builds the argument list for a request.
func (c *Command) Args(req Request) []string {
	args := append([]string{}, c.extraArgs...)

	if req.Playlist {
		return append(args,
			"-j",
			"--flat-playlist",
			req.Query.Value(),
			"-f", c.format,
		)
	}

	return append(args,
		"-j",
		queryString(req),
		"-f", c.format,
		"--no-playlist",
	)
}

// queryString rewrites search terms into the ytsearchN: pseudo URL.
func queryString(req Request) string {
	q := req.Query
	if q.IsURL() {
		return q.Value()
	}
	n := req.Limit
	if n < 1 {
		n = q.Count()
	}
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("ytsearch%d:%s", n, q.Value())
}

// Invoke runs the extractor to completion and splits stdout into lines.
func (c *Command) Invoke(ctx context.Context, req Request) ([][]byte, error) {
	args := c.Args(req)
	slog.Debug("Running extractor", "program", c.program, "args", args)

	cmd := exec.CommandContext(ctx, c.program, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: could not find executable '%s' on path", ErrToolMissing, c.program)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(stderrBuf.String())
			slog.Error("Extractor failed", "program", c.program, "query", req.Query.String(), "stderr", stderr)
			return nil, &ToolError{Program: c.program, Stderr: stderr, wrapped: err}
		}
		return nil, fmt.Errorf("failed to run %s: %w", c.program, err)
	}

	lines := splitLines(stdoutBuf.Bytes())
	slog.Debug("Extractor finished", "program", c.program, "lines", len(lines))
	return lines, nil
}

func splitLines(out []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Extract runs the extractor and decodes its output in one step.
func Extract(ctx context.Context, inv Invoker, req Request) ([]*Record, error) {
	lines, err := inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := Decode(lines)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return nil, fmt.Errorf("%w for '%s'", ErrNoResults, req.Query.Value())
		}
		return nil, err
	}
	return records, nil
}
