package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink writes captures into a directory on the local filesystem
type LocalSink struct {
	outputDir string
}

// NewLocalSink creates the output directory if needed
func NewLocalSink(outputDir string) (*LocalSink, error) {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}
	return &LocalSink{outputDir: outputDir}, nil
}

func (s *LocalSink) path(name string) string {
	return filepath.Join(s.outputDir, filepath.Base(name))
}

const partSuffix = ".part"

// Create writes into a temporary file that replaces the named file on Close
func (s *LocalSink) Create(ctx context.Context, name string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final := s.path(name)
	f, err := os.Create(final + partSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &localCapture{File: f, final: final}, nil
}

type localCapture struct {
	*os.File
	final string
}

func (c *localCapture) Close() error {
	if err := c.File.Close(); err != nil {
		os.Remove(c.File.Name())
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(c.File.Name(), c.final); err != nil {
		os.Remove(c.File.Name())
		return fmt.Errorf("failed to finalize output file: %w", err)
	}
	return nil
}

func (c *localCapture) Abort() error {
	c.File.Close()
	if err := os.Remove(c.File.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial file: %w", err)
	}
	return nil
}

// Exists checks if a file exists
func (s *LocalSink) Exists(ctx context.Context, name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// List lists files in the output directory matching a prefix
func (s *LocalSink) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() || strings.HasSuffix(file.Name(), partSuffix) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		results = append(results, file.Name())
	}
	return results, nil
}

func (s *LocalSink) Close() error {
	return nil
}
