package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jaki95/audio-resolver/config"
)

// Capture is one capture being written. Close commits it; Abort discards
// whatever was written so no partial capture is left behind.
type Capture interface {
	io.WriteCloser
	Abort() error
}

// Sink is where captured audio streams are written.
type Sink interface {
	// Create opens the named capture. It only becomes visible once Close
	// returns without error.
	Create(ctx context.Context, name string) (Capture, error)

	Exists(ctx context.Context, name string) bool

	// List returns capture names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// New builds the sink selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Sink, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalSink(cfg.OutputDir)
	case "gcs":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("gcs storage requires a bucket name")
		}
		return NewGCSSink(ctx, cfg.BucketName, cfg.ObjectPrefix, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// SafeName turns a track title into a file name without path separators
// or characters most filesystems reject.
func SafeName(title string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "-",
	)
	name := strings.TrimSpace(replacer.Replace(title))
	name = strings.Trim(name, ".")
	if name == "" {
		return "audio"
	}
	return name
}
