package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSSink uploads captures to a Google Cloud Storage bucket
type GCSSink struct {
	client       *storage.Client
	bucket       string
	objectPrefix string
}

// NewGCSSink creates a client from credentialsFile, or from application
// default credentials when it is empty
func NewGCSSink(ctx context.Context, bucketName, objectPrefix, credentialsFile string, opts ...option.ClientOption) (*GCSSink, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSSink{
		client:       client,
		bucket:       bucketName,
		objectPrefix: strings.Trim(objectPrefix, "/"),
	}, nil
}

func (s *GCSSink) objectName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if s.objectPrefix != "" {
		return path.Join(s.objectPrefix, name)
	}
	return name
}

// Create returns a writer that uploads to the named object. The upload is
// committed on Close and cancelled by Abort.
func (s *GCSSink) Create(ctx context.Context, name string) (Capture, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	return &gcsCapture{Writer: w, cancel: cancel}, nil
}

type gcsCapture struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (c *gcsCapture) Close() error {
	defer c.cancel()
	return c.Writer.Close()
}

// Abort cancels the upload before closing, so the object is never created.
func (c *gcsCapture) Abort() error {
	c.cancel()
	if err := c.Writer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Exists checks if an object exists
func (s *GCSSink) Exists(ctx context.Context, name string) bool {
	_, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).Attrs(ctx)
	return err == nil
}

// List lists objects under the sink's prefix whose base name starts with prefix
func (s *GCSSink) List(ctx context.Context, prefix string) ([]string, error) {
	query := &storage.Query{Prefix: s.objectName(prefix)}

	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Skip directories (objects ending with /)
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		results = append(results, path.Base(attrs.Name))
	}
	return results, nil
}

// Close closes the GCS client
func (s *GCSSink) Close() error {
	return s.client.Close()
}
