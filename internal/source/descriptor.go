// Package source holds the lazily resolved audio source descriptors handed
// to the play queue.
//
// A Descriptor runs the extractor at most once. Metadata requests and stream
// creation share that single run no matter the order or concurrency in which
// they arrive, and its outcome (record or error) is kept for the lifetime of
// the descriptor.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/transport"
)

// State is the resolution progress of a Descriptor. It only moves forward.
type State int

const (
	StateUnresolved State = iota
	StateMetadataCached
	StateStreamIssued
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateMetadataCached:
		return "metadata_cached"
	case StateStreamIssued:
		return "stream_issued"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolver carries what every descriptor needs to resolve itself. It is
// shared read-only between descriptors.
type Resolver struct {
	invoker extractor.Invoker
	builder *transport.Builder
}

// NewResolver creates a resolver. A nil builder means a builder over
// http.DefaultClient.
func NewResolver(invoker extractor.Invoker, builder *transport.Builder) *Resolver {
	if builder == nil {
		builder = transport.NewBuilder(http.DefaultClient)
	}
	return &Resolver{invoker: invoker, builder: builder}
}

// Descriptor creates an unresolved descriptor for q.
func (r *Resolver) Descriptor(q domain.Query) *Descriptor {
	return &Descriptor{query: q, resolver: r}
}

// WithMetadata creates a descriptor whose metadata is already known, for
// example from a faster out-of-band lookup. The metadata is frozen: a later
// extractor run only supplies the stream.
func (r *Resolver) WithMetadata(q domain.Query, md domain.Metadata) *Descriptor {
	return &Descriptor{
		query:    q,
		resolver: r,
		state:    StateMetadataCached,
		metadata: &md,
	}
}

// resolution is one extractor run. done is closed once record or err is set.
type resolution struct {
	done   chan struct{}
	record *extractor.Record
	err    error
}

func (r *resolution) wait(ctx context.Context) (*extractor.Record, error) {
	select {
	case <-r.done:
		return r.record, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Descriptor is one resolvable audio item. It is owned by a single queue
// entry; dropping it releases everything it holds.
type Descriptor struct {
	query    domain.Query
	resolver *Resolver

	mu       sync.Mutex
	state    State
	metadata *domain.Metadata
	res      *resolution
	issuing  bool
}

func (d *Descriptor) Query() domain.Query {
	return d.query
}

func (d *Descriptor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Metadata returns the cached metadata without resolving.
func (d *Descriptor) Metadata() (domain.Metadata, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.metadata == nil {
		return domain.Metadata{}, false
	}
	return *d.metadata, true
}

// AuxMetadata returns the item's metadata, resolving it on first use.
// Concurrent callers share one extractor run; ctx only bounds how long this
// caller waits for it.
func (d *Descriptor) AuxMetadata(ctx context.Context) (domain.Metadata, error) {
	d.mu.Lock()
	if d.metadata != nil {
		md := *d.metadata
		d.mu.Unlock()
		return md, nil
	}
	res := d.startLocked(ctx)
	d.mu.Unlock()

	if _, err := res.wait(ctx); err != nil {
		return domain.Metadata{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.metadata, nil
}

// CreateStream resolves the item if needed and opens its audio stream.
// Ownership of the stream passes to the caller. Only one stream is ever
// issued per descriptor.
func (d *Descriptor) CreateStream(ctx context.Context) (transport.Stream, error) {
	d.mu.Lock()
	if d.state == StateStreamIssued || d.issuing {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: stream already issued for %s", extractor.ErrUnsupported, d.query)
	}
	d.issuing = true
	res := d.startLocked(ctx)
	d.mu.Unlock()

	stream, err := d.openStream(ctx, res)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.issuing = false
	if err != nil {
		return nil, err
	}
	d.state = StateStreamIssued
	return stream, nil
}

func (d *Descriptor) openStream(ctx context.Context, res *resolution) (transport.Stream, error) {
	rec, err := res.wait(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := d.resolver.builder.Build(ctx, rec)
	if err != nil {
		slog.Error("Failed to open stream", "query", d.query.String(), "error", err)
		return nil, err
	}
	return stream, nil
}

// Create is the synchronous stream constructor. Resolution always needs the
// extractor subprocess, so it is not supported.
func (d *Descriptor) Create() (transport.Stream, error) {
	return nil, fmt.Errorf("%w: synchronous stream creation", extractor.ErrUnsupported)
}

// startLocked returns the descriptor's resolution, starting it if this is
// the first demand. The run is detached from ctx so an abandoned caller does
// not cancel it for everyone else. d.mu must be held.
func (d *Descriptor) startLocked(ctx context.Context) *resolution {
	if d.res != nil {
		return d.res
	}
	res := &resolution{done: make(chan struct{})}
	d.res = res
	go d.resolve(context.WithoutCancel(ctx), res)
	return res
}

func (d *Descriptor) resolve(ctx context.Context, res *resolution) {
	slog.Debug("Resolving source", "query", d.query.String())

	records, err := extractor.Extract(ctx, d.resolver.invoker, extractor.Request{Query: d.query, Limit: 1})

	d.mu.Lock()
	if err != nil {
		res.err = err
		slog.Warn("Source resolution failed", "query", d.query.String(), "error", err)
	} else {
		res.record = records[0]
		if d.metadata == nil {
			md := res.record.Metadata
			d.metadata = &md
		}
		if d.state == StateUnresolved {
			d.state = StateMetadataCached
		}
		slog.Info("Resolved source", "query", d.query.String(), "title", d.metadata.Title, "transport", res.record.Transport.String())
	}
	d.mu.Unlock()

	close(res.done)
}
