// Package queue is the in-memory play queue that owns resolved sources and
// reports their progress.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/lookup"
	"github.com/jaki95/audio-resolver/internal/progress"
	"github.com/jaki95/audio-resolver/internal/race"
	"github.com/jaki95/audio-resolver/internal/source"
	"github.com/jaki95/audio-resolver/internal/transport"
)

// Queue keeps entries in playback order
type Queue struct {
	mu      sync.RWMutex
	entries []*Entry
	byID    map[string]*Entry

	pages lookup.PageReader
}

// New creates an empty queue. pages is the out-of-band metadata source used
// by NowPlaying and may be nil.
func New(pages lookup.PageReader) *Queue {
	return &Queue{
		byID:  make(map[string]*Entry),
		pages: pages,
	}
}

// Enqueue appends a descriptor to the end of the queue
func (q *Queue) Enqueue(d *source.Descriptor) *Entry {
	return q.EnqueueAll([]*source.Descriptor{d})[0]
}

// EnqueueAll appends descriptors in order
func (q *Queue) EnqueueAll(descriptors []*source.Descriptor) []*Entry {
	added := make([]*Entry, 0, len(descriptors))
	now := time.Now()

	q.mu.Lock()
	for _, d := range descriptors {
		entry := &Entry{
			ID:         uuid.New().String(),
			Descriptor: d,
			Tracker:    progress.NewTracker(),
			EnqueuedAt: now,
		}
		entry.Tracker.AddListener(logProgress(entry.ID))
		q.entries = append(q.entries, entry)
		q.byID[entry.ID] = entry
		added = append(added, entry)
	}
	q.mu.Unlock()

	slog.Debug("Enqueued sources", "count", len(added))
	return added
}

// Get retrieves an entry by ID
func (q *Queue) Get(id string) (*Entry, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	entry, exists := q.byID[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

// Remove drops an entry and its descriptor
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.byID[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(q.byID, id)
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Clear empties the queue and returns how many entries were dropped
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries)
	q.entries = nil
	q.byID = make(map[string]*Entry)
	return n
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// List lists entries in playback order with pagination
func (q *Queue) List(page, pageSize int) *Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	q.mu.RLock()
	entries := append([]*Entry(nil), q.entries...)
	q.mu.RUnlock()

	total := len(entries)
	result := &Page{
		Entries:    []Info{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return result
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	for i := start; i < end; i++ {
		result.Entries = append(result.Entries, entries[i].info(i))
	}
	return result
}

// Info returns the JSON view of one entry
func (q *Queue) Info(id string) (Info, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for i, e := range q.entries {
		if e.ID == id {
			return e.info(i), nil
		}
	}
	return Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Prepare resolves an entry's metadata. An entry that cannot be resolved
// is discarded from the queue and the error returned.
func (q *Queue) Prepare(ctx context.Context, id string) (domain.Metadata, error) {
	entry, err := q.Get(id)
	if err != nil {
		return domain.Metadata{}, err
	}

	entry.Tracker.Update(progress.StageResolving, "Resolving metadata")
	md, err := entry.Descriptor.AuxMetadata(ctx)
	if err != nil {
		q.failUnlessAbandoned(ctx, entry, err)
		return domain.Metadata{}, err
	}

	entry.Tracker.Update(progress.StageResolved, md.Title)
	return md, nil
}

// NowPlaying returns metadata for an entry, bounded by timeout. The
// extractor and the out-of-band page lookup race under the same bound;
// whichever succeeds first wins and the other is abandoned.
func (q *Queue) NowPlaying(ctx context.Context, id string, timeout time.Duration) (domain.Metadata, error) {
	entry, err := q.Get(id)
	if err != nil {
		return domain.Metadata{}, err
	}

	d := entry.Descriptor
	return race.First[domain.Metadata](ctx,
		race.Timeout[domain.Metadata](timeout, d.AuxMetadata),
		race.Timeout[domain.Metadata](timeout, func(ctx context.Context) (domain.Metadata, error) {
			return q.alternate(ctx, d.Query())
		}),
	)
}

func (q *Queue) alternate(ctx context.Context, query domain.Query) (domain.Metadata, error) {
	if q.pages == nil || !query.IsURL() {
		return domain.Metadata{}, ErrNoAlternate
	}
	res, err := q.pages.Read(ctx, query.Value())
	if err != nil {
		return domain.Metadata{}, err
	}
	return res.Metadata(), nil
}

// Stream opens the entry's audio stream and hands it to the caller. When
// resolution or the transport fails the entry is discarded; asking again
// for a stream that was already issued leaves it alone.
func (q *Queue) Stream(ctx context.Context, id string) (transport.Stream, error) {
	entry, err := q.Get(id)
	if err != nil {
		return nil, err
	}

	entry.Tracker.Update(progress.StageStreaming, "Opening stream")
	stream, err := entry.Descriptor.CreateStream(ctx)
	if errors.Is(err, extractor.ErrUnsupported) {
		return nil, err
	}
	if err != nil {
		q.failUnlessAbandoned(ctx, entry, err)
		return nil, err
	}
	return stream, nil
}

// Finish marks an entry as played through and drops it
func (q *Queue) Finish(id string) error {
	entry, err := q.Get(id)
	if err != nil {
		return err
	}
	entry.Tracker.Update(progress.StageComplete, "Finished")
	return q.Remove(id)
}

// failUnlessAbandoned discards entry unless err only reports that the
// caller stopped waiting; the detached resolution may still succeed.
func (q *Queue) failUnlessAbandoned(ctx context.Context, entry *Entry, err error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		slog.Debug("Caller stopped waiting for queue entry", "id", entry.ID, "error", err)
		return
	}
	q.fail(entry, err)
}

func (q *Queue) fail(entry *Entry, err error) {
	entry.Tracker.SetError(err)
	slog.Warn("Discarding queue entry", "id", entry.ID, "query", entry.Descriptor.Query().String(), "error", err)
	if rmErr := q.Remove(entry.ID); rmErr != nil {
		slog.Debug("Entry already removed", "id", entry.ID)
	}
}

func logProgress(id string) func(progress.Event) {
	return func(e progress.Event) {
		slog.Debug("Queue entry progress", "id", id, "stage", string(e.Stage), "message", e.Message, "bytes", e.Bytes)
	}
}
