package queue

import (
	"time"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/progress"
	"github.com/jaki95/audio-resolver/internal/source"
)

// Entry is one queued item. It exclusively owns its descriptor.
type Entry struct {
	ID         string
	Descriptor *source.Descriptor
	Tracker    *progress.Tracker
	EnqueuedAt time.Time
}

// Info is the JSON view of an entry.
type Info struct {
	ID         string           `json:"id"`
	Position   int              `json:"position"`
	Query      string           `json:"query"`
	State      string           `json:"state"`
	Metadata   *domain.Metadata `json:"metadata,omitempty"`
	Progress   progress.Event   `json:"progress"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
}

// Page represents one page of the queue listing
type Page struct {
	Entries    []Info `json:"entries"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func (e *Entry) info(position int) Info {
	info := Info{
		ID:         e.ID,
		Position:   position,
		Query:      e.Descriptor.Query().Value(),
		State:      e.Descriptor.State().String(),
		Progress:   e.Tracker.State(),
		EnqueuedAt: e.EnqueuedAt,
	}
	if md, ok := e.Descriptor.Metadata(); ok {
		info.Metadata = &md
	}
	return info
}
