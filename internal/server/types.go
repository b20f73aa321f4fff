package server

import (
	"time"

	"github.com/jaki95/audio-resolver/internal/progress"
)

// QueryRequest carries raw user input: a URL or search terms
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// Announcement is what a front-end shows for a track
type Announcement struct {
	Title     string        `json:"title"`
	Artist    string        `json:"artist,omitempty"`
	SourceURL string        `json:"sourceUrl,omitempty"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	IsLive    bool          `json:"isLive,omitempty"`
}

// EnqueueResponse reports what was added to the queue
type EnqueueResponse struct {
	Message      string        `json:"message"`
	Entries      []string      `json:"entries"`
	Announcement *Announcement `json:"announcement,omitempty"`
}

// NowPlayingResponse describes one queue entry
type NowPlayingResponse struct {
	ID           string         `json:"id"`
	Announcement Announcement   `json:"announcement"`
	Progress     progress.Event `json:"progress"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
