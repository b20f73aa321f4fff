package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/queue"
)

var ErrInvalidQuery = errors.New("invalid query")

// statusFor maps resolution errors onto HTTP statuses. Content problems and
// environment problems get different classes of status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, extractor.ErrNoResults), errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extractor.ErrUnsupported):
		return http.StatusConflict
	case errors.Is(err, extractor.ErrToolMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, extractor.ErrToolFailed),
		errors.Is(err, extractor.ErrDecodeFailed),
		errors.Is(err, extractor.ErrTransportFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return err.Error()
	case errors.Is(err, queue.ErrNotFound):
		return "Queue entry not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out waiting for track information"
	default:
		return extractor.Describe(err)
	}
}
