package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube searches videos through the YouTube Data API v3.
type YouTube struct {
	service *youtube.Service
	limiter *rate.Limiter
}

// NewYouTube creates a Data API client. baseURL overrides the API endpoint
// and client the HTTP client; both may be empty. Requests are limited to
// requestsPerSecond.
func NewYouTube(ctx context.Context, apiKey, baseURL string, requestsPerSecond float64, client *http.Client) (*YouTube, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &YouTube{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Search returns the first video result for terms.
func (y *YouTube) Search(ctx context.Context, terms string) (*Result, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := y.service.Search.List([]string{"id", "snippet"}).
		Q(terms).
		Type("video").
		MaxResults(1)

	resp, err := call.Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			slog.Warn("YouTube search rejected", "code", apiErr.Code, "message", apiErr.Message)
			return nil, fmt.Errorf("youtube search failed with status %d: %w", apiErr.Code, err)
		}
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		res := &Result{
			VideoID: item.Id.VideoId,
			URL:     WatchURL(item.Id.VideoId),
		}
		if item.Snippet != nil {
			res.Title = item.Snippet.Title
			if th := item.Snippet.Thumbnails; th != nil && th.High != nil {
				res.Thumbnail = th.High.Url
			}
		}
		slog.Debug("YouTube search hit", "terms", terms, "video", res.VideoID)
		return res, nil
	}

	return nil, fmt.Errorf("%w: no videos for '%s'", ErrNotFound, terms)
}
