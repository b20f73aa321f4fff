package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// OpenGraph reads og:title and og:image from a page.
type OpenGraph struct {
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
}

// NewOpenGraph creates a page reader. A nil transport means the default.
func NewOpenGraph(timeout time.Duration, transport http.RoundTripper) *OpenGraph {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenGraph{
		userAgent: defaultUserAgent,
		timeout:   timeout,
		transport: transport,
	}
}

// Read fetches pageURL and returns what its OpenGraph tags say. The page
// fetch keeps running in the background if ctx ends first.
func (o *OpenGraph) Read(ctx context.Context, pageURL string) (*Result, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(1),
		colly.UserAgent(o.userAgent),
	)
	c.SetRequestTimeout(o.timeout)
	if o.transport != nil {
		c.WithTransport(o.transport)
	}

	res := &Result{URL: pageURL, VideoID: VideoID(pageURL)}
	c.OnHTML("head", func(e *colly.HTMLElement) {
		res.Title = meta(e.DOM, "og:title")
		res.Thumbnail = meta(e.DOM, "og:image")
		if res.Title == "" {
			res.Title = strings.TrimSpace(e.DOM.Find("title").First().Text())
		}
		if u := meta(e.DOM, "og:url"); u != "" {
			res.URL = u
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
		}
	}

	if res.Title == "" {
		return nil, fmt.Errorf("%w: no title on %s", ErrNotFound, pageURL)
	}
	return res, nil
}

func meta(head *goquery.Selection, property string) string {
	content := head.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().AttrOr("content", "")
	return strings.TrimSpace(content)
}
