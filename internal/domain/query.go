package domain

import (
	"fmt"
	"strings"
)

// QueryKind tells a URL query apart from a free-text search.
type QueryKind int

const (
	QueryURL QueryKind = iota
	QuerySearch
)

func (k QueryKind) String() string {
	switch k {
	case QueryURL:
		return "url"
	case QuerySearch:
		return "search"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// Query is what a user asked to play. It is immutable once built.
type Query struct {
	kind  QueryKind
	value string
	count int
}

// ByURL builds a query for a direct media URL.
func ByURL(url string) Query {
	return Query{kind: QueryURL, value: strings.TrimSpace(url)}
}

// BySearch builds a search query that should yield at most count results.
// A count below one is treated as one.
func BySearch(terms string, count int) Query {
	if count < 1 {
		count = 1
	}
	return Query{kind: QuerySearch, value: strings.TrimSpace(terms), count: count}
}

// ParseQuery classifies raw user input. Anything that looks like a URL is
// played directly, everything else is searched for.
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if isURL(input) {
		return ByURL(input)
	}
	return BySearch(input, 1)
}

func (q Query) Kind() QueryKind { return q.kind }

// Value is the URL or the search terms.
func (q Query) Value() string { return q.value }

// Count is the requested number of search results; zero for URL queries.
func (q Query) Count() int { return q.count }

func (q Query) IsURL() bool { return q.kind == QueryURL }

func (q Query) IsValid() bool { return q.value != "" }

func (q Query) String() string {
	if q.kind == QuerySearch {
		return fmt.Sprintf("search(%q, %d)", q.value, q.count)
	}
	return q.value
}

// IsPlaylistURL reports whether input is a URL naming a playlist.
func IsPlaylistURL(input string) bool {
	input = strings.TrimSpace(input)
	return isURL(input) && (strings.Contains(input, "?list=") || strings.Contains(input, "&list="))
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}
