package queue

import "errors"

var (
	ErrNotFound    = errors.New("queue entry not found")
	ErrNoAlternate = errors.New("no out-of-band metadata source")
)
