package extractor

import (
	"encoding/json"
	"fmt"
)

// Decode parses extractor output lines into records, in order. A single
// malformed line fails the whole batch.
func Decode(lines [][]byte) ([]*Record, error) {
	records := make([]*Record, 0, len(lines))
	for i, line := range lines {
		var out output
		if err := json.Unmarshal(line, &out); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDecodeFailed, i+1, err)
		}
		if out.URL == nil || *out.URL == "" {
			return nil, fmt.Errorf("%w: line %d: missing url", ErrDecodeFailed, i+1)
		}
		records = append(records, out.record())
	}

	if len(records) == 0 {
		return nil, ErrNoResults
	}

	return records, nil
}
