package lookup

import "context"

// MockSearcher is a mock implementation of Searcher for testing
type MockSearcher struct {
	SearchFunc func(ctx context.Context, terms string) (*Result, error)
}

// Search implements the Searcher interface
func (m *MockSearcher) Search(ctx context.Context, terms string) (*Result, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, terms)
	}
	return nil, ErrNotFound
}

// MockPageReader is a mock implementation of PageReader for testing
type MockPageReader struct {
	ReadFunc func(ctx context.Context, pageURL string) (*Result, error)
}

// Read implements the PageReader interface
func (m *MockPageReader) Read(ctx context.Context, pageURL string) (*Result, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, pageURL)
	}
	return nil, ErrNotFound
}
