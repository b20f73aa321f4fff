package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKind  QueryKind
		wantValue string
		wantCount int
	}{
		{
			name:      "https url",
			input:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantKind:  QueryURL,
			wantValue: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:      "www prefix counts as url",
			input:     "  www.youtube.com/watch?v=abc  ",
			wantKind:  QueryURL,
			wantValue: "www.youtube.com/watch?v=abc",
		},
		{
			name:      "free text is a search",
			input:     "never gonna give you up",
			wantKind:  QuerySearch,
			wantValue: "never gonna give you up",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseQuery(tt.input)
			assert.Equal(t, tt.wantKind, q.Kind())
			assert.Equal(t, tt.wantValue, q.Value())
			assert.Equal(t, tt.wantCount, q.Count())
			assert.True(t, q.IsValid())
		})
	}
}

func TestBySearchClampsCount(t *testing.T) {
	assert.Equal(t, 1, BySearch("asdkfjasdkfj", 0).Count())
	assert.Equal(t, 5, BySearch("asdkfjasdkfj", 5).Count())
	assert.False(t, BySearch("   ", 1).IsValid())
}

func TestIsPlaylistURL(t *testing.T) {
	assert.True(t, IsPlaylistURL("https://www.youtube.com/watch?v=abc&list=PL123"))
	assert.True(t, IsPlaylistURL("https://www.youtube.com/playlist?list=PL123"))
	assert.False(t, IsPlaylistURL("https://www.youtube.com/watch?v=abc"))
	assert.False(t, IsPlaylistURL("songs with list= in the name"))
}

func TestTransportForProtocol(t *testing.T) {
	assert.Equal(t, TransportManifest, TransportForProtocol("m3u8_native"))
	assert.Equal(t, TransportDirect, TransportForProtocol("https"))
	assert.Equal(t, TransportDirect, TransportForProtocol("m3u8"))
	assert.Equal(t, TransportDirect, TransportForProtocol(""))
	assert.Equal(t, "hls", TransportManifest.String())
	assert.Equal(t, "http", TransportDirect.String())
}
