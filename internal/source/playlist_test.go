package source

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/transport"
)

const playlistURL = "https://www.youtube.com/playlist?list=PL123"

func playlistRequest() extractor.Request {
	return extractor.Request{Query: domain.ByURL(playlistURL), Playlist: true}
}

func TestPlaylistPreservesOrderAndCaches(t *testing.T) {
	inv := new(MockInvoker)
	inv.On("Invoke", playlistRequest()).Return(jsonLines(
		`{"url":"https://www.youtube.com/watch?v=one","title":"One","uploader":"A","duration":60,"webpage_url":"https://www.youtube.com/watch?v=one"}`,
		`{"url":"https://www.youtube.com/watch?v=two","title":"Two","uploader":"B","duration":61}`,
		`{"url":"https://www.youtube.com/watch?v=three","title":"Three","uploader":"C"}`,
	), nil)

	descriptors, err := NewResolver(inv, nil).Playlist(context.Background(), playlistURL)
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	wantTitles := []string{"One", "Two", "Three"}
	for i, d := range descriptors {
		assert.Equal(t, StateMetadataCached, d.State())

		md, err := d.AuxMetadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, wantTitles[i], md.Title)
	}

	assert.Equal(t, "https://www.youtube.com/watch?v=two", descriptors[1].Query().Value())
	assert.True(t, descriptors[1].Query().IsURL())

	md, _ := descriptors[1].Metadata()
	assert.Equal(t, "https://www.youtube.com/watch?v=two", md.SourceURL)

	md, _ = descriptors[2].Metadata()
	assert.True(t, md.IsLive)

	inv.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestPlaylistBadEntryFailsBatch(t *testing.T) {
	inv := new(MockInvoker)
	inv.On("Invoke", playlistRequest()).Return(jsonLines(
		`{"url":"https://www.youtube.com/watch?v=one","title":"One"}`,
		`{"title":"missing url"}`,
	), nil)

	descriptors, err := NewResolver(inv, nil).Playlist(context.Background(), playlistURL)
	assert.Nil(t, descriptors)
	assert.ErrorIs(t, err, extractor.ErrDecodeFailed)
}

func TestPlaylistToolFailure(t *testing.T) {
	inv := new(MockInvoker)
	inv.On("Invoke", playlistRequest()).Return(nil, &extractor.ToolError{Program: "yt-dlp", Stderr: "playlist does not exist"})

	_, err := NewResolver(inv, nil).Playlist(context.Background(), playlistURL)
	assert.ErrorIs(t, err, extractor.ErrToolFailed)
}

func TestPlaylistEntryResolvesStreamLazily(t *testing.T) {
	srv := audioServer(t)
	entryURL := "https://www.youtube.com/watch?v=one"

	inv := new(MockInvoker)
	inv.On("Invoke", playlistRequest()).Return(jsonLines(
		fmt.Sprintf(`{"url":%q,"title":"Flat Title","duration":60}`, entryURL),
	), nil)
	inv.On("Invoke", single(domain.ByURL(entryURL))).Return(jsonLines(
		fmt.Sprintf(`{"url":%q,"title":"Full Title","duration":60,"protocol":"https"}`, srv.URL+"/a.mp3"),
	), nil)

	descriptors, err := NewResolver(inv, transport.NewBuilder(srv.Client())).Playlist(context.Background(), playlistURL)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	stream, err := d.CreateStream(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(body))

	// Metadata seeded from the playlist stays frozen.
	md, err := d.AuxMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Flat Title", md.Title)
	assert.Equal(t, StateStreamIssued, d.State())

	inv.AssertNumberOfCalls(t, "Invoke", 2)
}
