package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/audio-resolver/internal/domain"
)

// fakeTool writes an executable shell script standing in for yt-dlp.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestArgsForURL(t *testing.T) {
	cmd := NewCommand()
	args := cmd.Args(Request{Query: domain.ByURL("https://www.youtube.com/watch?v=abc"), Limit: 1})

	assert.Equal(t, []string{
		"-j", "https://www.youtube.com/watch?v=abc",
		"-f", DefaultFormat,
		"--no-playlist",
	}, args)
}

func TestArgsForSearch(t *testing.T) {
	cmd := NewCommand(WithExtraArgs("--cookies", "c.txt"))

	args := cmd.Args(Request{Query: domain.BySearch("daft punk", 5), Limit: 1})
	assert.Equal(t, []string{
		"--cookies", "c.txt",
		"-j", "ytsearch1:daft punk",
		"-f", DefaultFormat,
		"--no-playlist",
	}, args)

	args = cmd.Args(Request{Query: domain.BySearch("daft punk", 5)})
	assert.Contains(t, args, "ytsearch5:daft punk")
}

func TestArgsForPlaylist(t *testing.T) {
	cmd := NewCommand(WithFormat("bestaudio"))
	args := cmd.Args(Request{Query: domain.ByURL("https://www.youtube.com/playlist?list=PL1"), Playlist: true})

	assert.Equal(t, []string{
		"-j", "--flat-playlist",
		"https://www.youtube.com/playlist?list=PL1",
		"-f", "bestaudio",
	}, args)
	assert.NotContains(t, args, "--no-playlist")
}

func TestInvokeSplitsOutput(t *testing.T) {
	tool := fakeTool(t, `printf '{"url":"a"}\n\n   \n{"url":"b"}\n'`)
	cmd := NewCommand(WithProgram(tool))

	out, err := cmd.Invoke(context.Background(), Request{Query: domain.ByURL("https://example.com/x")})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, `{"url":"a"}`, string(out[0]))
	assert.Equal(t, `{"url":"b"}`, string(out[1]))
}

func TestInvokeNonZeroExit(t *testing.T) {
	tool := fakeTool(t, `echo "ERROR: no video formats found" >&2; exit 1`)
	cmd := NewCommand(WithProgram(tool))

	_, err := cmd.Invoke(context.Background(), Request{Query: domain.BySearch("asdkfjasdkfj", 1), Limit: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolFailed)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "ERROR: no video formats found", toolErr.Stderr)
}

func TestInvokeMissingTool(t *testing.T) {
	cmd := NewCommand(WithProgram("definitely-not-an-installed-extractor"))

	_, err := cmd.Invoke(context.Background(), Request{Query: domain.ByURL("https://example.com/x")})
	assert.ErrorIs(t, err, ErrToolMissing)
	assert.NotErrorIs(t, err, ErrToolFailed)
}

func TestAvailable(t *testing.T) {
	missing := NewCommand(WithProgram("definitely-not-an-installed-extractor"))
	assert.Equal(t, "definitely-not-an-installed-extractor", missing.Program())
	assert.ErrorIs(t, missing.Available(), ErrToolMissing)

	present := NewCommand(WithProgram(fakeTool(t, `exit 0`)))
	assert.NoError(t, present.Available())
}

func TestExtractNoResults(t *testing.T) {
	tool := fakeTool(t, `exit 0`)
	cmd := NewCommand(WithProgram(tool))

	_, err := Extract(context.Background(), cmd, Request{Query: domain.BySearch("nothing", 1), Limit: 1})
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), "nothing")
}

func TestExtractDecodes(t *testing.T) {
	tool := fakeTool(t, `echo '{"url":"https://cdn.example/a","title":"Song","uploader":"Band","duration":200}'`)
	cmd := NewCommand(WithProgram(tool))

	records, err := Extract(context.Background(), cmd, Request{Query: domain.BySearch("song", 1), Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Song", records[0].Metadata.Title)
	assert.Equal(t, "Band", records[0].Metadata.Artist)
}
