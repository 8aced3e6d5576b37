package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFilename(t *testing.T) {
	got := normalizeFilename("Weekly Standup (final).mp4")
	assert.True(t, strings.HasPrefix(got, "Weekly_Standup_final_"), got)
	assert.True(t, strings.HasSuffix(got, ".mp4"), got)
	assert.NotContains(t, got, " ")
	assert.NotContains(t, got, "(")

	// nothing safe left over falls back to a generic name
	got = normalizeFilename("???.webm")
	assert.True(t, strings.HasPrefix(got, "recording_"), got)
	assert.True(t, strings.HasSuffix(got, ".webm"), got)
}

func TestNormalizeFilenameIsUnique(t *testing.T) {
	a := normalizeFilename("clip.mp4")
	b := normalizeFilename("clip.mp4")
	// same second collides, but both carry the timestamp suffix
	assert.True(t, strings.HasPrefix(a, "clip_"))
	assert.True(t, strings.HasPrefix(b, "clip_"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", contentType("a.MP4"))
	assert.Equal(t, "video/webm", contentType("a.webm"))
	assert.Equal(t, "video/quicktime", contentType("a.mov"))
	assert.Equal(t, "audio/ogg", contentType("a.ogg"))
	assert.Equal(t, "application/octet-stream", contentType("a.bin"))
}

func TestLocalSaveRecording(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(filepath.Join(dir, "archive"))

	src, err := os.CreateTemp(dir, "egress-*.mp4")
	require.NoError(t, err)
	_, err = src.WriteString("not really video")
	require.NoError(t, err)
	_, err = src.Seek(0, 0)
	require.NoError(t, err)
	defer src.Close()

	path, err := ls.SaveRecording(src, "occ-1 room recording.mp4")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not really video", string(data))
	assert.NotContains(t, filepath.Base(path), " ")
}
