package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/scandrop/types"
)

func TestFileRefFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Photo.PNG")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	ref, err := FileRefFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "Photo.PNG", ref.Name)
	assert.Equal(t, "image/png", ref.MediaType)
	assert.Equal(t, int64(5), ref.Size)
	assert.Equal(t, path, ref.Path)

	_, err = FileRefFromPath(filepath.Dir(path))
	assert.Error(t, err)
}

func TestFileRefFromInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.webp")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))

	ref, err := FileRefFromInput(types.FileInput{FileUrl: "file://" + path})
	require.NoError(t, err)
	assert.Equal(t, "clip.webp", ref.Name)
	assert.Equal(t, "image/webp", ref.MediaType)

	renamed, err := FileRefFromInput(types.FileInput{FileUrl: "file://" + path, FileName: "holiday.mp4", FileType: "video/quicktime"})
	require.NoError(t, err)
	assert.Equal(t, "holiday.mp4", renamed.Name)
	assert.Equal(t, "video/quicktime", renamed.MediaType)

	_, err = FileRefFromInput(types.FileInput{FileUrl: "https://example.com/a.png"})
	assert.Error(t, err)
	_, err = FileRefFromInput(types.FileInput{})
	assert.Error(t, err)
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectMediaType("a.jpg"))
	assert.Equal(t, "application/octet-stream", DetectMediaType("README"))
}

func TestDetectMediaTypeVideo(t *testing.T) {
	assert.Equal(t, "video/mp4", DetectMediaType("clip.MP4"))
	assert.Equal(t, "video/webm", DetectMediaType("clip.webm"))
}

func TestFileRefFromInputRequiresFileUrl(t *testing.T) {
	_, err := FileRefFromInput(types.FileInput{FileName: "photo.png", FileType: "image/png"})
	assert.EqualError(t, err, "fileUrl is required")
}
