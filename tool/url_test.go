package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWorkspaceURLs(t *testing.T) {
	upload, err := BuildUploadURL("http://localhost:8000", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/workspaces/ws-1/upload/", upload)

	assets, err := BuildAssetsURL("https://example.com/prefix/", "ws 2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/prefix/api/workspaces/ws%202/assets/", assets)

	_, err = BuildUploadURL("http://localhost:8000", "")
	assert.Error(t, err)
	_, err = BuildUploadURL("localhost", "ws-1")
	assert.Error(t, err)
}
