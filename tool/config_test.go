package tool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/scandrop/types"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().APIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, 4, cfg.MaxConcurrentUploads)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `workspaceId: from-file
apiBaseUrl: https://api.example.com
maxConcurrentUploads: 2
fallbackRefreshDelay: 5s
whitelist:
  - mediaType: image/png
    extensions: [".png"]
    maxSize: 1024
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(EnvWorkspaceID, "from-env")
	t.Setenv(EnvAuthToken, "token")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WorkspaceID)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "token", cfg.AuthToken)
	assert.Equal(t, 2, cfg.MaxConcurrentUploads)
	assert.Equal(t, 5*time.Second, cfg.FallbackRefreshDelay)
	require.Len(t, cfg.Whitelist, 1)
	assert.Equal(t, int64(1024), cfg.Whitelist[0].MaxSize)
}

func TestLoadConfigRejectsDirectory(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	ApplyFlags(&cfg, types.Config{
		UseWorkspace:     "cli",
		UseAPIBaseURL:    "http://127.0.0.1:9000",
		UsePort:          6000,
		UseMaxConcurrent: -1,
	})
	assert.Equal(t, "cli", cfg.WorkspaceID)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.APIBaseURL)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 4, cfg.MaxConcurrentUploads)

	ApplyFlags(&cfg, types.Config{UseMaxConcurrent: 0})
	assert.Equal(t, 0, cfg.MaxConcurrentUploads)
	assert.Equal(t, "cli", GetCurrentConfig().WorkspaceID)
}

func TestValidateConfig(t *testing.T) {
	valid := DefaultConfig()
	valid.WorkspaceID = "ws-1"
	assert.NoError(t, ValidateConfig(valid))

	missing := valid
	missing.WorkspaceID = ""
	assert.Error(t, ValidateConfig(missing))

	badID := valid
	badID.WorkspaceID = "a/b"
	assert.Error(t, ValidateConfig(badID))

	relative := valid
	relative.APIBaseURL = "/api"
	assert.Error(t, ValidateConfig(relative))

	negative := valid
	negative.MaxConcurrentUploads = -2
	assert.Error(t, ValidateConfig(negative))
}
