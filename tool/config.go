package tool

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moyoez/scandrop/types"
)

const (
	EnvAPIBaseURL  = "SCANDROP_API_BASE_URL"
	EnvPushBaseURL = "SCANDROP_PUSH_BASE_URL"
	EnvPageURL     = "SCANDROP_PAGE_URL"
	EnvWorkspaceID = "SCANDROP_WORKSPACE_ID"
	EnvAuthToken   = "SCANDROP_AUTH_TOKEN"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	EnvFile       = ".env"
	CurrentConfig types.AppConfig
)

// DefaultConfig returns the configuration written on first start.
func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		WorkspaceID:          "",
		APIBaseURL:           "http://localhost:8000",
		Port:                 53318,
		MaxConcurrentUploads: 4,
		FallbackRefreshDelay: 2 * time.Second,
		RefreshRatePerSecond: 2,
	}
}

// LoadConfig reads path (creating it with defaults when missing), then applies
// .env and process environment overrides.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
		}
		DefaultLogger.Infof("Created new config file at %s", path)
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	case info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	if err := godotenv.Load(EnvFile); err != nil && !os.IsNotExist(err) {
		DefaultLogger.Warnf("Failed to load %s: %v", EnvFile, err)
	}
	applyEnv(&cfg)

	if cfg.FallbackRefreshDelay <= 0 {
		cfg.FallbackRefreshDelay = 2 * time.Second
	}

	CurrentConfig = cfg
	return cfg, nil
}

func applyEnv(cfg *types.AppConfig) {
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv(EnvPushBaseURL); v != "" {
		cfg.PushBaseURL = v
	}
	if v := os.Getenv(EnvPageURL); v != "" {
		cfg.PageURL = v
	}
	if v := os.Getenv(EnvWorkspaceID); v != "" {
		cfg.WorkspaceID = v
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		cfg.AuthToken = v
	}
}

// ApplyFlags merges CLI overrides into cfg. Flags win over file and environment.
func ApplyFlags(cfg *types.AppConfig, flags types.Config) {
	if flags.UseWorkspace != "" {
		cfg.WorkspaceID = flags.UseWorkspace
	}
	if flags.UseAPIBaseURL != "" {
		cfg.APIBaseURL = flags.UseAPIBaseURL
	}
	if flags.UsePushBaseURL != "" {
		cfg.PushBaseURL = flags.UsePushBaseURL
	}
	if flags.UsePort > 0 {
		cfg.Port = flags.UsePort
	}
	if flags.UseMaxConcurrent >= 0 {
		cfg.MaxConcurrentUploads = flags.UseMaxConcurrent
	}
	CurrentConfig = *cfg
}

// ValidateConfig checks the fields the uploader cannot run without.
func ValidateConfig(cfg types.AppConfig) error {
	if cfg.WorkspaceID == "" {
		return fmt.Errorf("workspaceId is required (config, %s or -workspace)", EnvWorkspaceID)
	}
	if url.PathEscape(cfg.WorkspaceID) != cfg.WorkspaceID {
		return fmt.Errorf("workspaceId %q is not a valid path segment", cfg.WorkspaceID)
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("apiBaseUrl %q is not an absolute URL", cfg.APIBaseURL)
	}
	if cfg.MaxConcurrentUploads < 0 {
		return fmt.Errorf("maxConcurrentUploads must be >= 0")
	}
	return nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}
