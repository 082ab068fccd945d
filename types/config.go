package types

import "time"

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	WorkspaceID          string          `yaml:"workspaceId"`
	APIBaseURL           string          `yaml:"apiBaseUrl"`            // e.g. https://app.example.com
	PushBaseURL          string          `yaml:"pushBaseUrl,omitempty"` // push service base, falls back to apiBaseUrl
	PageURL              string          `yaml:"pageUrl,omitempty"`     // page location used when neither base parses
	AuthToken            string          `yaml:"authToken,omitempty"`
	Port                 int             `yaml:"port"` // control API port
	MaxConcurrentUploads int             `yaml:"maxConcurrentUploads"`
	FallbackRefreshDelay time.Duration   `yaml:"fallbackRefreshDelay"`
	RefreshRatePerSecond float64         `yaml:"refreshRatePerSecond"`
	Whitelist            []WhitelistRule `yaml:"whitelist,omitempty"`
}

// WhitelistRule maps one accepted media type to its extension hints and size ceiling.
type WhitelistRule struct {
	MediaType  string   `yaml:"mediaType" json:"mediaType"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	MaxSize    int64    `yaml:"maxSize" json:"maxSize"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log              string
	UseConfigPath    string
	UseWorkspace     string
	UseAPIBaseURL    string
	UsePushBaseURL   string
	UsePort          int
	UseMaxConcurrent int // -1 keeps the config value
	SkipNotify       bool
	UseInsecureTLS   bool // skip certificate verification, for self-signed staging backends.
	Files            []string
}
