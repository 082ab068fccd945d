package tool

import (
	"flag"

	"github.com/moyoez/scandrop/types"
)

// SetFlags parses CLI flags and returns the override config.
// Remaining positional arguments are file paths to enqueue on start.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseWorkspace, "workspace", "", "workspace id to upload into")
	flag.StringVar(&cfg.UseAPIBaseURL, "apiBaseUrl", "", "override API base URL")
	flag.StringVar(&cfg.UsePushBaseURL, "pushBaseUrl", "", "override push service base URL")
	flag.IntVar(&cfg.UsePort, "port", 0, "override control API port")
	flag.IntVar(&cfg.UseMaxConcurrent, "maxConcurrent", -1, "max concurrent uploads, 0 means unlimited")
	flag.BoolVar(&cfg.SkipNotify, "skipNotify", false, "if true, skip unix socket notifications")
	flag.BoolVar(&cfg.UseInsecureTLS, "insecure", false, "skip TLS certificate verification")
	flag.Parse()
	cfg.Files = flag.Args()
	return cfg
}
