package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/scandrop/api"
	"github.com/moyoez/scandrop/api/notifyhub"
	"github.com/moyoez/scandrop/notify"
	"github.com/moyoez/scandrop/orchestrator"
	"github.com/moyoez/scandrop/scan"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/transfer"
	"github.com/moyoez/scandrop/types"
	"github.com/moyoez/scandrop/validate"
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlags(&appCfg, cfg)
	if err := tool.ValidateConfig(appCfg); err != nil {
		tool.DefaultLogger.Fatalf("Invalid config: %v", err)
	}

	if cfg.SkipNotify {
		notify.SetUseNotify(false)
	}
	tool.InitHTTPClients(cfg.UseInsecureTLS)

	rules := appCfg.Whitelist
	if len(rules) == 0 {
		rules = validate.DefaultRules()
	}
	validator := validate.New(rules)

	uploader := transfer.NewUploader(tool.UploadHttpClient, appCfg.APIBaseURL, appCfg.WorkspaceID, appCfg.AuthToken)
	refresher, err := transfer.NewAssetRefresher(tool.APIHttpClient, appCfg.APIBaseURL, appCfg.WorkspaceID, appCfg.AuthToken, appCfg.RefreshRatePerSecond)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	dialer := scan.NewDialer(scan.DefaultResolvers(appCfg.PushBaseURL, appCfg.APIBaseURL, appCfg.PageURL), appCfg.AuthToken, cfg.UseInsecureTLS)

	orch, err := orchestrator.New(orchestrator.Options{
		Validator: validator,
		Transport: uploader,
		Opener: orchestrator.OpenerFunc(func(ticketID string, onEvent func(scan.Event), onDegrade func(error)) io.Closer {
			return dialer.Open(ticketID, onEvent, onDegrade)
		}),
		Refresh:              refresher.Refresh,
		MaxConcurrentUploads: appCfg.MaxConcurrentUploads,
		FallbackDelay:        appCfg.FallbackRefreshDelay,
	})
	if err != nil {
		tool.DefaultLogger.Fatalf("Failed to create orchestrator: %v", err)
	}

	hub := notifyhub.New()
	dispatcher := notify.NewDispatcher(hub, notify.DefaultUnixSocketPath)
	orch.Subscribe(dispatcher.HandleChange)
	refresher.OnCount(func(count int) {
		hub.Broadcast(&types.Notification{
			Type:    types.NotifyTypeAssetsRefresh,
			Title:   "Assets refreshed",
			Message: "Workspace asset list updated",
			Data:    map[string]any{"count": count},
		})
	})

	apiServer := api.NewServer(appCfg.Port, orch, validator, hub)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	if len(cfg.Files) > 0 {
		refs := make([]types.FileRef, 0, len(cfg.Files))
		for _, p := range cfg.Files {
			ref, err := tool.FileRefFromPath(p)
			if err != nil {
				tool.DefaultLogger.Errorf("Skipping %s: %v", p, err)
				continue
			}
			refs = append(refs, ref)
		}
		if ids, err := orch.AddFiles(refs); err != nil {
			tool.DefaultLogger.Errorf("Failed to enqueue files: %v", err)
		} else {
			tool.DefaultLogger.Infof("Enqueued %d files from the command line", len(ids))
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	tool.DefaultLogger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		tool.DefaultLogger.Warnf("API server shutdown: %v", err)
	}
	if err := orch.Close(); err != nil {
		tool.DefaultLogger.Warnf("Orchestrator close: %v", err)
	}
	hub.Close()
}
