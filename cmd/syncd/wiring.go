package main

import (
	"context"

	"github.com/flashnote/syncd/internal/assets"
	"github.com/flashnote/syncd/internal/changelog"
	"github.com/flashnote/syncd/internal/conflict"
	"github.com/flashnote/syncd/internal/config"
	"github.com/flashnote/syncd/internal/deviceid"
	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/orchestrator"
	"github.com/flashnote/syncd/internal/syncengine"
	"github.com/flashnote/syncd/internal/webdav"
	"github.com/rs/zerolog/log"
)

// legacyTransportAdapter narrows *webdav.Client to changelog.Transport,
// per that package's own note that cmd/syncd does this adaptation.
type legacyTransportAdapter struct{ client *webdav.Client }

func (a legacyTransportAdapter) UploadJSON(ctx context.Context, path string, value any) error {
	return a.client.UploadJSON(ctx, path, value)
}
func (a legacyTransportAdapter) DownloadJSON(ctx context.Context, path string, out any) error {
	return a.client.DownloadJSON(ctx, path, out)
}
func (a legacyTransportAdapter) List(ctx context.Context, path string) ([]changelog.RemoteEntry, error) {
	entries, err := a.client.List(ctx, path, webdav.DepthInfinity)
	if err != nil {
		return nil, err
	}
	return mapRemoteEntries(entries), nil
}

func mapRemoteEntries(entries []webdav.Entry) []changelog.RemoteEntry {
	out := make([]changelog.RemoteEntry, len(entries))
	for i, e := range entries {
		out[i] = changelog.RemoteEntry{Href: e.Href, IsDirectory: e.IsDirectory}
	}
	return out
}

// stack bundles every daemon-scoped dependency built from a Config, so run
// and sync can share the construction logic.
type stack struct {
	cfg          *config.Config
	deviceID     string
	transport    *webdav.Client
	adapter      *localstore.Adapter
	assetsSyncer *assets.Syncer
	engine       *syncengine.Engine
	legacy       *changelog.LegacyIncrementalSync
	orch         *orchestrator.Orchestrator
}

func buildStack(cfg *config.Config) *stack {
	deviceID, err := deviceid.Load(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("loading device id")
	}

	transport := webdav.New(cfg.WebDAVURL, cfg.WebDAVUser, cfg.WebDAVPassword, log.Logger)

	repo, err := localstore.OpenFileRepository(cfg.DataDir + "/local-store.json")
	if err != nil {
		log.Fatal().Err(err).Msg("opening local store")
	}
	adapter := localstore.New(repo)

	assetsSyncer := &assets.Syncer{
		Local:    &assets.FSStore{Root: cfg.DataDir + "/assets"},
		Remote:   transport,
		RootPath: cfg.RemoteRoot,
		Log:      log.Logger,
	}

	engine := &syncengine.Engine{
		Remote:   transport,
		Local:    adapter,
		Assets:   assetsSyncer,
		Cache:    syncengine.NewFileManifestCache(cfg.DataDir),
		RootPath: cfg.RemoteRoot,
		DeviceID: deviceID,
		Log:      log.Logger,
	}

	legacy := &changelog.LegacyIncrementalSync{
		Transport: legacyTransportAdapter{client: transport},
		Local:     adapter,
		Journal:   changelog.NewJournal(),
		Times:     changelog.NewFileTimeStore(cfg.DataDir),
		Resolver:  conflict.Resolve,
		RootPath:  cfg.RemoteRoot,
		DeviceID:  deviceID,
		Log:       log.Logger,
	}

	orch := orchestrator.New(engine, legacy, cfg.UseLegacySync, log.Logger)
	orch.ConflictTimeout = cfg.ConflictTimeout
	engine.ConflictTimeout = cfg.ConflictTimeout

	return &stack{
		cfg: cfg, deviceID: deviceID, transport: transport,
		adapter: adapter, assetsSyncer: assetsSyncer,
		engine: engine, legacy: legacy, orch: orch,
	}
}
