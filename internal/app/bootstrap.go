// Package app wires the client together: config, logger, storage, the
// event bus and the background session watcher.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Kostya12rus/steam-work-example/internal/event"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
	"github.com/Kostya12rus/steam-work-example/internal/inventory"
	"github.com/Kostya12rus/steam-work-example/internal/login"
	"github.com/Kostya12rus/steam-work-example/internal/market"
	"github.com/Kostya12rus/steam-work-example/internal/session"
	"github.com/Kostya12rus/steam-work-example/internal/storage"
)

// busWorkers bounds concurrent event handler dispatch.
const busWorkers = 4

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.Store
	Snapshots *storage.SnapshotManager
	Bus       *event.Bus
	Login     *login.Orchestrator
	Inventory *inventory.Aggregator
	Market    *market.Client
	Watcher   *session.Watcher

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger,
// lockfile, storage, bus, clients, watcher).
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// No config file is fine for a first run; defaults target the
		// public community site.
		cfg = infra.DefaultConfig()
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per workspace; two clients sharing the sqlite file and
	// the session cookies corrupt each other.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "steamwork.db")
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("Store initialized (WAL-mode)", "path", dbPath)

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	b.Bus = event.NewBus(busWorkers)
	b.Login = login.NewOrchestrator(logger, b.Bus, cfg)
	b.Inventory = inventory.NewAggregator(logger, cfg)
	b.Market = market.NewClient(logger, cfg, store)
	b.Watcher = session.NewWatcher(logger, time.Duration(cfg.Client.LivenessWindowSec)*time.Second)

	return nil
}

// RestoreAccounts loads every persisted account, registers it with the
// watcher and returns them keyed by name. Corrupt records are skipped
// with a warning, not fatal.
func (b *Bootstrap) RestoreAccounts(ctx context.Context) (map[string]*session.Account, error) {
	blobs, err := b.Store.LoadAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	opts := session.Options{
		CommunityURL:   b.Config.Steam.CommunityURL,
		RequestTimeout: time.Duration(b.Config.Client.RequestTimeoutSec) * time.Second,
		LivenessWindow: time.Duration(b.Config.Client.LivenessWindowSec) * time.Second,
		Logger:         slog.Default(),
		Bus:            b.Bus,
	}

	accounts := make(map[string]*session.Account, len(blobs))
	for name, blob := range blobs {
		state, err := session.DecodeState(blob)
		if err != nil {
			slog.Warn("Skipping corrupt account record",
				slog.String("account", name),
				slog.Any("error", err))
			continue
		}
		account, err := session.Restore(state, opts)
		if err != nil {
			slog.Warn("Skipping unrestorable account",
				slog.String("account", name),
				slog.Any("error", err))
			continue
		}
		accounts[name] = account
		b.Watcher.Watch(account)
	}
	return accounts, nil
}

// SaveAccount persists one account's current session state.
func (b *Bootstrap) SaveAccount(ctx context.Context, account *session.Account) error {
	blob, err := account.Snapshot().Encode()
	if err != nil {
		return err
	}
	return b.Store.SaveAccount(ctx, account.Name(), blob, time.Now().Unix())
}

// Start launches background workers.
func (b *Bootstrap) Start(ctx context.Context) {
	b.Watcher.Start(ctx)
}

// Shutdown stops workers and releases resources in reverse order.
func (b *Bootstrap) Shutdown() {
	if b.Watcher != nil {
		b.Watcher.Stop()
	}
	if b.Bus != nil {
		b.Bus.Close()
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Store close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
