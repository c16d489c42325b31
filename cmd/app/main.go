package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kostya12rus/steam-work-example/internal/app"
	"github.com/Kostya12rus/steam-work-example/internal/event"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
	"github.com/Kostya12rus/steam-work-example/internal/session"
	"github.com/Kostya12rus/steam-work-example/internal/storage"
)

func main() {
	// Optional .env for local overrides; absence is not an error.
	_ = godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	infra.PrintBanner(bootstrap.Config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.Bus.Register(event.TopicSessionExpired, func(payload any) {
		slog.Warn("Session expired", slog.Any("account", payload))
	})
	bootstrap.Bus.Register(event.TopicLoggedIn, func(payload any) {
		if account, ok := payload.(*session.Account); ok {
			slog.Info("Account authenticated", slog.String("account", account.Name()))
		}
	})

	accounts, err := bootstrap.RestoreAccounts(ctx)
	if err != nil {
		slog.Error("Account restore failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Accounts restored", slog.Int("count", len(accounts)))

	bootstrap.Start(ctx)

	for name, account := range accounts {
		if err := bootstrap.Login.LoginWithRefreshToken(ctx, account); err != nil {
			slog.Warn("Re-login failed",
				slog.String("account", name),
				slog.Any("error", err))
			continue
		}
		if err := bootstrap.SaveAccount(ctx, account); err != nil {
			slog.Warn("Account save failed",
				slog.String("account", name),
				slog.Any("error", err))
		}
		go summarizeInventory(ctx, bootstrap, account)
	}

	slog.InfoContext(ctx, "Client operational. Press Ctrl+C to exit.")
	<-ctx.Done()
	slog.InfoContext(ctx, "Shutting down gracefully...")
}

// summarizeInventory fetches one account's inventory, persists a
// snapshot and logs a short summary. A stale snapshot is reported when
// the live fetch fails.
func summarizeInventory(ctx context.Context, bootstrap *app.Bootstrap, account *session.Account) {
	cfg := bootstrap.Config
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	view, err := bootstrap.Inventory.OwnInventory(fetchCtx, account, cfg.Steam.AppID, cfg.Steam.ContextID)
	if err != nil {
		slog.Warn("Inventory fetch failed",
			slog.String("account", account.Name()),
			slog.Any("error", err))
		snap, snapErr := bootstrap.Snapshots.LoadLatest(account.SteamID(), cfg.Steam.AppID, cfg.Steam.ContextID)
		if snapErr == nil && snap != nil {
			slog.Info("Serving last snapshot instead",
				slog.String("account", account.Name()),
				slog.Int64("total", snap.Total),
				slog.Int64("age_sec", time.Now().Unix()-snap.TsUnix))
		}
		return
	}

	if err := bootstrap.Snapshots.Save(storage.CreateSnapshot(view)); err != nil {
		slog.Warn("Snapshot save failed", slog.Any("error", err))
	}
	if err := bootstrap.Snapshots.Cleanup(account.SteamID(), cfg.Steam.AppID, cfg.Steam.ContextID, 5); err != nil {
		slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
	}

	slog.Info("Inventory fetched",
		slog.String("account", account.Name()),
		slog.Int("item_types", len(view.Descriptors())),
		slog.Int64("total", view.TotalAmount(false)),
		slog.Int64("tradable", view.TotalAmount(true)))
}
