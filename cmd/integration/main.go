// Command integration is a manual check against the live platform. It
// logs in with a refresh token taken from the environment (or a stored
// account), fetches the inventory and runs the read-only market calls.
// It never lists, cancels or trades anything.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kostya12rus/steam-work-example/internal/app"
	"github.com/Kostya12rus/steam-work-example/internal/session"
)

func main() {
	_ = godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	account, err := pickAccount(ctx, bootstrap)
	if err != nil {
		slog.Error("No account available", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("STEP 1: Refresh-token login", slog.String("account", account.Name()))
	if err := bootstrap.Login.LoginWithRefreshToken(ctx, account); err != nil {
		slog.Error("Login failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := bootstrap.SaveAccount(ctx, account); err != nil {
		slog.Warn("Account save failed", slog.Any("error", err))
	}

	wallet, err := account.WalletInfo(ctx)
	if err != nil {
		slog.Error("Wallet info failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Wallet",
		slog.String("balance", wallet.FormatBalance()),
		slog.Int("currency", wallet.Currency))

	cfg := bootstrap.Config
	slog.Info("STEP 2: Inventory fetch",
		slog.Int("appid", cfg.Steam.AppID),
		slog.Int64("contextid", cfg.Steam.ContextID))
	view, err := bootstrap.Inventory.OwnInventory(ctx, account, cfg.Steam.AppID, cfg.Steam.ContextID)
	if err != nil {
		slog.Error("Inventory fetch failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Inventory",
		slog.Int("item_types", len(view.Descriptors())),
		slog.Int64("total", view.TotalAmount(false)))

	var probe string
	for _, d := range view.Descriptors() {
		if d.Marketable && d.MarketHashName != "" {
			probe = d.MarketHashName
			break
		}
	}
	if probe == "" {
		slog.Info("No marketable item to probe; done")
		return
	}

	slog.Info("STEP 3: Market reads", slog.String("item", probe))
	overview, err := bootstrap.Market.PriceOverview(ctx, account, probe, cfg.Steam.AppID)
	if err != nil {
		slog.Error("Price overview failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Price overview",
		slog.String("lowest", overview.LowestPrice),
		slog.String("median", overview.MedianPrice),
		slog.String("volume", overview.Volume))

	histogram, err := bootstrap.Market.OrderHistogram(ctx, account, probe, cfg.Steam.AppID)
	if err != nil {
		slog.Error("Order histogram failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Order book",
		slog.String("highest_buy", histogram.FormatPrice(histogram.HighestBuyOrder())),
		slog.String("lowest_sell", histogram.FormatPrice(histogram.LowestSellOrder())))

	listings, total, err := bootstrap.Market.MyListings(ctx, account, 0, 100)
	if err != nil {
		slog.Error("My listings failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Active listings", slog.Int("fetched", len(listings)), slog.Int("total", total))

	slog.Info("Integration run passed")
}

// pickAccount prefers STEAM_REFRESH_TOKEN from the environment, then
// falls back to the first stored account.
func pickAccount(ctx context.Context, bootstrap *app.Bootstrap) (*session.Account, error) {
	if token := os.Getenv("STEAM_REFRESH_TOKEN"); token != "" {
		opts := session.Options{
			CommunityURL:   bootstrap.Config.Steam.CommunityURL,
			RequestTimeout: time.Duration(bootstrap.Config.Client.RequestTimeoutSec) * time.Second,
			LivenessWindow: time.Duration(bootstrap.Config.Client.LivenessWindowSec) * time.Second,
			Logger:         slog.Default(),
			Bus:            bootstrap.Bus,
		}
		return session.NewAccount(os.Getenv("STEAM_ACCOUNT_NAME"), os.Getenv("STEAM_ID"), token, opts)
	}

	accounts, err := bootstrap.RestoreAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account.RefreshToken() != "" {
			return account, nil
		}
	}
	return nil, errors.New("no stored account with a refresh token; set STEAM_REFRESH_TOKEN")
}
