package market

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
	"github.com/Kostya12rus/steam-work-example/internal/session"
	"github.com/Kostya12rus/steam-work-example/pkg/safe"
)

// ErrAborted is returned when a batch stops early because the alive
// check failed. Work done before the abort stays applied.
var ErrAborted = errors.New("batch aborted, session no longer alive")

// alwaysAlive is the alive check used when the caller passes nil.
func alwaysAlive() bool { return true }

// SellAll lists every unit of every given descriptor at the net price
// the pricer returns for its type. A zero price skips the type. The
// alive check runs before each remote call; returns the number of
// listings created even when aborting early.
func (c *Client) SellAll(ctx context.Context, account *session.Account, items []*domain.ItemDescriptor, pricer func(*domain.ItemDescriptor) int64, alive func() bool) (int, error) {
	if alive == nil {
		alive = alwaysAlive
	}
	batchID := uuid.NewString()
	log := c.log.With(slog.String("batch_id", batchID), slog.String("op", "sell_all"))

	sold := 0
	var lastErr error
	for _, item := range items {
		if !item.IsMarketable() {
			continue
		}
		price := pricer(item)
		if price <= 0 {
			log.Debug("skipping unpriced item", slog.String("item", item.Name))
			continue
		}

		for _, unit := range item.Units {
			if unit.Amount <= 0 {
				continue
			}
			if !alive() {
				log.Warn("aborting", slog.Int("sold", sold))
				return sold, ErrAborted
			}
			if err := ctx.Err(); err != nil {
				return sold, err
			}

			_, err := c.SellItem(ctx, account, item.AppID, c.cfg.Steam.ContextID, unit.AssetID, unit.Amount, price)
			if err != nil {
				lastErr = err
				log.Warn("sell failed",
					slog.String("item", item.Name),
					slog.String("asset_id", unit.AssetID),
					slog.Any("error", err))
				continue
			}
			sold++
		}
	}

	log.Info("batch finished", slog.Int("sold", sold))
	return sold, lastErr
}

// StackAll merges all of a descriptor's stacks into its first one. Each
// successful combine is mirrored into the local model immediately, so an
// aborted batch leaves the view matching what the platform applied.
func (c *Client) StackAll(ctx context.Context, account *session.Account, item *domain.ItemDescriptor, alive func() bool) (int, error) {
	if alive == nil {
		alive = alwaysAlive
	}
	if item == nil || len(item.Units) < 2 {
		return 0, nil
	}
	batchID := uuid.NewString()
	log := c.log.With(slog.String("batch_id", batchID), slog.String("op", "stack_all"),
		slog.String("item", item.Name))

	dest := item.Units[0]
	combined := 0
	var lastErr error
	for _, unit := range item.Units[1:] {
		if unit.Amount <= 0 {
			continue
		}
		if !alive() {
			log.Warn("aborting", slog.Int("combined", combined))
			return combined, ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return combined, err
		}

		if err := c.CombineItemStacks(ctx, account, item.AppID, unit.AssetID, dest.AssetID, unit.Amount); err != nil {
			lastErr = err
			log.Warn("combine failed",
				slog.String("from", unit.AssetID),
				slog.Any("error", err))
			continue
		}
		dest.Amount = safe.SafeAdd(dest.Amount, unit.Amount)
		unit.Amount = 0
		combined++
	}

	log.Info("batch finished", slog.Int("combined", combined))
	return combined, lastErr
}

// CancelAllListings walks the account's active listings and cancels
// them all. Returns the number cancelled.
func (c *Client) CancelAllListings(ctx context.Context, account *session.Account, alive func() bool) (int, error) {
	if alive == nil {
		alive = alwaysAlive
	}
	batchID := uuid.NewString()
	log := c.log.With(slog.String("batch_id", batchID), slog.String("op", "cancel_all"))

	cancelled := 0
	var lastErr error
	for {
		// Cancellations shrink the list, so always refetch from the top.
		listings, total, err := c.MyListings(ctx, account, 0, searchPageSize)
		if err != nil {
			return cancelled, err
		}
		if len(listings) == 0 {
			break
		}

		progressed := false
		for _, listing := range listings {
			if !alive() {
				log.Warn("aborting", slog.Int("cancelled", cancelled))
				return cancelled, ErrAborted
			}
			if err := ctx.Err(); err != nil {
				return cancelled, err
			}

			if err := c.CancelListing(ctx, account, listing.ListingID); err != nil {
				lastErr = err
				log.Warn("cancel failed",
					slog.String("listing_id", listing.ListingID),
					slog.Any("error", err))
				continue
			}
			cancelled++
			progressed = true
		}

		if !progressed {
			// Every remaining listing failed to cancel; looping again
			// would spin on the same rows.
			break
		}
		if cancelled >= total {
			break
		}
	}

	log.Info("batch finished", slog.Int("cancelled", cancelled))
	return cancelled, lastErr
}
