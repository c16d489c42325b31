package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
	"github.com/Kostya12rus/steam-work-example/internal/session"
)

var (
	// ErrUnavailable means the fetch path is cooling down after repeated
	// failures; try again after the breaker recovers.
	ErrUnavailable = errors.New("inventory fetch rejected, cooling down")

	// ErrTransient means a page fetch failed in a retryable way. The
	// mandatory pause has already been served when this is returned.
	ErrTransient = errors.New("transient inventory fetch failure")
)

// Aggregator fetches inventories page by page and merges them into a
// single view. Pages are requested strictly sequentially; each page's
// continuation token comes from the previous response.
type Aggregator struct {
	log      *slog.Logger
	cfg      *infra.Config
	breaker  *infra.CircuitBreaker
	pageSize int
}

// NewAggregator creates an aggregator using the configured page size.
func NewAggregator(log *slog.Logger, cfg *infra.Config) *Aggregator {
	return &Aggregator{
		log:      log,
		cfg:      cfg,
		breaker:  infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("inventory")),
		pageSize: cfg.Steam.InventoryPageSize,
	}
}

// OwnInventory fetches the account's own inventory for one app/context.
// On a transient failure the configured pause is served before the error
// returns, so an immediate caller retry cannot hammer the endpoint.
func (g *Aggregator) OwnInventory(ctx context.Context, account *session.Account, appID int, contextID int64) (*domain.InventoryView, error) {
	steamID := account.SteamID()
	view := domain.NewInventoryView(steamID, appID, contextID)
	log := g.log.With(
		slog.String("steam_id", steamID),
		slog.Int("appid", appID))

	start := ""
	for page := 1; ; page++ {
		if !g.breaker.Allow() {
			return nil, ErrUnavailable
		}

		pageURL := fmt.Sprintf("%s/inventory/%s/%d/%d?l=english&count=%d",
			g.cfg.Steam.CommunityURL, steamID, appID, contextID, g.pageSize)
		if start != "" {
			pageURL += "&start_assetid=" + url.QueryEscape(start)
		}

		body, status, err := account.Get(ctx, pageURL)
		if err != nil || status != http.StatusOK {
			g.breaker.RecordFailure()
			return nil, g.transient(ctx, log, "own inventory page", page, status, err)
		}

		resp, err := decodeSelf(body)
		if err != nil || resp.Success != 1 {
			g.breaker.RecordFailure()
			return nil, g.transient(ctx, log, "own inventory page", page, status, err)
		}
		g.breaker.RecordSuccess()

		view.MergePage(toDescriptors(resp.Descriptions), modernUnits(resp.Assets))

		log.Debug("inventory page merged",
			slog.Int("page", page),
			slog.Int("assets", len(resp.Assets)),
			slog.Int("total_count", resp.TotalCount))

		if resp.MoreItems != 1 || resp.LastAssetID == "" {
			return view, nil
		}
		start = resp.LastAssetID
	}
}

// PartnerInventory fetches another account's tradable inventory through
// the trade offer endpoint, which requires a session id and the trade
// window referer.
func (g *Aggregator) PartnerInventory(ctx context.Context, account *session.Account, partnerID string, appID int, contextID int64) (*domain.InventoryView, error) {
	sessionID, err := account.SessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("partner inventory: %w", err)
	}

	view := domain.NewInventoryView(partnerID, appID, contextID)
	log := g.log.With(
		slog.String("partner_id", partnerID),
		slog.Int("appid", appID))
	referer := fmt.Sprintf("%s/tradeoffer/new/?partner=%s", g.cfg.Steam.CommunityURL, partnerID)

	start := int64(0)
	havePage := false
	for page := 1; ; page++ {
		if !g.breaker.Allow() {
			return nil, ErrUnavailable
		}

		query := url.Values{}
		query.Set("sessionid", sessionID)
		query.Set("partner", partnerID)
		query.Set("appid", strconv.Itoa(appID))
		query.Set("contextid", strconv.FormatInt(contextID, 10))
		query.Set("l", "english")
		if havePage {
			query.Set("start", strconv.FormatInt(start, 10))
		}
		pageURL := g.cfg.Steam.CommunityURL + "/tradeoffer/new/partnerinventory/?" + query.Encode()

		body, status, err := g.getWithReferer(ctx, account, pageURL, referer)
		if err != nil || status != http.StatusOK {
			g.breaker.RecordFailure()
			return nil, g.transient(ctx, log, "partner inventory page", page, status, err)
		}

		resp, err := decodePartner(body)
		if err != nil || !resp.Success {
			g.breaker.RecordFailure()
			return nil, g.transient(ctx, log, "partner inventory page", page, status, err)
		}
		g.breaker.RecordSuccess()

		view.MergePage(legacyDescriptors(resp.Descriptions), legacyUnits(resp.Inventory))

		log.Debug("partner inventory page merged",
			slog.Int("page", page),
			slog.Int("assets", len(resp.Inventory)))

		if !resp.More || !resp.MoreStart.OK {
			return view, nil
		}
		start = resp.MoreStart.Value
		havePage = true
	}
}

func (g *Aggregator) getWithReferer(ctx context.Context, account *session.Account, rawURL, referer string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", account.UserAgent())
	req.Header.Set("Referer", referer)

	resp, err := account.Client().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// transient logs the failure, serves the retry pause and wraps the
// cause in ErrTransient. A cancelled context cuts the pause short.
func (g *Aggregator) transient(ctx context.Context, log *slog.Logger, what string, page, status int, cause error) error {
	log.Warn("inventory fetch failed",
		slog.String("stage", what),
		slog.Int("page", page),
		slog.Int("status", status),
		slog.Any("error", cause))

	infra.Sleep(infra.TransientRetryDelay, ctx.Done())

	if cause != nil {
		return fmt.Errorf("%s %d: %w: %w", what, page, ErrTransient, cause)
	}
	return fmt.Errorf("%s %d: status %d: %w", what, page, status, ErrTransient)
}
