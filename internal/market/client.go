package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
	"github.com/Kostya12rus/steam-work-example/internal/session"
)

var (
	orderSpreadPattern    = regexp.MustCompile(`\bMarket_LoadOrderSpread\(\s*(\d+)\s*\);`)
	activityTickerPattern = regexp.MustCompile(`\bItemActivityTicker\.Start\(\s*(\d+)\s*\);`)
)

// ErrUnavailable means the market GET path is cooling down after
// repeated failures.
var ErrUnavailable = errors.New("market fetch rejected, cooling down")

// searchPageSize is fixed by the search endpoint.
const searchPageSize = 100

// NameIDCache persists scraped item name ids. A name id never changes,
// so a hit skips the listing-page scrape forever.
type NameIDCache interface {
	ItemNameID(appID int, hashName string) (int64, error)
	SaveItemNameID(appID int, hashName string, nameID int64) error
}

// Client performs market operations on behalf of an account. GETs go
// through a shared rate limiter and a circuit breaker; state-changing
// POSTs are sent at most once and never gated.
type Client struct {
	log     *slog.Logger
	cfg     *infra.Config
	cache   NameIDCache
	breaker *infra.CircuitBreaker
	limiter *infra.RateLimiter
	combine *infra.RateLimiter
}

// NewClient wires a market client. cache may be nil; name ids are then
// re-scraped every run.
func NewClient(log *slog.Logger, cfg *infra.Config, cache NameIDCache) *Client {
	return &Client{
		log:     log,
		cfg:     cfg,
		cache:   cache,
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("market")),
		limiter: infra.GetMarketLimiter(),
		combine: infra.GetCombineLimiter(),
	}
}

// get runs one rate-limited, breaker-guarded GET.
func (c *Client) get(ctx context.Context, account *session.Account, rawURL string) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, ErrUnavailable
	}
	c.limiter.Wait()

	body, status, err := account.Get(ctx, rawURL)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	if status != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("status %d", status)
	}
	c.breaker.RecordSuccess()
	return body, nil
}

// PriceOverview fetches the lowest/median price summary for one item.
func (c *Client) PriceOverview(ctx context.Context, account *session.Account, hashName string, appID int) (*PriceOverview, error) {
	wallet, err := account.WalletInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("price overview: %w", err)
	}

	query := url.Values{}
	query.Set("country", wallet.Country)
	query.Set("currency", strconv.Itoa(wallet.Currency))
	query.Set("appid", strconv.Itoa(appID))
	query.Set("market_hash_name", hashName)

	body, err := c.get(ctx, account, c.cfg.Steam.CommunityURL+"/market/priceoverview/?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("price overview %q: %w", hashName, err)
	}

	var overview PriceOverview
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, fmt.Errorf("price overview %q: %w", hashName, err)
	}
	if !overview.Success {
		return nil, fmt.Errorf("price overview %q: platform reported failure", hashName)
	}
	return &overview, nil
}

// ItemNameID resolves the order-book id of an item type. Scraped ids
// are cached forever; they are assigned once at item creation.
func (c *Client) ItemNameID(ctx context.Context, account *session.Account, hashName string, appID int) (int64, error) {
	if hashName == "" || appID <= 0 {
		return 0, errors.New("item name id: empty name or appid")
	}

	if c.cache != nil {
		if id, err := c.cache.ItemNameID(appID, hashName); err != nil {
			c.log.Warn("name id cache lookup failed", slog.Any("error", err))
		} else if id != 0 {
			return id, nil
		}
	}

	pageURL := fmt.Sprintf("%s/market/listings/%d/%s",
		c.cfg.Steam.CommunityURL, appID, url.PathEscape(hashName))
	body, err := c.get(ctx, account, pageURL)
	if err != nil {
		return 0, fmt.Errorf("item name id %q: %w", hashName, err)
	}

	m := orderSpreadPattern.FindSubmatch(body)
	if m == nil {
		m = activityTickerPattern.FindSubmatch(body)
	}
	if m == nil {
		return 0, fmt.Errorf("item name id %q: not present on listing page", hashName)
	}
	id, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("item name id %q: %w", hashName, err)
	}

	if c.cache != nil {
		if err := c.cache.SaveItemNameID(appID, hashName, id); err != nil {
			c.log.Warn("name id cache save failed", slog.Any("error", err))
		}
	}
	return id, nil
}

// OrderHistogram fetches the live order book for one item type, priced
// in the account's wallet currency.
func (c *Client) OrderHistogram(ctx context.Context, account *session.Account, hashName string, appID int) (*domain.OrderHistogram, error) {
	nameID, err := c.ItemNameID(ctx, account, hashName, appID)
	if err != nil {
		return nil, err
	}
	wallet, err := account.WalletInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("order histogram %q: %w", hashName, err)
	}

	query := url.Values{}
	query.Set("country", wallet.Country)
	query.Set("language", "english")
	query.Set("currency", strconv.Itoa(wallet.Currency))
	query.Set("item_nameid", strconv.FormatInt(nameID, 10))

	body, err := c.get(ctx, account, c.cfg.Steam.CommunityURL+"/market/itemordershistogram?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("order histogram %q: %w", hashName, err)
	}

	var histogram domain.OrderHistogram
	if err := json.Unmarshal(body, &histogram); err != nil {
		return nil, fmt.Errorf("order histogram %q: %w", hashName, err)
	}
	if !histogram.IsSuccessful() {
		return nil, fmt.Errorf("order histogram %q: platform reported failure", hashName)
	}
	return &histogram, nil
}

// SearchListings walks the search results for an app, 100 rows per
// page, until total_count or maxItems is reached. Each page gets two
// attempts with the standard pause in between; a page that fails both
// ends the walk with the rows collected so far.
func (c *Client) SearchListings(ctx context.Context, account *session.Account, appID, start, maxItems int) ([]domain.MarketListing, error) {
	var collected []domain.MarketListing

	for {
		page, total, err := c.searchPage(ctx, account, appID, start)
		if err != nil {
			if len(collected) > 0 {
				c.log.Warn("search walk ended early",
					slog.Int("collected", len(collected)),
					slog.Any("error", err))
				return collected, nil
			}
			return nil, err
		}
		collected = append(collected, page...)

		start += searchPageSize
		if start >= total || start >= maxItems {
			return collected, nil
		}
	}
}

func (c *Client) searchPage(ctx context.Context, account *session.Account, appID, start int) ([]domain.MarketListing, int, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(searchPageSize))
	query.Set("search_descriptions", "0")
	query.Set("sort_column", "popular")
	query.Set("sort_dir", "desc")
	query.Set("appid", strconv.Itoa(appID))
	query.Set("norender", "1")
	pageURL := c.cfg.Steam.CommunityURL + "/market/search/render/?" + query.Encode()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if !infra.Sleep(infra.TransientRetryDelay, ctx.Done()) {
				return nil, 0, ctx.Err()
			}
		}

		body, err := c.get(ctx, account, pageURL)
		if err != nil {
			lastErr = err
			continue
		}
		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			lastErr = err
			continue
		}
		if !resp.Success {
			lastErr = errors.New("platform reported failure")
			continue
		}
		return resp.Results, resp.TotalCount, nil
	}
	return nil, 0, fmt.Errorf("search page at %d: %w", start, lastErr)
}

// MyListings fetches one page of the account's active sell orders.
// Returns the rows, the total count across all pages, and an error.
func (c *Client) MyListings(ctx context.Context, account *session.Account, start, count int) ([]domain.OwnListing, int, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))
	query.Set("norender", "1")

	body, err := c.get(ctx, account, c.cfg.Steam.CommunityURL+"/market/mylistings?"+query.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("my listings: %w", err)
	}

	var resp myListingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("my listings: %w", err)
	}
	if !resp.Success {
		return nil, 0, errors.New("my listings: platform reported failure")
	}

	out := make([]domain.OwnListing, 0, len(resp.Listings))
	for i := range resp.Listings {
		out = append(out, resp.Listings[i].toDomain())
	}
	return out, resp.TotalCount, nil
}

// MyHistory fetches one page of past market events.
func (c *Client) MyHistory(ctx context.Context, account *session.Account, start, count int) ([]domain.HistoryEvent, int, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))
	query.Set("norender", "1")

	body, err := c.get(ctx, account, c.cfg.Steam.CommunityURL+"/market/myhistory?"+query.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("my history: %w", err)
	}

	var resp myHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("my history: %w", err)
	}
	if !resp.Success {
		return nil, 0, errors.New("my history: platform reported failure")
	}
	return resp.Events, resp.TotalCount, nil
}

// SellItem lists amount units of an asset at the given net price in
// cents (what the seller receives). Sent exactly once; the caller must
// treat an error as unknown outcome, not retry.
func (c *Client) SellItem(ctx context.Context, account *session.Account, appID int, contextID int64, assetID string, amount, netPriceCents int64) (*SellResult, error) {
	if assetID == "" || amount <= 0 || netPriceCents <= 0 {
		return nil, errors.New("sell item: missing asset, amount or price")
	}
	sessionID, err := account.SessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("sell item: %w", err)
	}

	form := url.Values{}
	form.Set("sessionid", sessionID)
	form.Set("appid", strconv.Itoa(appID))
	form.Set("contextid", strconv.FormatInt(contextID, 10))
	form.Set("assetid", assetID)
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("price", strconv.FormatInt(netPriceCents, 10))

	headers := map[string]string{
		"Referer": fmt.Sprintf("%s/profiles/%s/inventory", c.cfg.Steam.CommunityURL, account.SteamID()),
		"Origin":  c.cfg.Steam.CommunityURL,
	}
	body, status, err := account.PostForm(ctx, c.cfg.Steam.CommunityURL+"/market/sellitem/", form, headers)
	if err != nil {
		return nil, fmt.Errorf("sell item %s: %w", assetID, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("sell item %s: status %d", assetID, status)
	}

	var result SellResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("sell item %s: %w", assetID, err)
	}
	if !result.Success {
		return &result, fmt.Errorf("sell item %s: %s", assetID, result.Message)
	}
	return &result, nil
}

// CancelListing removes one of the account's own sell orders.
func (c *Client) CancelListing(ctx context.Context, account *session.Account, listingID string) error {
	if listingID == "" {
		return errors.New("cancel listing: empty id")
	}
	sessionID, err := account.SessionID(ctx)
	if err != nil {
		return fmt.Errorf("cancel listing: %w", err)
	}

	form := url.Values{}
	form.Set("sessionid", sessionID)

	headers := map[string]string{
		"Referer": c.cfg.Steam.CommunityURL + "/market/",
		"Origin":  c.cfg.Steam.CommunityURL,
	}
	_, status, err := account.PostForm(ctx, c.cfg.Steam.CommunityURL+"/market/removelisting/"+listingID, form, headers)
	if err != nil {
		return fmt.Errorf("cancel listing %s: %w", listingID, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("cancel listing %s: status %d", listingID, status)
	}
	return nil
}

// CreateTradeOffer sends a trade offer. partnerID32 is the 32-bit
// account id from the partner's trade URL; token is their offer access
// token, empty for friends.
func (c *Client) CreateTradeOffer(ctx context.Context, account *session.Account, partnerID32, token string, offer TradeOffer, message string) (string, error) {
	if partnerID32 == "" {
		return "", errors.New("trade offer: empty partner id")
	}
	if offer.IsEmpty() {
		return "", errors.New("trade offer: no assets on either side")
	}
	sessionID, err := account.SessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("trade offer: %w", err)
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return "", fmt.Errorf("trade offer: %w", err)
	}
	createParams := "{}"
	if token != "" {
		encoded, err := json.Marshal(map[string]string{"trade_offer_access_token": token})
		if err != nil {
			return "", fmt.Errorf("trade offer: %w", err)
		}
		createParams = string(encoded)
	}

	form := url.Values{}
	form.Set("sessionid", sessionID)
	form.Set("serverid", "1")
	form.Set("partner", partnerID32)
	form.Set("tradeoffermessage", message)
	form.Set("json_tradeoffer", string(offerJSON))
	form.Set("captcha", "")
	form.Set("trade_offer_create_params", createParams)

	headers := map[string]string{
		"Referer": c.cfg.Steam.CommunityURL + "/tradeoffer/new",
		"Origin":  c.cfg.Steam.CommunityURL,
	}
	body, status, err := account.PostForm(ctx, c.cfg.Steam.CommunityURL+"/tradeoffer/new/send", form, headers)
	if err != nil {
		return "", fmt.Errorf("trade offer: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("trade offer: status %d: %s", status, string(body))
	}

	var resp tradeOfferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("trade offer: %w", err)
	}
	if resp.StrError != "" {
		return "", fmt.Errorf("trade offer: %s", resp.StrError)
	}
	return resp.TradeOfferID, nil
}

// CombineItemStacks merges quantity units from one stack into another
// through the inventory service API. Heavily rate limited; batch loops
// queue behind the shared combine limiter.
func (c *Client) CombineItemStacks(ctx context.Context, account *session.Account, appID int, fromItemID, destItemID string, quantity int64) error {
	if fromItemID == "" || destItemID == "" || quantity <= 0 {
		return errors.New("combine stacks: missing item ids or quantity")
	}
	token, err := account.WebToken(ctx)
	if err != nil {
		return fmt.Errorf("combine stacks: %w", err)
	}

	c.combine.Wait()

	form := url.Values{}
	form.Set("access_token", token)
	form.Set("appid", strconv.Itoa(appID))
	form.Set("fromitemid", fromItemID)
	form.Set("destitemid", destItemID)
	form.Set("quantity", strconv.FormatInt(quantity, 10))

	_, status, err := account.PostForm(ctx, c.cfg.Steam.APIURL+"/IInventoryService/CombineItemStacks/v1/", form, nil)
	if err != nil {
		return fmt.Errorf("combine stacks %s->%s: %w", fromItemID, destItemID, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("combine stacks %s->%s: status %d", fromItemID, destItemID, status)
	}
	return nil
}
