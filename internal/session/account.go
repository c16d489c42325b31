// Package session holds the authenticated account state: cookies, the
// HTTP client bound to them, wallet info and the cached liveness probe.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/Kostya12rus/steam-work-example/internal/event"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
)

var (
	steamIDPattern   = regexp.MustCompile(`g_steamID\s*=\s*"(\d+)"`)
	sessionIDPattern = regexp.MustCompile(`g_sessionID\s*=\s*"([^"]+)"`)
	webTokenPattern  = regexp.MustCompile(`loyalty_webapi_token\s*=\s*"([^"]+)"`)
	walletPattern    = regexp.MustCompile(`var g_rgWalletInfo = ({.*?});`)
)

// WalletInfo is the wallet block embedded in market pages. Numeric
// fields arrive quoted or bare depending on the page, so decimals decode
// both.
type WalletInfo struct {
	Currency            int             `json:"wallet_currency"`
	Country             string          `json:"wallet_country"`
	Balance             decimal.Decimal `json:"wallet_balance"`
	Fee                 decimal.Decimal `json:"wallet_fee"`
	FeeMinimum          decimal.Decimal `json:"wallet_fee_minimum"`
	FeePercent          decimal.Decimal `json:"wallet_fee_percent"`
	PublisherFeePercent decimal.Decimal `json:"wallet_publisher_fee_percent_default"`
}

// BalanceCents returns the wallet balance in integer cents.
func (w *WalletInfo) BalanceCents() int64 {
	if w == nil {
		return 0
	}
	return w.Balance.IntPart()
}

// FormatBalance renders the balance as a major-unit price string.
func (w *WalletInfo) FormatBalance() string {
	if w == nil {
		return "0.00"
	}
	return w.Balance.Div(decimal.NewFromInt(100)).StringFixed(2)
}

// Options configures a new Account.
type Options struct {
	CommunityURL   string
	UserAgent      string
	RequestTimeout time.Duration
	LivenessWindow time.Duration
	Logger         *slog.Logger
	Bus            *event.Bus
}

func (o *Options) applyDefaults() {
	if o.CommunityURL == "" {
		o.CommunityURL = "https://steamcommunity.com"
	}
	if o.UserAgent == "" {
		o.UserAgent = infra.GetUserAgent()
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.LivenessWindow <= 0 {
		o.LivenessWindow = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Account is one logged-in identity. All mutable state is guarded; the
// embedded client shares the cookie jar with every consumer, so a cookie
// refresh anywhere is visible everywhere.
type Account struct {
	opts Options

	mu           sync.Mutex
	name         string
	steamID      string
	refreshToken string
	sessionID    string
	webToken     string
	wallet       *WalletInfo

	client *http.Client

	// aliveMu serializes liveness probes so a burst of callers costs at
	// most one request per window.
	aliveMu   sync.Mutex
	lastCheck time.Time
	lastAlive bool
}

// NewAccount builds an account with an empty cookie jar.
func NewAccount(name, steamID, refreshToken string, opts Options) (*Account, error) {
	opts.applyDefaults()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Account{
		opts:         opts,
		name:         name,
		steamID:      steamID,
		refreshToken: refreshToken,
		client: &http.Client{
			Jar:     jar,
			Timeout: opts.RequestTimeout,
		},
	}, nil
}

// Name returns the account login name.
func (a *Account) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// SteamID returns the 64-bit account id as a string.
func (a *Account) SteamID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.steamID
}

// RefreshToken returns the long-lived token used for silent re-login.
func (a *Account) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshToken
}

// SetRefreshToken replaces the stored refresh token.
func (a *Account) SetRefreshToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshToken = token
}

// SetIdentity fills in name and id learned during login.
func (a *Account) SetIdentity(name, steamID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name != "" {
		a.name = name
	}
	if steamID != "" {
		a.steamID = steamID
	}
}

// Client returns the HTTP client carrying the account's cookies.
func (a *Account) Client() *http.Client {
	return a.client
}

// CommunityURL returns the community site base this account talks to.
func (a *Account) CommunityURL() string {
	return a.opts.CommunityURL
}

// UserAgent returns the UA string sent with every request.
func (a *Account) UserAgent() string {
	return a.opts.UserAgent
}

// SetCookies stores cookies in the jar under the community domain.
func (a *Account) SetCookies(cookies []*http.Cookie) error {
	base, err := url.Parse(a.opts.CommunityURL)
	if err != nil {
		return fmt.Errorf("community url: %w", err)
	}
	a.client.Jar.SetCookies(base, cookies)
	return nil
}

// SetCookie stores a single name=value cookie under the community domain.
func (a *Account) SetCookie(name, value string) error {
	return a.SetCookies([]*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// Cookies returns the cookies currently held for the community domain.
func (a *Account) Cookies() []*http.Cookie {
	base, err := url.Parse(a.opts.CommunityURL)
	if err != nil {
		return nil
	}
	return a.client.Jar.Cookies(base)
}

// Get performs an authenticated GET and returns the response body.
func (a *Account) Get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", a.opts.UserAgent)

	resp, err := a.client.Do(req)
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

// PostForm performs an authenticated form POST with the given headers.
func (a *Account) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", a.opts.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
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

// IsAlive reports whether the cookie session is still accepted. Results
// are cached for the liveness window; within it no request is made. Only
// one probe runs at a time, so concurrent callers piggyback on the same
// result. Every failed fresh probe fires a session-expired event,
// including the first probe of a restored account.
func (a *Account) IsAlive(ctx context.Context) bool {
	return a.checkAlive(ctx, true)
}

// IsAliveFresh probes the session immediately, ignoring a cached result.
// The outcome refills the cache.
func (a *Account) IsAliveFresh(ctx context.Context) bool {
	return a.checkAlive(ctx, false)
}

func (a *Account) checkAlive(ctx context.Context, useCache bool) bool {
	a.aliveMu.Lock()
	defer a.aliveMu.Unlock()

	if useCache && time.Since(a.lastCheck) < a.opts.LivenessWindow {
		return a.lastAlive
	}

	alive := a.probe(ctx)
	a.lastCheck = time.Now()
	a.lastAlive = alive

	if !alive && a.opts.Bus != nil {
		a.opts.Bus.Trigger(event.TopicSessionExpired, a.Name())
	}
	return alive
}

// MarkAlive primes the liveness cache, used right after a fresh login.
func (a *Account) MarkAlive() {
	a.aliveMu.Lock()
	defer a.aliveMu.Unlock()
	a.lastCheck = time.Now()
	a.lastAlive = true
}

// probe fetches the market page and checks for a logged-in identity.
// The same response seeds the session id and wallet caches.
func (a *Account) probe(ctx context.Context) bool {
	body, status, err := a.Get(ctx, a.opts.CommunityURL+"/market/")
	if err != nil {
		a.opts.Logger.Warn("session probe failed",
			slog.String("account", a.Name()),
			slog.Any("error", err))
		return false
	}
	if status != http.StatusOK {
		return false
	}

	m := steamIDPattern.FindSubmatch(body)
	if m == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.steamID != "" && a.steamID != string(m[1]) {
		return false
	}
	a.steamID = string(m[1])
	if s := sessionIDPattern.FindSubmatch(body); s != nil {
		a.sessionID = string(s[1])
	}
	if tkn := webTokenPattern.FindSubmatch(body); tkn != nil {
		a.webToken = string(tkn[1])
	}
	if w := walletPattern.FindSubmatch(body); w != nil {
		var info WalletInfo
		if err := json.Unmarshal(w[1], &info); err == nil {
			a.wallet = &info
		}
	}
	return true
}

// SessionID returns the anti-forgery token required by form POSTs. The
// cookie value is preferred; a page fetch fills the cache when cookies
// carry none.
func (a *Account) SessionID(ctx context.Context) (string, error) {
	for _, c := range a.Cookies() {
		if c.Name == "sessionid" && c.Value != "" {
			return c.Value, nil
		}
	}

	a.mu.Lock()
	cached := a.sessionID
	a.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	body, _, err := a.Get(ctx, a.opts.CommunityURL+"/market/")
	if err != nil {
		return "", fmt.Errorf("fetch session id: %w", err)
	}
	m := sessionIDPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("session id not present on page")
	}
	a.mu.Lock()
	a.sessionID = string(m[1])
	a.mu.Unlock()
	return string(m[1]), nil
}

// WebToken returns the loyalty webapi bearer token scraped from the
// market page. Cached until the session is rebuilt. A dead session is an
// error, not a scrape miss; the liveness check fires the expiry event.
func (a *Account) WebToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	cached := a.webToken
	a.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	if !a.IsAlive(ctx) {
		return "", fmt.Errorf("fetch web token: session is not alive")
	}
	// The probe may have seeded the token already.
	a.mu.Lock()
	cached = a.webToken
	a.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	body, _, err := a.Get(ctx, a.opts.CommunityURL+"/market/")
	if err != nil {
		return "", fmt.Errorf("fetch web token: %w", err)
	}
	m := webTokenPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("web token not present on page")
	}
	a.mu.Lock()
	a.webToken = string(m[1])
	a.mu.Unlock()
	return string(m[1]), nil
}

// WalletInfo returns the cached wallet block, fetching it on first use.
// Like WebToken, it refuses to scrape through a dead session.
func (a *Account) WalletInfo(ctx context.Context) (*WalletInfo, error) {
	a.mu.Lock()
	cached := a.wallet
	a.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	if !a.IsAlive(ctx) {
		return nil, fmt.Errorf("fetch wallet info: session is not alive")
	}
	a.mu.Lock()
	cached = a.wallet
	a.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	body, _, err := a.Get(ctx, a.opts.CommunityURL+"/market/")
	if err != nil {
		return nil, fmt.Errorf("fetch wallet info: %w", err)
	}
	m := walletPattern.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("wallet info not present on page")
	}
	var info WalletInfo
	if err := json.Unmarshal(m[1], &info); err != nil {
		return nil, fmt.Errorf("decode wallet info: %w", err)
	}
	a.mu.Lock()
	a.wallet = &info
	a.mu.Unlock()
	return &info, nil
}

func (a *Account) lastProbeTime() time.Time {
	a.aliveMu.Lock()
	defer a.aliveMu.Unlock()
	return a.lastCheck
}

// Invalidate drops all derived caches after a logout or cookie change.
func (a *Account) Invalidate() {
	a.mu.Lock()
	a.sessionID = ""
	a.webToken = ""
	a.wallet = nil
	a.mu.Unlock()

	a.aliveMu.Lock()
	a.lastCheck = time.Time{}
	a.lastAlive = false
	a.aliveMu.Unlock()
}
