package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Kostya12rus/steam-work-example/internal/event"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
	"github.com/Kostya12rus/steam-work-example/internal/session"
)

// ErrLoginInProgress is returned when a login attempt is rejected
// because another one is still running.
var ErrLoginInProgress = errors.New("another login attempt is in progress")

// QRChallenge is the payload of a qr.ready event.
type QRChallenge struct {
	AttemptID string
	URL       string
}

// AuthError is the payload of an auth.error event.
type AuthError struct {
	AttemptID string
	Message   string
}

// Orchestrator runs login flows. At most one flow runs at a time; a
// second call returns ErrLoginInProgress instead of queueing.
type Orchestrator struct {
	log *slog.Logger
	bus *event.Bus

	helperDir string
	nodeBin   string
	timeout   time.Duration

	sessionOpts session.Options

	busy atomic.Bool
}

// NewOrchestrator wires an orchestrator from the app config.
func NewOrchestrator(log *slog.Logger, bus *event.Bus, cfg *infra.Config) *Orchestrator {
	return &Orchestrator{
		log:       log,
		bus:       bus,
		helperDir: cfg.Helper.Dir,
		nodeBin:   cfg.Helper.Node,
		timeout:   time.Duration(cfg.Helper.TimeoutSec) * time.Second,
		sessionOpts: session.Options{
			CommunityURL:   cfg.Steam.CommunityURL,
			RequestTimeout: time.Duration(cfg.Client.RequestTimeoutSec) * time.Second,
			LivenessWindow: time.Duration(cfg.Client.LivenessWindowSec) * time.Second,
			Logger:         log,
			Bus:            bus,
		},
	}
}

// LoginWithQR runs the QR challenge flow. The challenge URL is published
// on the bus as soon as the helper emits it; the call blocks until the
// flow finishes or times out.
func (o *Orchestrator) LoginWithQR(ctx context.Context) (*session.Account, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrLoginInProgress
	}
	defer o.busy.Store(false)

	attemptID := uuid.NewString()
	log := o.log.With(slog.String("attempt_id", attemptID), slog.String("flow", "qr"))

	if err := o.checkScript(scriptQRCode, attemptID); err != nil {
		return nil, err
	}

	res, err := runHelper(ctx, o.nodeBin, o.helperDir, scriptQRCode, "", o.timeout, helperEvents{
		onQRURL: func(url string) {
			log.Info("qr challenge ready")
			o.bus.Trigger(event.TopicQRReady, QRChallenge{AttemptID: attemptID, URL: url})
		},
	})
	if err != nil {
		log.Warn("qr login failed", slog.Any("error", err))
		o.bus.Trigger(event.TopicQRTimeout, attemptID)
		return nil, err
	}

	account, err := o.buildAccount(res)
	if err != nil {
		o.authError(attemptID, err)
		return nil, err
	}
	log.Info("authenticated", slog.String("account", account.Name()))
	o.bus.Trigger(event.TopicLoggedIn, account)
	return account, nil
}

// LoginWithPassword runs the credentials flow. guardCode may be empty;
// the helper then requests a device or email confirmation, surfaced as
// bus events while the call keeps waiting.
func (o *Orchestrator) LoginWithPassword(ctx context.Context, login, password, guardCode string) (*session.Account, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrLoginInProgress
	}
	defer o.busy.Store(false)

	attemptID := uuid.NewString()
	log := o.log.With(slog.String("attempt_id", attemptID), slog.String("flow", "password"))

	if err := o.checkScript(scriptPassword, attemptID); err != nil {
		return nil, err
	}

	arg := fmt.Sprintf("%s:%s:%s", login, password, guardCode)
	res, err := runHelper(ctx, o.nodeBin, o.helperDir, scriptPassword, arg, o.timeout, helperEvents{
		onConfirmDevice: func() {
			log.Info("device confirmation requested")
			o.bus.Trigger(event.TopicConfirmDevice, attemptID)
		},
		onConfirmEmail: func() {
			log.Info("email confirmation requested")
			o.bus.Trigger(event.TopicConfirmEmail, attemptID)
		},
	})
	if err != nil {
		log.Warn("password login failed", slog.Any("error", err))
		o.authError(attemptID, err)
		return nil, err
	}

	if res.AccountName == "" {
		res.AccountName = login
	}
	account, err := o.buildAccount(res)
	if err != nil {
		o.authError(attemptID, err)
		return nil, err
	}
	log.Info("authenticated", slog.String("account", account.Name()))
	o.bus.Trigger(event.TopicLoggedIn, account)
	return account, nil
}

// LoginWithRefreshToken re-establishes a session for a stored account.
// A still-valid cookie session short-circuits without starting the
// helper at all.
func (o *Orchestrator) LoginWithRefreshToken(ctx context.Context, account *session.Account) error {
	if account == nil || account.RefreshToken() == "" {
		return errors.New("account has no refresh token")
	}

	if account.IsAlive(ctx) {
		o.bus.Trigger(event.TopicLoggedIn, account)
		return nil
	}

	if !o.busy.CompareAndSwap(false, true) {
		return ErrLoginInProgress
	}
	defer o.busy.Store(false)

	attemptID := uuid.NewString()
	log := o.log.With(slog.String("attempt_id", attemptID), slog.String("flow", "refresh"))

	if err := o.checkScript(scriptRefreshToken, attemptID); err != nil {
		return err
	}

	res, err := runHelper(ctx, o.nodeBin, o.helperDir, scriptRefreshToken, account.RefreshToken(), o.timeout, helperEvents{})
	if err != nil {
		log.Warn("refresh login failed", slog.Any("error", err))
		o.authError(attemptID, err)
		return err
	}

	account.SetIdentity(res.AccountName, res.SteamID)
	if res.RefreshToken != "" {
		account.SetRefreshToken(res.RefreshToken)
	}
	account.Invalidate()
	if err := account.SetCookies(hostScoped(res.Cookies)); err != nil {
		o.authError(attemptID, err)
		return err
	}
	account.MarkAlive()

	log.Info("authenticated", slog.String("account", account.Name()))
	o.bus.Trigger(event.TopicLoggedIn, account)
	return nil
}

// Logout drops the account's session material and announces it.
func (o *Orchestrator) Logout(account *session.Account) {
	if account == nil {
		return
	}
	account.Invalidate()
	o.log.Info("logged out", slog.String("account", account.Name()))
	o.bus.Trigger(event.TopicLoggedOut, account.Name())
}

func (o *Orchestrator) checkScript(script, attemptID string) error {
	path := filepath.Join(o.helperDir, script)
	if _, err := os.Stat(path); err != nil {
		err = fmt.Errorf("helper script %s not found: %w", path, err)
		o.authError(attemptID, err)
		return err
	}
	return nil
}

func (o *Orchestrator) authError(attemptID string, err error) {
	o.bus.Trigger(event.TopicAuthError, AuthError{AttemptID: attemptID, Message: err.Error()})
}

func (o *Orchestrator) buildAccount(res *helperResult) (*session.Account, error) {
	account, err := session.NewAccount(res.AccountName, res.SteamID, res.RefreshToken, o.sessionOpts)
	if err != nil {
		return nil, err
	}
	if err := account.SetCookies(hostScoped(res.Cookies)); err != nil {
		return nil, err
	}
	account.MarkAlive()
	return account, nil
}

// hostScoped strips the Domain attribute so the jar stores the cookies
// against the configured community host. The helper only ever talks to
// that host, so the wider domain scope carries no information.
func hostScoped(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cp := *c
		cp.Domain = ""
		out = append(out, &cp)
	}
	return out
}
