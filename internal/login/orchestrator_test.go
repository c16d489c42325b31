package login

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kostya12rus/steam-work-example/internal/event"
	"github.com/Kostya12rus/steam-work-example/internal/infra"
)

// writeScript plants a fake helper; the node binary is swapped for sh.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func testOrchestrator(t *testing.T, dir string, bus *event.Bus) *Orchestrator {
	t.Helper()
	cfg := infra.DefaultConfig()
	cfg.Helper.Dir = dir
	cfg.Helper.Node = "/bin/sh"
	cfg.Helper.TimeoutSec = 5
	o := NewOrchestrator(slog.Default(), bus, cfg)
	return o
}

func collect(bus *event.Bus, topic event.Topic) <-chan any {
	ch := make(chan any, 8)
	bus.Register(topic, func(payload any) { ch <- payload })
	return ch
}

func TestLoginWithPassword(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptPassword, `
echo "accountName=tester"
echo "steamID=76561198000000001"
echo "refreshToken=tok123"
echo "sessionid=abc123; Domain=steamcommunity.com; Path=/; Secure"
echo "steamLoginSecure=765%7C%7Ctoken; Domain=steamcommunity.com; Path=/; Secure; HttpOnly"
`)

	bus := event.NewBus(2)
	defer bus.Close()
	loggedIn := collect(bus, event.TopicLoggedIn)

	o := testOrchestrator(t, dir, bus)
	account, err := o.LoginWithPassword(context.Background(), "tester", "hunter2", "")
	if err != nil {
		t.Fatalf("LoginWithPassword: %v", err)
	}

	if account.Name() != "tester" || account.SteamID() != "76561198000000001" {
		t.Errorf("identity = %s/%s", account.Name(), account.SteamID())
	}
	if account.RefreshToken() != "tok123" {
		t.Errorf("refresh token = %q", account.RefreshToken())
	}
	if got := len(account.Cookies()); got != 2 {
		t.Errorf("cookies = %d, want 2", got)
	}

	select {
	case payload := <-loggedIn:
		if payload != account {
			t.Error("logged-in payload is not the account")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no logged-in event")
	}
}

func TestLoginWithPassword_ConfirmationEvents(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptPassword, `
echo "DeviceConfirmation required"
echo "EmailConfirmation required"
echo "accountName=tester"
echo "steamID=1"
`)

	bus := event.NewBus(2)
	defer bus.Close()
	device := collect(bus, event.TopicConfirmDevice)
	email := collect(bus, event.TopicConfirmEmail)

	o := testOrchestrator(t, dir, bus)
	if _, err := o.LoginWithPassword(context.Background(), "tester", "pw", ""); err != nil {
		t.Fatalf("LoginWithPassword: %v", err)
	}

	for name, ch := range map[string]<-chan any{"device": device, "email": email} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s confirmation event", name)
		}
	}
}

func TestLoginWithPassword_HelperFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptPassword, `exit 1`)

	bus := event.NewBus(2)
	defer bus.Close()
	authErr := collect(bus, event.TopicAuthError)

	o := testOrchestrator(t, dir, bus)
	if _, err := o.LoginWithPassword(context.Background(), "tester", "pw", ""); err == nil {
		t.Fatal("expected an error for a failing helper")
	}

	select {
	case payload := <-authErr:
		if _, ok := payload.(AuthError); !ok {
			t.Errorf("payload type = %T", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no auth error event")
	}
}

func TestLoginWithQR(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptQRCode, `
echo "https://s.team/q/1/challenge"
echo "accountName=qruser"
echo "steamID=2"
echo "refreshToken=tok"
`)

	bus := event.NewBus(2)
	defer bus.Close()
	qrReady := collect(bus, event.TopicQRReady)

	o := testOrchestrator(t, dir, bus)
	account, err := o.LoginWithQR(context.Background())
	if err != nil {
		t.Fatalf("LoginWithQR: %v", err)
	}
	if account.Name() != "qruser" {
		t.Errorf("name = %q", account.Name())
	}

	select {
	case payload := <-qrReady:
		ch, ok := payload.(QRChallenge)
		if !ok || ch.URL != "https://s.team/q/1/challenge" {
			t.Errorf("qr payload = %#v", payload)
		}
		if ch.AttemptID == "" {
			t.Error("empty attempt id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no qr ready event")
	}
}

func TestLoginWithQR_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptQRCode, `sleep 30`)

	bus := event.NewBus(2)
	defer bus.Close()
	qrTimeout := collect(bus, event.TopicQRTimeout)

	o := testOrchestrator(t, dir, bus)
	o.timeout = 100 * time.Millisecond

	if _, err := o.LoginWithQR(context.Background()); !errors.Is(err, ErrHelperTimeout) {
		t.Fatalf("err = %v, want ErrHelperTimeout", err)
	}

	select {
	case <-qrTimeout:
	case <-time.After(2 * time.Second):
		t.Fatal("no qr timeout event")
	}
}

func TestLogin_SingleFlight(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, scriptPassword, `sleep 1
echo "accountName=tester"
echo "steamID=1"`)

	bus := event.NewBus(2)
	defer bus.Close()
	o := testOrchestrator(t, dir, bus)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := o.LoginWithPassword(context.Background(), "a", "b", "")
		done <- err
	}()
	<-started
	time.Sleep(100 * time.Millisecond)

	if _, err := o.LoginWithPassword(context.Background(), "c", "d", ""); !errors.Is(err, ErrLoginInProgress) {
		t.Fatalf("second attempt err = %v, want ErrLoginInProgress", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first attempt err = %v", err)
	}
}

func TestLogin_MissingScript(t *testing.T) {
	bus := event.NewBus(2)
	defer bus.Close()
	authErr := collect(bus, event.TopicAuthError)

	o := testOrchestrator(t, t.TempDir(), bus)
	if _, err := o.LoginWithQR(context.Background()); err == nil {
		t.Fatal("expected an error for a missing script")
	}

	select {
	case <-authErr:
	case <-time.After(2 * time.Second):
		t.Fatal("no auth error event")
	}
}

func TestParseCookieLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *struct{ name, value, domain, path string }
	}{
		{
			"Full Attributes",
			"sessionid=abc; Domain=steamcommunity.com; Path=/market; Secure; HttpOnly",
			&struct{ name, value, domain, path string }{"sessionid", "abc", "steamcommunity.com", "/market"},
		},
		{
			"Defaults Path",
			"steamCountry=RU; Domain=steamcommunity.com",
			&struct{ name, value, domain, path string }{"steamCountry", "RU", "steamcommunity.com", "/"},
		},
		{"No Pair", "garbage line", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCookieLine(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a cookie")
			}
			if got.Name != tt.want.name || got.Value != tt.want.value ||
				got.Domain != tt.want.domain || got.Path != tt.want.path {
				t.Errorf("cookie = %+v", got)
			}
		})
	}
}
