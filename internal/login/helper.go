// Package login drives the external Node helper scripts that perform
// the actual authentication handshake, and turns their line-oriented
// stdout into account sessions and events.
package login

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Helper script names, resolved against the configured helper dir.
const (
	scriptQRCode       = "session_qrcode.js"
	scriptPassword     = "session_login_password.js"
	scriptRefreshToken = "session_refresh_token.js"
)

// ErrHelperTimeout is returned when a helper runs past its deadline and
// gets killed.
var ErrHelperTimeout = errors.New("login helper timed out")

// helperEvents receives streaming notifications while the helper runs.
// Any callback may be nil.
type helperEvents struct {
	onQRURL         func(url string)
	onConfirmDevice func()
	onConfirmEmail  func()
}

// helperResult is the identity material accumulated from helper stdout.
type helperResult struct {
	AccountName  string
	SteamID      string
	RefreshToken string
	Cookies      []*http.Cookie
}

// runHelper starts `node <script> [arg]`, parses its stdout line grammar
// and waits for exit. The process is killed when the timeout elapses or
// ctx is cancelled. A zero exit code yields the accumulated result.
//
// Line grammar, one record per line:
//
//	accountName=NAME        login name of the authenticated account
//	steamID=ID              64-bit id
//	refreshToken=TOKEN      long-lived re-login token
//	http...                 challenge URL to render as a QR code
//	...Domain=...           a Set-Cookie style session cookie
//	...DeviceConfirmation   mobile confirmation required
//	...EmailConfirmation    email confirmation required
func runHelper(ctx context.Context, nodeBin, scriptDir, script string, arg string, timeout time.Duration, ev helperEvents) (*helperResult, error) {
	scriptPath := filepath.Join(scriptDir, script)

	args := []string{scriptPath}
	if arg != "" {
		args = append(args, arg)
	}
	cmd := exec.CommandContext(ctx, nodeBin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("helper stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", script, err)
	}

	res := &helperResult{}
	lines := make(chan string)
	scanDone := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lines <- line
			}
		}
		close(lines)
		close(scanDone)
	}()

	// Wait must not run before the stdout pipe drains, or output is lost.
	waitCh := make(chan error, 1)
	go func() {
		<-scanDone
		waitCh <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// After a kill the scanner may still hold buffered output; keep the
	// channel moving so it can reach EOF and let Wait return.
	drain := func() {
		if lines == nil {
			return
		}
		go func() {
			for range lines {
			}
		}()
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			parseHelperLine(line, res, ev)
		case err := <-waitCh:
			if err != nil {
				return nil, fmt.Errorf("%s: %w", script, err)
			}
			return res, nil
		case <-timer.C:
			_ = cmd.Process.Kill()
			drain()
			<-waitCh
			return nil, ErrHelperTimeout
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			drain()
			<-waitCh
			return nil, ctx.Err()
		}
	}
}

func parseHelperLine(line string, res *helperResult, ev helperEvents) {
	switch {
	case strings.HasPrefix(line, "accountName"):
		res.AccountName = valueAfterEquals(line)
	case strings.HasPrefix(line, "steamID"):
		res.SteamID = valueAfterEquals(line)
	case strings.HasPrefix(line, "refreshToken"):
		res.RefreshToken = valueAfterEquals(line)
	case strings.HasPrefix(line, "http"):
		if ev.onQRURL != nil {
			ev.onQRURL(line)
		}
	case strings.Contains(line, "Domain="):
		if c := parseCookieLine(line); c != nil {
			res.Cookies = append(res.Cookies, c)
		}
	case strings.Contains(line, "DeviceConfirmation"):
		if ev.onConfirmDevice != nil {
			ev.onConfirmDevice()
		}
	case strings.Contains(line, "EmailConfirmation"):
		if ev.onConfirmEmail != nil {
			ev.onConfirmEmail()
		}
	}
}

func valueAfterEquals(line string) string {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// parseCookieLine decodes one Set-Cookie style line into a cookie.
// Unknown attributes are ignored; a line without name=value yields nil.
func parseCookieLine(line string) *http.Cookie {
	parts := strings.Split(line, "; ")
	if len(parts) == 0 {
		return nil
	}
	name, value, ok := strings.Cut(parts[0], "=")
	if !ok || name == "" {
		return nil
	}

	cookie := &http.Cookie{Name: name, Value: value, Path: "/"}
	for _, attr := range parts[1:] {
		key, val, hasVal := strings.Cut(attr, "=")
		switch strings.ToLower(key) {
		case "domain":
			if hasVal {
				cookie.Domain = val
			}
		case "path":
			if hasVal {
				cookie.Path = val
			}
		case "secure":
			cookie.Secure = true
		case "httponly":
			cookie.HttpOnly = true
		}
	}
	return cookie
}
