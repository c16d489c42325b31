package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// storedCookie is the persisted shape of one session cookie.
type storedCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
	Secure bool   `json:"secure,omitempty"`
}

// State is the serializable part of an account, enough to rebuild the
// session without a fresh login as long as the cookies still validate.
type State struct {
	Name         string         `json:"account_name"`
	SteamID      string         `json:"steam_id"`
	RefreshToken string         `json:"refresh_token"`
	Cookies      []storedCookie `json:"cookies"`
	SavedAt      time.Time      `json:"saved_at"`
}

// Snapshot captures the account state for persistence.
func (a *Account) Snapshot() State {
	st := State{
		Name:         a.Name(),
		SteamID:      a.SteamID(),
		RefreshToken: a.RefreshToken(),
		SavedAt:      time.Now().UTC(),
	}
	for _, c := range a.Cookies() {
		st.Cookies = append(st.Cookies, storedCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	return st
}

// Restore builds an account from a persisted state. The liveness cache
// starts cold, so the first IsAlive call verifies the cookies.
func Restore(st State, opts Options) (*Account, error) {
	a, err := NewAccount(st.Name, st.SteamID, st.RefreshToken, opts)
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   path,
			Secure: c.Secure,
		})
	}
	if err := a.SetCookies(cookies); err != nil {
		return nil, err
	}
	return a, nil
}

// Encode renders the state as JSON for the accounts table.
func (st State) Encode() ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted JSON state blob.
func DecodeState(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	return st, nil
}
