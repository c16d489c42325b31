package infra

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// currentUserAgent is protected by a mutex so the login helper and the
	// HTTP clients present one consistent browser identity.
	uaMu             sync.RWMutex
	currentUserAgent = GetPlatformUserAgent()
)

// GetUserAgent returns the current active User-Agent string. (Thread-safe)
func GetUserAgent() string {
	uaMu.RLock()
	defer uaMu.RUnlock()
	return currentUserAgent
}

// SetUserAgent updates the global User-Agent string. (Thread-safe)
func SetUserAgent(ua string) {
	uaMu.Lock()
	defer uaMu.Unlock()
	currentUserAgent = ua
}

// GetPlatformUserAgent generates a browser-like User-Agent string based on current OS.
func GetPlatformUserAgent() string {
	chromeVer := "120.0.0.0"
	osName := runtime.GOOS
	arch := runtime.GOARCH

	switch osName {
	case "windows":
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	case "linux":
		linuxArch := "x86_64"
		if arch == "arm64" {
			linuxArch = "aarch64"
		}
		return fmt.Sprintf("Mozilla/5.0 (X11; Linux %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", linuxArch, chromeVer)
	case "darwin":
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	default:
		return "Mozilla/5.0 (compatible; SteamWork/1.0)"
	}
}

// Config holds every runtime setting of the client.
// Secrets (passwords, refresh tokens) never live here; they come from the
// account store or the login flows.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Steam struct {
		CommunityURL      string `yaml:"community_url"`
		APIURL            string `yaml:"api_url"`
		AppID             int    `yaml:"appid"`
		ContextID         int64  `yaml:"context_id"`
		InventoryPageSize int    `yaml:"inventory_page_size"`
	} `yaml:"steam"`

	Helper struct {
		Dir        string `yaml:"dir"`
		Node       string `yaml:"node"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"helper"`

	Client struct {
		RequestTimeoutSec int `yaml:"request_timeout_sec"`
		LivenessWindowSec int `yaml:"liveness_window_sec"`
	} `yaml:"client"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a fully-defaulted config for tools and tests that
// run without a config file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "steam-work"
	}
	if c.App.Version == "" {
		c.App.Version = "0.1.0"
	}
	if c.Steam.CommunityURL == "" {
		c.Steam.CommunityURL = "https://steamcommunity.com"
	}
	if c.Steam.APIURL == "" {
		c.Steam.APIURL = "https://api.steampowered.com"
	}
	if c.Steam.AppID == 0 {
		c.Steam.AppID = 3017120
	}
	if c.Steam.ContextID == 0 {
		c.Steam.ContextID = 2
	}
	if c.Steam.InventoryPageSize == 0 {
		c.Steam.InventoryPageSize = 5000
	}
	if c.Helper.Dir == "" {
		c.Helper.Dir = "scripts"
	}
	if c.Helper.Node == "" {
		c.Helper.Node = "node"
	}
	if c.Helper.TimeoutSec == 0 {
		c.Helper.TimeoutSec = 120
	}
	if c.Client.RequestTimeoutSec == 0 {
		c.Client.RequestTimeoutSec = 10
	}
	if c.Client.LivenessWindowSec == 0 {
		c.Client.LivenessWindowSec = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if !hasPrefix(c.Steam.CommunityURL, "http://") && !hasPrefix(c.Steam.CommunityURL, "https://") {
		return fmt.Errorf("invalid community URL: %s", c.Steam.CommunityURL)
	}
	if !hasPrefix(c.Steam.APIURL, "http://") && !hasPrefix(c.Steam.APIURL, "https://") {
		return fmt.Errorf("invalid web API URL: %s", c.Steam.APIURL)
	}
	if c.Steam.AppID <= 0 {
		return fmt.Errorf("appid must be positive")
	}
	if c.Helper.TimeoutSec <= 0 {
		return fmt.Errorf("helper timeout must be positive")
	}
	if c.Client.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values, so a
// deployment can repoint the client without editing the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("STEAMWORK_COMMUNITY_URL"); v != "" {
		cfg.Steam.CommunityURL = v
	}
	if v := os.Getenv("STEAMWORK_API_URL"); v != "" {
		cfg.Steam.APIURL = v
	}
	if v := os.Getenv("STEAMWORK_HELPER_DIR"); v != "" {
		cfg.Helper.Dir = v
	}
	if v := os.Getenv("STEAMWORK_NODE"); v != "" {
		cfg.Helper.Node = v
	}
	if v := os.Getenv("STEAMWORK_APPID"); v != "" {
		if appid, err := strconv.Atoi(v); err == nil {
			cfg.Steam.AppID = appid
		}
	}
	if v := os.Getenv("STEAMWORK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
