// Package config holds the runtime settings of one formfetch invocation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultUserAgent is the desktop browser UA sent with both requests.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// DefaultAcceptLanguage is sent as Accept-Language with both requests.
	DefaultAcceptLanguage = "en-US,en;q=0.5"
	// DefaultTimeout bounds connecting and waiting for response headers.
	DefaultTimeout = 5 * time.Minute
)

// Environment variables consulted by DefaultConfig.
const (
	EnvProxy          = "FORMFETCH_PROXY"
	EnvTimeout        = "FORMFETCH_TIMEOUT"
	EnvUserAgent      = "FORMFETCH_USER_AGENT"
	EnvAcceptLanguage = "FORMFETCH_ACCEPT_LANGUAGE"
	EnvVerbosity      = "FORMFETCH_VERBOSITY"
)

// Config describes one download run.
type Config struct {
	// URL is the landing page holding the download form.
	URL string
	// Output, when set, is used verbatim as the target filename.
	Output string
	// Proxy is an optional scheme://[user:pass@]host:port URI.
	Proxy string
	// Verbosity is the number of -v flags.
	Verbosity int
	// Timeout bounds connecting and waiting for response headers of each
	// request; zero disables it. Body transfer is never bounded.
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
}

// DefaultConfig populates configuration from environment variables.
func DefaultConfig() Config {
	cfg := Config{
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		Proxy:          strings.TrimSpace(os.Getenv(EnvProxy)),
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserAgent)); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAcceptLanguage)); v != "" {
		cfg.AcceptLanguage = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvVerbosity)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Verbosity = n
		}
	}
	return cfg
}

// LoadEnv loads the given dotenv files into the process environment.
// Missing files are skipped; variables already set are left alone.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports the first problem that would make a run pointless.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("config: url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("config: invalid url: %w", err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return fmt.Errorf("config: url must be http or https, got %q", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("config: url has no host: %q", c.URL)
	}
	if _, err := c.ProxyURL(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	return nil
}

// ProxyURL parses Proxy. It returns nil, nil when no proxy is configured.
func (c Config) ProxyURL() (*url.URL, error) {
	raw := strings.TrimSpace(c.Proxy)
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: invalid proxy: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("config: unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("config: proxy has no host: %q", raw)
	}
	return u, nil
}
