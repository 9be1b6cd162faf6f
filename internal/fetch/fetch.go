package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultUserAgent is a realistic desktop browser string. Several venue
	// sites serve an empty shell to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	DefaultSettle    = 3 * time.Second
)

// Mode selects the fetch strategy.
type Mode string

const (
	ModeHTTP    Mode = "http"
	ModeBrowser Mode = "browser"
)

// ParseMode maps a config string to a Mode. Empty means HTTP.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "http", "static":
		return ModeHTTP, nil
	case "browser", "chrome", "headless":
		return ModeBrowser, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want http or browser)", s)
	}
}

// Page is a fetched document.
type Page struct {
	URL        string
	HTML       string
	StatusCode int
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Close() error
}

// Options configure both fetch strategies.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// SettleDelay is how long the browser waits after the body is ready so
	// client-side rendering can finish.
	SettleDelay time.Duration
	Headless    bool
}

// DefaultOptions returns options suitable for most venues.
func DefaultOptions() Options {
	return Options{
		UserAgent:   DefaultUserAgent,
		Timeout:     DefaultTimeout,
		SettleDelay: DefaultSettle,
		Headless:    true,
	}
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	return o
}

// New returns a Fetcher for mode.
func New(mode Mode, opts Options) (Fetcher, error) {
	switch mode {
	case ModeHTTP, "":
		return NewHTTP(opts), nil
	case ModeBrowser:
		return NewBrowser(opts), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", mode)
	}
}
