package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome. The browser process is
// started on the first Fetch and shared by later fetches, one tab each.
type BrowserFetcher struct {
	opts Options

	mu           sync.Mutex
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
	closed       bool
}

// NewBrowser creates a BrowserFetcher. No process is started until Fetch.
func NewBrowser(opts Options) *BrowserFetcher {
	return &BrowserFetcher{opts: opts.withDefaults()}
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
	)
}

// start launches the browser. The allocator is rooted at Background so the
// process outlives any single caller's context; Close tears it down.
func (f *BrowserFetcher) start() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("browser fetcher closed")
	}
	if f.browserCtx != nil {
		return f.browserCtx, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(f.opts)...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	f.browserCtx = browserCtx
	f.cancelAlloc = cancelAlloc
	f.cancelBrowse = cancelBrowse
	return browserCtx, nil
}

// Fetch navigates a new tab to url, waits for the body plus the settle
// delay and returns the rendered outer HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	browserCtx, err := f.start()
	if err != nil {
		return nil, err
	}

	tab, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tab, f.opts.Timeout+f.opts.SettleDelay)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, location string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.opts.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rendering page: %w", ctx.Err())
		}
		return nil, fmt.Errorf("rendering page: %w", err)
	}

	if location == "" {
		location = url
	}
	return &Page{URL: location, HTML: html, StatusCode: 200}, nil
}

// Close shuts the browser down. Safe to call more than once.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.cancelBrowse != nil {
		f.cancelBrowse()
	}
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	f.browserCtx = nil
	return nil
}
