package fetch

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited wraps a Fetcher so fetches are spaced by a token bucket. It is
// used for per-event detail pages, which can number in the dozens per venue.
type Limited struct {
	Fetcher
	limiter *rate.Limiter
}

// NewLimited allows perSecond fetches per second with the given burst.
// A non-positive perSecond disables limiting.
func NewLimited(f Fetcher, perSecond float64, burst int) *Limited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{Fetcher: f, limiter: rate.NewLimiter(limit, burst)}
}

// Fetch waits for a token, then delegates.
func (l *Limited) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Fetcher.Fetch(ctx, url)
}
