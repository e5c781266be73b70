package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/retry"
)

// Fetcher wraps a Scraper with the configured retry policy. Transient
// failures are retried with an escalating delay; exhaustion surfaces as
// ErrScrapeUnavailable.
type Fetcher struct {
	scraper Scraper
	policy  retry.Policy
	sleep   retry.Sleeper
	log     *slog.Logger
}

func NewFetcher(s Scraper, cfg config.ScrapeConfig, log *slog.Logger) *Fetcher {
	return &Fetcher{
		scraper: s,
		policy: retry.Policy{
			MaxAttempts: cfg.FetchRetries,
			Delay:       cfg.FetchDelay,
			Escalate:    true,
		},
		sleep: retry.SleepContext,
		log:   log,
	}
}

// NewFetcherWithSleeper injects the sleeper, for tests.
func NewFetcherWithSleeper(s Scraper, policy retry.Policy, sleep retry.Sleeper, log *slog.Logger) *Fetcher {
	return &Fetcher{scraper: s, policy: policy, sleep: sleep, log: log}
}

// FetchRecentPosts returns up to count posts, newest first. count is clamped
// to 1..5. Fewer posts than requested is not an error.
func (f *Fetcher) FetchRecentPosts(ctx context.Context, count int) ([]Post, error) {
	count = config.ClampCount(count)

	var posts []Post
	attempt := 0
	err := retry.DoWithSleeper(ctx, f.policy, f.sleep, func(ctx context.Context) error {
		attempt++
		got, err := f.scraper.FetchPosts(ctx, count)
		if err != nil {
			f.log.Warn("fetch attempt failed", "attempt", attempt, "err", err)
			return err
		}
		posts = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeUnavailable, err)
	}
	return posts, nil
}
