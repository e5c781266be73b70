// Package gateway wires the Discord channel, the scraper, and the model
// selection machinery together and runs the bot's event loop.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/halcyonlabs/trumpbot/internal/bus"
	"github.com/halcyonlabs/trumpbot/internal/channel"
	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/cron"
	"github.com/halcyonlabs/trumpbot/internal/guard"
	"github.com/halcyonlabs/trumpbot/internal/openrouter"
	"github.com/halcyonlabs/trumpbot/internal/retry"
	"github.com/halcyonlabs/trumpbot/internal/scraper"
)

// Posts served from cache stay identical for this long, then a fresh scrape
// happens. Keeps repeated reads cheap without going stale.
const postCacheTTL = 90 * time.Second

// PostFetcher fetches recent posts with retries already applied.
type PostFetcher interface {
	FetchRecentPosts(ctx context.Context, count int) ([]scraper.Post, error)
}

// Responder produces styled text with the active model.
type Responder interface {
	Generate(ctx context.Context, prompt string) string
	GenerateTopic(ctx context.Context, topic string) string
}

// Options allow injecting collaborators for testing.
type Options struct {
	Fetcher    PostFetcher
	Responder  Responder
	Probe      func(ctx context.Context) error
	SignalChan chan os.Signal
	Sleeper    retry.Sleeper
}

type Gateway struct {
	cfg       *config.Config
	bus       *bus.MessageBus
	channels  *channel.ChannelManager
	jobs      *cron.Service
	selector  *openrouter.Selector
	fetcher   PostFetcher
	responder Responder
	guard     *guard.Guard
	probe     func(ctx context.Context) error
	sleep     retry.Sleeper
	log       *slog.Logger

	signalChan chan os.Signal

	cacheMu   sync.Mutex
	cached    []scraper.Post
	cachedFor int
	cachedAt  time.Time
}

// New creates a Gateway with default collaborators.
func New(cfg *config.Config, log *slog.Logger) (*Gateway, error) {
	return NewWithOptions(cfg, log, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, log *slog.Logger, opts Options) (*Gateway, error) {
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is not configured")
	}

	g := &Gateway{
		cfg:        cfg,
		bus:        bus.NewMessageBus(config.DefaultBufSize, log.With("component", "bus")),
		log:        log,
		signalChan: opts.SignalChan,
	}

	catalog := openrouter.NewCatalogClient(cfg.OpenRouter)
	chat := openrouter.NewChatClient(cfg.OpenRouter)
	g.selector = openrouter.NewSelector(catalog, chat, cfg.OpenRouter, log.With("component", "selector"))

	g.responder = opts.Responder
	if g.responder == nil {
		g.responder = openrouter.NewGenerator(g.selector, chat, cfg.OpenRouter, log.With("component", "generator"))
	}

	g.fetcher = opts.Fetcher
	if g.fetcher == nil {
		pws := scraper.NewPlaywrightScraper(cfg.Scrape, log.With("component", "scraper"))
		g.fetcher = scraper.NewFetcher(pws, cfg.Scrape, log.With("component", "fetcher"))
	}

	g.guard = guard.New(cfg.Guard, log.With("component", "guard"))

	g.probe = opts.Probe
	if g.probe == nil {
		g.probe = dependencyProbe(cfg.Scrape.ProfileURL)
	}

	g.sleep = opts.Sleeper
	if g.sleep == nil {
		g.sleep = retry.SleepContext
	}

	chMgr, err := channel.NewChannelManager(cfg, g.bus, log.With("component", "channels"))
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.jobs = cron.NewService(log.With("component", "jobs"))
	if err := g.registerJobs(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Gateway) registerJobs() error {
	jobs := []cron.Job{
		{
			Name:     "free-model-refresh",
			Interval: g.cfg.OpenRouter.RefreshInterval(),
			Run: func(ctx context.Context) {
				_ = g.selector.Refresh(ctx)
			},
		},
		{
			Name:     "resource-guard",
			Interval: g.cfg.Guard.Interval,
			Run: func(ctx context.Context) {
				g.guard.Check()
			},
		},
		{
			Name:     "post-cache-trim",
			Interval: g.cfg.Guard.CacheTrim,
			Run: func(ctx context.Context) {
				g.trimCache()
			},
		},
	}
	for _, job := range jobs {
		if err := g.jobs.Add(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}
	return nil
}

// dependencyProbe checks the profile site answers before the bot connects.
func dependencyProbe(url string) func(ctx context.Context) error {
	client := resty.New().SetTimeout(10 * time.Second)
	return func(ctx context.Context) error {
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			return fmt.Errorf("dependency check: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("dependency check: status %d", resp.StatusCode())
		}
		return nil
	}
}

// Run starts the bot and blocks until a signal arrives.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Startup refresh; a failure leaves the configured default in place.
	if err := g.selector.Refresh(ctx); err != nil {
		g.log.Warn("startup model refresh failed", "err", err)
	}

	startupPolicy := retry.Policy{
		MaxAttempts: g.cfg.Scrape.StartupLimit,
		Delay:       g.cfg.Scrape.StartupDelay,
		Escalate:    true,
	}
	err := retry.DoWithSleeper(ctx, startupPolicy, g.sleep, func(ctx context.Context) error {
		if err := g.probe(ctx); err != nil {
			g.log.Warn("dependency check failed", "err", err)
			return err
		}
		g.log.Info("dependency check succeeded")
		if err := g.channels.StartAll(ctx); err != nil {
			g.log.Warn("channel start failed", "err", err)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	g.log.Info("channels started", "channels", g.channels.EnabledChannels())

	go g.bus.DispatchOutbound(ctx)

	if err := g.jobs.Start(ctx); err != nil {
		return fmt.Errorf("start background jobs: %w", err)
	}

	go g.processLoop(ctx)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	g.log.Info("shutting down")
	return g.Shutdown()
}

// processLoop handles inbound messages one at a time. Requests are
// independent idempotent reads, so a single worker is enough, and the
// Discord read loop lives on its own goroutine inside the library.
func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.handleInbound(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// fetchPosts serves from the short-lived cache when possible, otherwise
// scrapes. The page is effectively static between cache windows, so cached
// reads return the same ordered sequence a fresh scrape would.
func (g *Gateway) fetchPosts(ctx context.Context, count int) ([]scraper.Post, error) {
	count = config.ClampCount(count)

	g.cacheMu.Lock()
	if g.cached != nil && count <= g.cachedFor && time.Since(g.cachedAt) < postCacheTTL {
		posts := g.cached[:count]
		g.cacheMu.Unlock()
		g.log.Debug("serving posts from cache", "count", count)
		return posts, nil
	}
	g.cacheMu.Unlock()

	posts, err := g.fetcher.FetchRecentPosts(ctx, count)
	if err != nil {
		return nil, err
	}

	g.cacheMu.Lock()
	g.cached = posts
	g.cachedFor = count
	g.cachedAt = time.Now()
	g.cacheMu.Unlock()

	return posts, nil
}

func (g *Gateway) trimCache() {
	g.cacheMu.Lock()
	removed := len(g.cached)
	g.cached = nil
	g.cachedFor = 0
	g.cacheMu.Unlock()
	g.log.Debug("trimmed post cache", "removed", removed)
}

func (g *Gateway) Shutdown() error {
	g.jobs.Stop()
	_ = g.channels.StopAll()
	g.log.Info("shutdown complete")
	return nil
}
