package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	settleWait = 5 * time.Second
	scrollWait = 2 * time.Second
	scrollStep = 500
	maxScrolls = 25
)

// Scraper fetches the most recent posts from the profile page, newest first.
type Scraper interface {
	FetchPosts(ctx context.Context, count int) ([]Post, error)
}

// Playwright runtime is a process-wide singleton; browsers are launched and
// closed per fetch so a wedged page never leaks into the next request.
var (
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		if err := playwright.Install(); err != nil {
			pwErr = fmt.Errorf("install playwright browsers: %w", err)
			return
		}
		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("start playwright: %w", err)
			return
		}
		pwInstance = pw
	})
	return pwInstance, pwErr
}

// PlaywrightScraper drives headless Chromium against one fixed profile URL.
type PlaywrightScraper struct {
	profileURL string
	timeout    time.Duration
	log        *slog.Logger
}

func NewPlaywrightScraper(cfg config.ScrapeConfig, log *slog.Logger) *PlaywrightScraper {
	return &PlaywrightScraper{
		profileURL: cfg.ProfileURL,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (s *PlaywrightScraper) FetchPosts(ctx context.Context, count int) ([]Post, error) {
	count = config.ClampCount(count)

	pw, err := getPlaywright()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", ErrTransient, err)
	}
	defer browser.Close()

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(desktopUserAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: new context: %v", ErrTransient, err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %v", ErrTransient, err)
	}
	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))

	s.log.Info("fetching posts", "count", count, "url", s.profileURL)

	if _, err := page.Goto(s.profileURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("%w: goto %s: %v", ErrTransient, s.profileURL, err)
	}
	page.WaitForTimeout(float64(settleWait.Milliseconds()))

	var posts []Post
	for scrolls := 0; ; scrolls++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := page.Content()
		if err != nil {
			return nil, fmt.Errorf("%w: page content: %v", ErrTransient, err)
		}
		posts, err = ExtractPosts(html, count, s.profileURL)
		if err != nil {
			return nil, err
		}
		s.log.Debug("extracted posts", "found", len(posts), "scrolls", scrolls)

		if len(posts) >= count || scrolls >= maxScrolls {
			break
		}
		if _, err := page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", scrollStep)); err != nil {
			return nil, fmt.Errorf("%w: scroll: %v", ErrTransient, err)
		}
		page.WaitForTimeout(float64(scrollWait.Milliseconds()))
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: no posts found, site slow or layout changed", ErrTransient)
	}

	s.log.Info("fetched posts", "count", len(posts))
	return posts, nil
}
