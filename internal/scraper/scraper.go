// Package scraper loads the Truth Social profile page in a headless browser
// and extracts recent posts.
package scraper

import "errors"

var (
	// ErrTransient marks a navigation, timeout, or parse failure that is
	// worth retrying.
	ErrTransient = errors.New("transient scrape error")
	// ErrScrapeUnavailable is returned once retries are exhausted. Callers
	// render a degraded user-facing message, never this error itself.
	ErrScrapeUnavailable = errors.New("scrape unavailable")
)
