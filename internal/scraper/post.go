package scraper

import "regexp"

// Post is one scraped Truth Social post. Immutable once built; lives for a
// single request/response cycle and is never persisted.
type Post struct {
	Text      string
	Age       string
	SourceURL string
}

const fallbackQuote = "Trump posted something big and beautiful, folks!"

var throwawayRe = regexp.MustCompile(`^(thank|thanks|great|good|👍|🙏)`)

// SelectQuotable picks the first post that makes a usable joke seed: long
// enough to carry context, short enough to quote, and not a throwaway
// thank-you. Falls back to the first post, then to a canned line.
func SelectQuotable(posts []Post) string {
	for _, p := range posts {
		clean := normalizeLower(p.Text)
		if len(clean) > 20 && len(clean) < 300 && !throwawayRe.MatchString(clean) {
			return p.Text
		}
	}
	if len(posts) > 0 {
		return posts[0].Text
	}
	return fallbackQuote
}
