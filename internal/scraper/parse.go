package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	postWrapperSelector = "div.status__content-wrapper"
	postTextSelector    = "p.text-base"
)

var urlRe = regexp.MustCompile(`http\S+`)

// ExtractPosts pulls up to count posts out of a profile page HTML snapshot,
// newest first (document order). Links are stripped from the text; empty and
// duplicate posts are skipped. Finding fewer than count posts is not an
// error.
func ExtractPosts(html string, count int, sourceURL string) ([]Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse page: %v", ErrTransient, err)
	}

	posts := make([]Post, 0, count)
	seen := make(map[string]struct{})

	doc.Find(postWrapperSelector).EachWithBreak(func(_ int, wrapper *goquery.Selection) bool {
		if len(posts) >= count {
			return false
		}

		var parts []string
		wrapper.Find(postTextSelector).Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})

		text := strings.TrimSpace(urlRe.ReplaceAllString(strings.Join(parts, "\n"), ""))
		if text == "" {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}

		posts = append(posts, Post{
			Text:      text,
			Age:       strings.TrimSpace(wrapper.Find("time").First().Text()),
			SourceURL: sourceURL,
		})
		return true
	})

	return posts, nil
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
