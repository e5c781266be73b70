package openrouter

import (
	"regexp"
	"strings"
)

// currentYear keeps generated hashtags from dating themselves.
const currentYear = "2025"

var (
	thinkBlockRe    = regexp.MustCompile(`(?is)<\s*think[^>]*>.*?(?:</\s*think>|$)`)
	leadingJunkRe   = regexp.MustCompile(`^[-\s]{2,}`)
	preambleRe      = regexp.MustCompile(`(?i)^(respond with|okay|sure)[^\n]*?(post|style)[^\n]*\n?`)
	disclaimerRe    = regexp.MustCompile(`(?is)disclaimer[:：*].*`)
	trailingStarsRe = regexp.MustCompile(`\*{1,2}\s*$`)
	trumpTagRe      = regexp.MustCompile(`(?i)#Trump20\d{2}`)
	bidenTagRe      = regexp.MustCompile(`(?i)#Biden20\d{2}`)
	footnoteRe      = regexp.MustCompile(`(?is)(---+|IMPORTANT.*|This is a fictional exercise.*|The content is offensive.*)`)
)

// Sanitize cleans a raw model response for chat display: drops leaked
// think blocks, model preambles, disclaimers and footnotes, pads markdown
// markers so they cannot swallow adjacent text, and rewrites stale campaign
// hashtags.
func Sanitize(text string) string {
	text = thinkBlockRe.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "**", "** ")
	text = strings.ReplaceAll(text, "__", "__ ")
	text = strings.ReplaceAll(text, "*", "* ")
	text = strings.TrimSpace(text)

	text = leadingJunkRe.ReplaceAllString(text, "")
	text = preambleRe.ReplaceAllString(text, "")
	text = disclaimerRe.ReplaceAllString(text, "")
	text = trailingStarsRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, ">", "\n")
	text = strings.TrimLeft(text, " \t\n")
	text = trailingStarsRe.ReplaceAllString(text, "")

	text = trumpTagRe.ReplaceAllString(text, "#Trump"+currentYear)
	text = bidenTagRe.ReplaceAllString(text, "")

	text = footnoteRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

var refusalMarkers = []string{
	"i'm sorry",
	"i am sorry",
	"sorry, i can't",
	"sorry, i cannot",
	"sorry but i can't",
	"can't comply",
	"cannot comply",
	"can't assist",
	"cannot assist",
	"i can't help with",
	"i cannot help with",
	"i can't provide",
	"i cannot provide",
	"i can't fulfill",
	"i cannot fulfill",
	"against my policy",
	"against our policy",
	"against policy",
	"due to policy",
	"violates policy",
	"policy guidelines",
	"content policy",
	"moderation guidelines",
	"i must refuse",
	"i have to refuse",
	"cannot generate that",
	"i cannot generate",
	"not able to comply",
	"decline to comply",
	"sorry but i won't",
	"i won't do that request",
}

var reasoningMarkers = []string{
	"the user wants",
	"the instruction says",
	"the user is asking",
	"let me think",
	"let's think",
	"analysis:",
	"reasoning:",
	"thought process",
	"deliberation:",
	"step by step reasoning",
	"internal reasoning",
}

func isRefusal(text string) bool {
	return containsAny(text, refusalMarkers)
}

func hasReasoningLeak(text string) bool {
	return containsAny(text, reasoningMarkers)
}

func containsAny(text string, markers []string) bool {
	lowered := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}
