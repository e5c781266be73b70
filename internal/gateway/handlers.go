package gateway

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/halcyonlabs/trumpbot/internal/bus"
	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/scraper"
)

const scrapeFailedResponse = "❌ 未找到帖子！可能是网站加载过慢，请重试！"

const helpPrompt = `
As Donald Trump, write a short and funny help message for a Discord bot.
Describe the available commands in an overconfident, sarcastic tone.
Use caps, exaggeration, emojis, and act like you're the greatest president AND bot creator.
Commands:
- /trump [1~5]: Get the latest Trump posts
- /trumpjoke [topic]: Generate a Trump-style tweet joke
- @Bot joke: Ask the bot to tell a joke
- @Bot 3: Get 3 latest posts
- @Bot help: Show this amazing help
`

const selfReplyPrompt = `Donald Trump just posted on Truth Social:

"%s"

Write a funnier, bolder Trump-style reply to his own post. Be sarcastic, confident, and hilarious. One tweet only.`

const mentionJokePrompt = `Donald Trump just posted:

"%s"

Now write a savage Trump-style tweet replying to himself. Go hard. One tweet only.`

var (
	countRe   = regexp.MustCompile(`\b([1-5])\b`)
	mentionRe = regexp.MustCompile(`<@!?\d+>`)
)

func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	content := strings.TrimSpace(msg.Content)
	g.log.Info("inbound message", "channel", msg.Channel, "sender", msg.SenderID, "content", truncate(content, 80))

	switch {
	case content == "/trump" || strings.HasPrefix(content, "/trump "):
		g.handleTrump(ctx, msg, content)
	case content == "/trumpjoke" || strings.HasPrefix(content, "/trumpjoke "):
		topic := strings.TrimSpace(strings.TrimPrefix(content, "/trumpjoke"))
		g.handleTrumpJoke(ctx, msg, topic)
	case msg.Mention:
		g.handleMention(ctx, msg, content)
	default:
		return
	}

	// Inline memory sample after heavy work, on top of the periodic tick.
	g.guard.Check()
}

// handleTrump serves "/trump [1-5]".
func (g *Gateway) handleTrump(ctx context.Context, msg bus.InboundMessage, content string) {
	count := 1
	if fields := strings.Fields(content); len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			count = n
		}
	}
	count = config.ClampCount(count)
	g.log.Info("trump command", "count", count)
	g.sendPosts(ctx, msg, count)
}

// handleTrumpJoke serves "/trumpjoke [topic]". With no topic the latest
// quotable post seeds the joke.
func (g *Gateway) handleTrumpJoke(ctx context.Context, msg bus.InboundMessage, topic string) {
	g.log.Info("trumpjoke command", "topic", topic)

	if topic != "" {
		g.reply(msg, g.responder.GenerateTopic(ctx, topic))
		return
	}
	g.reply(msg, g.jokeFromLatestPost(ctx, selfReplyPrompt))
}

func (g *Gateway) handleMention(ctx context.Context, msg bus.InboundMessage, content string) {
	stripped := strings.TrimSpace(mentionRe.ReplaceAllString(content, ""))
	lowered := strings.ToLower(stripped)

	switch {
	case strings.Contains(lowered, "help"):
		help := g.responder.Generate(ctx, helpPrompt)
		g.reply(msg, "📢 **TrumpBot Help**:\n"+help)
	case strings.Contains(lowered, "joke"):
		g.reply(msg, "🧠: "+g.jokeFromLatestPost(ctx, mentionJokePrompt))
	default:
		count := 1
		if m := countRe.FindStringSubmatch(stripped); m != nil {
			count, _ = strconv.Atoi(m[1])
		}
		count = config.ClampCount(count)
		g.log.Info("mention requested posts", "count", count)
		g.sendPosts(ctx, msg, count)
	}
}

// jokeFromLatestPost scrapes recent posts and asks the model to reply to the
// most quotable one using the given template.
func (g *Gateway) jokeFromLatestPost(ctx context.Context, template string) string {
	posts, err := g.fetchPosts(ctx, config.MaxPostCount)
	if err != nil {
		g.log.Warn("scrape for joke seed failed", "err", err)
		return scrapeFailedResponse
	}
	chosen := scraper.SelectQuotable(posts)
	g.log.Debug("joke seed post", "post", truncate(chosen, 80))
	return g.responder.Generate(ctx, fmt.Sprintf(template, chosen))
}

func (g *Gateway) sendPosts(ctx context.Context, msg bus.InboundMessage, count int) {
	posts, err := g.fetchPosts(ctx, count)
	if err != nil {
		g.log.Warn("post fetch failed", "err", err)
		g.reply(msg, scrapeFailedResponse)
		return
	}
	for i, post := range posts {
		g.reply(msg, fmt.Sprintf("📢 **帖子 %d**:\n%s", i+1, post.Text))
	}
}

func (g *Gateway) reply(msg bus.InboundMessage, content string) {
	g.bus.Outbound <- bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
