package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonlabs/trumpbot/internal/bus"
	"github.com/halcyonlabs/trumpbot/internal/config"
)

const discordChannelName = "discord"

// Discord caps messages at 2000 chars; chunk a little under that.
const discordMaxMessageLen = 1900

// DiscordSession is the slice of the discordgo API the channel uses.
// Behind an interface so tests can fake the gateway connection.
type DiscordSession interface {
	Open() error
	Close() error
	AddMessageHandler(fn func(m *discordgo.MessageCreate))
	SendMessage(chatID, content string) error
	BotUser() *discordgo.User
}

type dgSession struct {
	s *discordgo.Session
}

func (w *dgSession) Open() error  { return w.s.Open() }
func (w *dgSession) Close() error { return w.s.Close() }

func (w *dgSession) AddMessageHandler(fn func(m *discordgo.MessageCreate)) {
	w.s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		fn(m)
	})
}

func (w *dgSession) SendMessage(chatID, content string) error {
	_, err := w.s.ChannelMessageSend(chatID, content)
	return err
}

func (w *dgSession) BotUser() *discordgo.User {
	return w.s.State.User
}

// SessionFactory creates DiscordSession instances (allows mocking).
type SessionFactory func(token string) (DiscordSession, error)

var defaultSessionFactory SessionFactory = func(token string) (DiscordSession, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return &dgSession{s: s}, nil
}

type DiscordChannel struct {
	BaseChannel
	token   string
	session DiscordSession
	factory SessionFactory
	log     *slog.Logger
}

func NewDiscordChannel(cfg config.DiscordConfig, b *bus.MessageBus, log *slog.Logger) (*DiscordChannel, error) {
	return NewDiscordChannelWithFactory(cfg, b, log, defaultSessionFactory)
}

// NewDiscordChannelWithFactory creates a DiscordChannel with a custom
// session factory (for testing).
func NewDiscordChannelWithFactory(cfg config.DiscordConfig, b *bus.MessageBus, log *slog.Logger, factory SessionFactory) (*DiscordChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	return &DiscordChannel{
		BaseChannel: NewBaseChannel(discordChannelName, b, nil),
		token:       cfg.Token,
		factory:     factory,
		log:         log,
	}, nil
}

func (d *DiscordChannel) Start(ctx context.Context) error {
	session, err := d.factory(d.token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	// The handler closes over its own session: discordgo can dispatch a
	// MessageCreate the moment the gateway opens, before Start returns.
	session.AddMessageHandler(func(m *discordgo.MessageCreate) {
		d.handleMessage(session, m)
	})
	d.session = session

	if err := session.Open(); err != nil {
		d.session = nil
		return fmt.Errorf("open discord gateway: %w", err)
	}

	if user := session.BotUser(); user != nil {
		d.log.Info("discord connected", "user", user.Username)
	}
	return nil
}

func (d *DiscordChannel) handleMessage(session DiscordSession, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	bot := session.BotUser()
	if bot != nil && m.Author.ID == bot.ID {
		return
	}
	if !d.IsAllowed(m.Author.ID) {
		d.log.Warn("rejected message", "sender", m.Author.ID)
		return
	}

	mention := false
	if bot != nil {
		for _, u := range m.Mentions {
			if u.ID == bot.ID {
				mention = true
				break
			}
		}
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	d.bus.Inbound <- bus.InboundMessage{
		Channel:   discordChannelName,
		SenderID:  m.Author.ID,
		ChatID:    m.ChannelID,
		Content:   content,
		Mention:   mention,
		Timestamp: m.Timestamp,
		Metadata: map[string]any{
			"username":   m.Author.Username,
			"message_id": m.ID,
		},
	}
}

func (d *DiscordChannel) Send(msg bus.OutboundMessage) error {
	if d.session == nil {
		return fmt.Errorf("discord session not started")
	}

	for _, chunk := range chunkMessage(msg.Content, discordMaxMessageLen) {
		if err := d.session.SendMessage(msg.ChatID, chunk); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}
	return nil
}

func (d *DiscordChannel) Stop() error {
	if d.session != nil {
		if err := d.session.Close(); err != nil {
			return fmt.Errorf("close discord session: %w", err)
		}
	}
	d.log.Info("discord stopped")
	return nil
}

// SetSession sets the session (for testing).
func (d *DiscordChannel) SetSession(s DiscordSession) {
	d.session = s
}

// chunkMessage splits content into pieces of at most maxLen, preferring to
// break at a newline.
func chunkMessage(content string, maxLen int) []string {
	var chunks []string
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			if idx := strings.LastIndex(chunk[:maxLen], "\n"); idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxLen]
			}
		}
		content = strings.TrimPrefix(content[len(chunk):], "\n")
		chunks = append(chunks, chunk)
	}
	return chunks
}
