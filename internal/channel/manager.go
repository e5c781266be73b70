package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/halcyonlabs/trumpbot/internal/bus"
	"github.com/halcyonlabs/trumpbot/internal/config"
)

type ChannelManager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
	log      *slog.Logger
}

func NewChannelManager(cfg *config.Config, b *bus.MessageBus, log *slog.Logger) (*ChannelManager, error) {
	m := &ChannelManager{
		channels: make(map[string]Channel),
		bus:      b,
		log:      log,
	}

	if cfg.Discord.Token != "" {
		ch, err := NewDiscordChannel(cfg.Discord, b, log.With("channel", discordChannelName))
		if err != nil {
			return nil, fmt.Errorf("init discord channel: %w", err)
		}
		m.register(ch)
	}

	return m, nil
}

func (m *ChannelManager) register(ch Channel) {
	m.channels[ch.Name()] = ch
	m.bus.SubscribeOutbound(ch.Name(), func(msg bus.OutboundMessage) {
		if err := ch.Send(msg); err != nil {
			m.log.Error("send failed", "channel", ch.Name(), "err", err)
		}
	})
}

func (m *ChannelManager) StartAll(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(m.channels))

	for name, ch := range m.channels {
		wg.Add(1)
		go func(name string, ch Channel) {
			defer wg.Done()
			m.log.Info("starting channel", "channel", name)
			if err := ch.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}(name, ch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

func (m *ChannelManager) StopAll() error {
	for name, ch := range m.channels {
		m.log.Info("stopping channel", "channel", name)
		if err := ch.Stop(); err != nil {
			m.log.Error("stop failed", "channel", name, "err", err)
		}
	}
	return nil
}

func (m *ChannelManager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}
