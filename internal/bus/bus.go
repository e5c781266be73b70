package bus

import (
	"context"
	"log/slog"
	"sync"
)

// MessageBus carries messages between channels and the gateway. Inbound is
// consumed by the gateway's single worker; Outbound fans out to the channel
// that registered for the message's channel name.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	log *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int, log *slog.Logger) *MessageBus {
	return &MessageBus{
		Inbound:     make(chan InboundMessage, bufSize),
		Outbound:    make(chan OutboundMessage, bufSize),
		log:         log,
		subscribers: make(map[string]func(OutboundMessage)),
	}
}

// SubscribeOutbound registers the send function for a channel name. The last
// registration for a name wins.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = fn
}

// DispatchOutbound delivers outbound messages to their channel until ctx is
// cancelled. Messages for unknown channels are dropped with a warning.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn, ok := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			if !ok {
				b.log.Warn("no outbound subscriber", "channel", msg.Channel)
				continue
			}
			fn(msg)
		case <-ctx.Done():
			return
		}
	}
}
