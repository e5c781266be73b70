package openrouter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

// selectorWithCandidates refreshes a selector over the fixture catalog so the
// generator has fallbacks to walk. Active model ends up c-free.
func selectorWithCandidates(t *testing.T, chat ChatClient, cfg config.OpenRouterConfig) *Selector {
	t.Helper()
	s := newTestSelector(&fakeCatalog{entries: fixtureEntries()}, chat, cfg)
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func newTestGenerator(s *Selector, chat ChatClient, cfg config.OpenRouterConfig) *Generator {
	return NewGenerator(s, chat, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerate_PausedWithoutActiveModel(t *testing.T) {
	cfg := testORConfig()
	cfg.Model = ""
	chat := &fakeChat{}
	s := newTestSelector(&fakeCatalog{}, chat, cfg)
	g := newTestGenerator(s, chat, cfg)

	got := g.Generate(context.Background(), "Write a post about the economy.")

	assert.Equal(t, PausedResponse, got)
	assert.Empty(t, chat.calls, "paused generation must not touch the provider")
}

func TestGenerate_ReturnsModelOutput(t *testing.T) {
	cfg := testORConfig()
	chat := &fakeChat{}
	s := selectorWithCandidates(t, chat, cfg)
	g := newTestGenerator(s, chat, cfg)

	got := g.Generate(context.Background(), "Write a post about the economy.")

	assert.Equal(t, usableReply, got)
	assert.Equal(t, []string{"c-free"}, chat.calls)
}

func TestGenerate_RateLimitFallbackSwitchesModel(t *testing.T) {
	cfg := testORConfig()
	chat := &fakeChat{errs: map[string]error{
		"c-free": fmt.Errorf("%w: status 429", ErrRateLimited),
	}}
	s := selectorWithCandidates(t, chat, cfg)
	g := newTestGenerator(s, chat, cfg)

	got := g.Generate(context.Background(), "Write a post about the border.")

	assert.Equal(t, usableReply, got)
	assert.Equal(t, []string{"c-free", "a-free"}, chat.calls)

	m, ok := s.ActiveModel()
	require.True(t, ok)
	assert.Equal(t, "a-free", m.ID, "successful fallback becomes the active model")
}

func TestGenerate_FallbackRefreshesEmptyCache(t *testing.T) {
	cfg := testORConfig()

	t.Run("reload finds a fallback", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{
			cfg.Model: fmt.Errorf("%w: status 429", ErrRateLimited),
		}}
		catalog := &fakeCatalog{entries: fixtureEntries()}
		// Never refreshed: the selector runs on the seeded default with no
		// cached candidates.
		s := newTestSelector(catalog, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		got := g.Generate(context.Background(), "prompt")

		assert.Equal(t, usableReply, got)
		assert.Equal(t, 1, catalog.calls)
		assert.Equal(t, []string{cfg.Model, "c-free"}, chat.calls)

		m, ok := s.ActiveModel()
		require.True(t, ok)
		assert.Equal(t, "c-free", m.ID)
	})

	t.Run("reload fails", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{
			cfg.Model: fmt.Errorf("%w: status 429", ErrRateLimited),
		}}
		catalog := &fakeCatalog{err: errors.New("network down")}
		s := newTestSelector(catalog, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		got := g.Generate(context.Background(), "prompt")

		assert.Equal(t, rateLimitedResponse, got)
		assert.Equal(t, []string{cfg.Model}, chat.calls)
	})
}

func TestGenerate_RefusalFallback(t *testing.T) {
	cfg := testORConfig()

	t.Run("fallback succeeds", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{"c-free": ErrRefusal}}
		s := selectorWithCandidates(t, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		got := g.Generate(context.Background(), "prompt")
		assert.Equal(t, usableReply, got)
	})

	t.Run("all fallbacks fail", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{
			"c-free": ErrRefusal,
			"a-free": ErrRefusal,
		}}
		s := selectorWithCandidates(t, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		got := g.Generate(context.Background(), "prompt")
		assert.Equal(t, refusalResponse, got)
	})
}

func TestGenerate_DegradedResponses(t *testing.T) {
	cfg := testORConfig()

	tests := []struct {
		name string
		errs map[string]error
		want string
	}{
		{
			name: "empty content has no fallback",
			errs: map[string]error{"c-free": ErrEmptyContent},
			want: emptyResponse,
		},
		{
			name: "reasoning leak exhausts fallbacks",
			errs: map[string]error{"c-free": ErrReasoningLeak, "a-free": ErrReasoningLeak},
			want: abnormalResponse,
		},
		{
			name: "unclassified failure",
			errs: map[string]error{"c-free": fmt.Errorf("connection reset")},
			want: failedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{errs: tt.errs}
			s := selectorWithCandidates(t, chat, cfg)
			g := newTestGenerator(s, chat, cfg)

			assert.Equal(t, tt.want, g.Generate(context.Background(), "prompt"))
		})
	}
}

func TestGenerateTopic(t *testing.T) {
	cfg := testORConfig()

	t.Run("uses the given topic", func(t *testing.T) {
		chat := &fakeChat{}
		s := selectorWithCandidates(t, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		g.GenerateTopic(context.Background(), "the stock market")
		require.Len(t, chat.calls, 1)
	})

	t.Run("empty topic defaults", func(t *testing.T) {
		chat := &recordingChat{}
		s := selectorWithCandidates(t, chat, cfg)
		g := newTestGenerator(s, chat, cfg)

		g.GenerateTopic(context.Background(), "")
		require.Len(t, chat.prompts, 1)
		assert.Contains(t, chat.prompts[0], defaultTopic)
	})
}

type recordingChat struct {
	prompts []string
}

func (r *recordingChat) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	r.prompts = append(r.prompts, req.User)
	return usableReply, nil
}
