package openrouter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

const usableReply = "Nobody does it better than me, believe me folks. Tremendous!"

type fakeCatalog struct {
	entries []catalogEntry
	err     error
	calls   int
}

func (f *fakeCatalog) ListModels(ctx context.Context) ([]catalogEntry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeChat struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeChat) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls = append(f.calls, req.Model)
	if err, ok := f.errs[req.Model]; ok {
		return "", err
	}
	if reply, ok := f.replies[req.Model]; ok {
		return reply, nil
	}
	return usableReply, nil
}

func testORConfig() config.OpenRouterConfig {
	return config.OpenRouterConfig{
		Model:          "google/gemma-3-12b-it:free",
		FreeKeyword:    "free",
		SmokeTestLimit: 5,
	}
}

func fixtureEntries() []catalogEntry {
	return []catalogEntry{
		{ID: "a-free", Name: "A", Pricing: freePricing(), ContextLength: "1000"},
		{ID: "b-paid", Name: "B", Pricing: paidPricing(), ContextLength: "5000"},
		{ID: "c-free", Name: "C", Pricing: freePricing(), ContextLength: "3000"},
	}
}

func newTestSelector(catalog Catalog, chat ChatClient, cfg config.OpenRouterConfig) *Selector {
	return NewSelector(catalog, chat, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewSelector_DefaultModel(t *testing.T) {
	t.Run("free default seeds active", func(t *testing.T) {
		s := newTestSelector(&fakeCatalog{}, &fakeChat{}, testORConfig())
		m, ok := s.ActiveModel()
		require.True(t, ok)
		assert.Equal(t, "google/gemma-3-12b-it:free", m.ID)
	})

	t.Run("paid default leaves generation paused", func(t *testing.T) {
		cfg := testORConfig()
		cfg.Model = "anthropic/claude-3-opus"
		s := newTestSelector(&fakeCatalog{}, &fakeChat{}, cfg)
		_, ok := s.ActiveModel()
		assert.False(t, ok)
	})

	t.Run("empty default leaves generation paused", func(t *testing.T) {
		cfg := testORConfig()
		cfg.Model = ""
		s := newTestSelector(&fakeCatalog{}, &fakeChat{}, cfg)
		_, ok := s.ActiveModel()
		assert.False(t, ok)
	})
}

func TestRefresh_PicksLargestFreeContext(t *testing.T) {
	catalog := &fakeCatalog{entries: fixtureEntries()}
	s := newTestSelector(catalog, &fakeChat{}, testORConfig())

	require.NoError(t, s.Refresh(context.Background()))

	m, ok := s.ActiveModel()
	require.True(t, ok)
	assert.Equal(t, "c-free", m.ID)

	var ids []string
	for _, c := range s.Candidates() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c-free", "a-free"}, ids)
}

func TestRefresh_FetchErrorKeepsState(t *testing.T) {
	catalog := &fakeCatalog{entries: fixtureEntries()}
	s := newTestSelector(catalog, &fakeChat{}, testORConfig())
	require.NoError(t, s.Refresh(context.Background()))

	catalog.err = errors.New("network down")
	err := s.Refresh(context.Background())
	require.Error(t, err)

	m, ok := s.ActiveModel()
	require.True(t, ok)
	assert.Equal(t, "c-free", m.ID)
	assert.Len(t, s.Candidates(), 2)
}

func TestRefresh_EmptyFreeListPauses(t *testing.T) {
	catalog := &fakeCatalog{entries: []catalogEntry{
		{ID: "b-paid", Name: "B", Pricing: paidPricing(), ContextLength: "5000"},
	}}
	s := newTestSelector(catalog, &fakeChat{}, testORConfig())

	require.NoError(t, s.Refresh(context.Background()))

	_, ok := s.ActiveModel()
	assert.False(t, ok)
	assert.Empty(t, s.Candidates())
}

func TestRefresh_AutoSelectSmokeTest(t *testing.T) {
	cfg := testORConfig()
	cfg.Model = ""
	cfg.AutoSelectFree = true

	t.Run("first passing candidate wins", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{"c-free": ErrRefusal}}
		s := newTestSelector(&fakeCatalog{entries: fixtureEntries()}, chat, cfg)

		require.NoError(t, s.Refresh(context.Background()))

		m, ok := s.ActiveModel()
		require.True(t, ok)
		assert.Equal(t, "a-free", m.ID)
		assert.Equal(t, []string{"c-free", "a-free"}, chat.calls)
	})

	t.Run("all candidates fail pauses", func(t *testing.T) {
		chat := &fakeChat{errs: map[string]error{
			"c-free": ErrRefusal,
			"a-free": ErrEmptyContent,
		}}
		s := newTestSelector(&fakeCatalog{entries: fixtureEntries()}, chat, cfg)

		require.NoError(t, s.Refresh(context.Background()))

		_, ok := s.ActiveModel()
		assert.False(t, ok)
	})

	t.Run("current model probed first", func(t *testing.T) {
		seeded := cfg
		seeded.Model = "a-free"
		chat := &fakeChat{}
		s := newTestSelector(&fakeCatalog{entries: fixtureEntries()}, chat, seeded)

		require.NoError(t, s.Refresh(context.Background()))

		m, ok := s.ActiveModel()
		require.True(t, ok)
		assert.Equal(t, "a-free", m.ID)
		assert.Equal(t, []string{"a-free"}, chat.calls)
	})

	t.Run("probe count bounded by limit", func(t *testing.T) {
		limited := cfg
		limited.SmokeTestLimit = 1
		chat := &fakeChat{errs: map[string]error{"c-free": ErrRefusal}}
		s := newTestSelector(&fakeCatalog{entries: fixtureEntries()}, chat, limited)

		require.NoError(t, s.Refresh(context.Background()))

		_, ok := s.ActiveModel()
		assert.False(t, ok)
		assert.Equal(t, []string{"c-free"}, chat.calls)
	})
}

func TestSetActive_RejectsNonFree(t *testing.T) {
	s := newTestSelector(&fakeCatalog{}, &fakeChat{}, testORConfig())

	s.setActive(Model{ID: "anthropic/claude-3-opus", Name: "Opus"}, "test")

	m, ok := s.ActiveModel()
	require.True(t, ok)
	assert.Equal(t, "google/gemma-3-12b-it:free", m.ID)
}
