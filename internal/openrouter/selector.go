package openrouter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/retry"
)

// Selector owns the active model reference: a single writer (the refresh
// job) swaps an immutable snapshot that handlers read lock-free. An absent
// snapshot means generation is paused.
type Selector struct {
	catalog Catalog
	chat    ChatClient
	cfg     config.OpenRouterConfig
	log     *slog.Logger
	sleep   retry.Sleeper

	active atomic.Pointer[Model]

	mu         sync.RWMutex
	candidates []Model
}

func NewSelector(catalog Catalog, chat ChatClient, cfg config.OpenRouterConfig, log *slog.Logger) *Selector {
	s := &Selector{
		catalog: catalog,
		chat:    chat,
		cfg:     cfg,
		log:     log,
		sleep:   retry.SleepContext,
	}

	// The configured default model only counts if it is labeled free;
	// anything else would bill the account, so generation stays paused
	// until a refresh finds a free candidate.
	if cfg.Model != "" {
		if HasFreeKeyword(cfg.Model, "", cfg.FreeKeyword) {
			s.active.Store(&Model{ID: cfg.Model, Name: cfg.Model})
		} else {
			log.Warn("configured default model is not labeled free, replies disabled until a free model is selected",
				"model", cfg.Model)
		}
	}
	return s
}

// ActiveModel returns the current model snapshot, or false when generation
// is paused.
func (s *Selector) ActiveModel() (Model, bool) {
	m := s.active.Load()
	if m == nil {
		return Model{}, false
	}
	return *m, true
}

// Candidates returns a copy of the free model cache, best first.
func (s *Selector) Candidates() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Model, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// setActive swaps the active model. Non-free models are rejected so a bad
// caller can never switch generation onto a paid model.
func (s *Selector) setActive(m Model, reason string) {
	if !HasFreeKeyword(m.ID, m.Name, s.cfg.FreeKeyword) {
		s.log.Warn("refusing to activate model not labeled free", "model", m.ID)
		return
	}
	prev := s.active.Load()
	if prev != nil && prev.ID == m.ID {
		return
	}
	prevID := ""
	if prev != nil {
		prevID = prev.ID
	}
	s.log.Info("switching model", "from", prevID, "to", m.ID, "reason", reason)
	s.active.Store(&m)
}

func (s *Selector) clearActive() {
	s.active.Store(nil)
}

// Refresh fetches the catalog and reselects the active model. A fetch
// failure keeps the previous state untouched. An empty free list clears the
// active model so generation pauses instead of running on a stale paid
// model.
func (s *Selector) Refresh(ctx context.Context) error {
	entries, err := s.catalog.ListModels(ctx)
	if err != nil {
		s.log.Error("catalog refresh failed, keeping previous model", "err", err)
		return err
	}

	free := filterFree(entries, s.cfg.FreeKeyword)
	sortByContext(free)

	s.mu.Lock()
	s.candidates = free
	s.mu.Unlock()

	if len(free) == 0 {
		s.log.Warn("no free models in catalog, pausing replies")
		s.clearActive()
		return nil
	}

	top := free[0]
	s.log.Info("free model refresh", "top", top.ID, "context_tokens", top.ContextTokens, "candidates", len(free))

	if !s.cfg.AutoSelectFree {
		s.setActive(top, "catalog head")
		return nil
	}

	if winner, ok := s.smokeTest(ctx, free); ok {
		s.setActive(winner, "auto-selected after smoke test")
	} else {
		s.log.Error("no free model passed the smoke test, pausing replies")
		s.clearActive()
	}
	return nil
}

// smokeTest probes candidates with a one-shot prompt and returns the first
// that yields usable content. The current model, if still listed, is probed
// first to avoid churning.
func (s *Selector) smokeTest(ctx context.Context, candidates []Model) (Model, bool) {
	probeList := make([]Model, 0, s.cfg.SmokeTestLimit)
	seen := make(map[string]struct{})

	if current, ok := s.ActiveModel(); ok {
		for _, c := range candidates {
			if c.ID == current.ID {
				probeList = append(probeList, c)
				seen[c.ID] = struct{}{}
				break
			}
		}
	}
	for _, c := range candidates {
		if len(probeList) >= s.cfg.SmokeTestLimit {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		probeList = append(probeList, c)
		seen[c.ID] = struct{}{}
	}

	for i, candidate := range probeList {
		s.log.Info("smoke-testing model", "model", candidate.ID, "n", i+1, "of", len(probeList))

		content, err := invokeModel(ctx, s.chat, CompletionRequest{
			Model:       candidate.ID,
			System:      systemPrompt,
			User:        smokeTestPrompt,
			Temperature: 0.8,
			TopP:        0.85,
			MaxTokens:   120,
		})
		if err == nil {
			s.log.Info("model passed smoke test", "model", candidate.ID, "sample", truncate(content, 200))
			return candidate, true
		}
		s.log.Warn("model failed smoke test", "model", candidate.ID, "err", err)

		if i < len(probeList)-1 && s.cfg.SmokeTestDelay > 0 {
			if err := s.sleep(ctx, s.cfg.SmokeTestDelay); err != nil {
				return Model{}, false
			}
		}
	}
	return Model{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
