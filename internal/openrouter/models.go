package openrouter

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Model is one entry from the provider catalog.
type Model struct {
	ID            string
	Name          string
	ContextTokens int
}

type catalogResponse struct {
	Data []catalogEntry `json:"data"`
}

type catalogEntry struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Pricing catalogPricing `json:"pricing"`

	// The catalog has grown several names for the context window over
	// time; accept any of them.
	ContextLength    json.Number `json:"context_length"`
	ContextWindow    json.Number `json:"context_window"`
	MaxContextTokens json.Number `json:"max_context_tokens"`
	InputMaxTokens   json.Number `json:"input_max_tokens"`
	MaxInputTokens   json.Number `json:"max_input_tokens"`
	MaxOutputTokens  json.Number `json:"max_output_tokens"`
	Tokens           json.Number `json:"tokens"`

	Limits struct {
		ContextLength  json.Number `json:"context_length"`
		MaxContext     json.Number `json:"max_context"`
		MaxInputTokens json.Number `json:"max_input_tokens"`
	} `json:"limits"`
	Usage struct {
		MaxTokens json.Number `json:"max_tokens"`
	} `json:"usage"`
}

func (e catalogEntry) contextTokens() int {
	for _, n := range []json.Number{
		e.ContextLength, e.ContextWindow, e.MaxContextTokens,
		e.InputMaxTokens, e.MaxInputTokens, e.MaxOutputTokens, e.Tokens,
		e.Limits.ContextLength, e.Limits.MaxContext, e.Limits.MaxInputTokens,
		e.Usage.MaxTokens,
	} {
		if v := coerceInt(n); v > 0 {
			return v
		}
	}
	return 0
}

type catalogPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// isFree reports whether both prompt and completion pricing parse to zero.
// Unparsable pricing counts as paid.
func (p catalogPricing) isFree() bool {
	for _, raw := range []string{p.Prompt, p.Completion} {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v != 0 {
			return false
		}
	}
	return true
}

func coerceInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}

// HasFreeKeyword reports whether the model id or display name contains the
// keyword, case-insensitively.
func HasFreeKeyword(id, name, keyword string) bool {
	text := strings.ToLower(id + " " + name)
	return strings.Contains(text, strings.ToLower(keyword))
}

// filterFree keeps zero-cost entries whose id or name carries the keyword.
func filterFree(entries []catalogEntry, keyword string) []Model {
	var out []Model
	for _, e := range entries {
		if e.ID == "" || !e.Pricing.isFree() {
			continue
		}
		if !HasFreeKeyword(e.ID, e.Name, keyword) {
			continue
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		out = append(out, Model{ID: e.ID, Name: name, ContextTokens: e.contextTokens()})
	}
	return out
}

// sortByContext orders models by context window descending; ties keep
// catalog order.
func sortByContext(models []Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].ContextTokens > models[j].ContextTokens
	})
}
