package openrouter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePricing() catalogPricing {
	return catalogPricing{Prompt: "0", Completion: "0"}
}

func paidPricing() catalogPricing {
	return catalogPricing{Prompt: "0.000002", Completion: "0.000004"}
}

func TestPricingIsFree(t *testing.T) {
	tests := []struct {
		name    string
		pricing catalogPricing
		want    bool
	}{
		{"both zero", catalogPricing{Prompt: "0", Completion: "0"}, true},
		{"zero float form", catalogPricing{Prompt: "0.0", Completion: "0.00"}, true},
		{"whitespace tolerated", catalogPricing{Prompt: " 0 ", Completion: "0"}, true},
		{"paid prompt", catalogPricing{Prompt: "0.000002", Completion: "0"}, false},
		{"paid completion", catalogPricing{Prompt: "0", Completion: "0.000004"}, false},
		{"empty counts as paid", catalogPricing{}, false},
		{"garbage counts as paid", catalogPricing{Prompt: "free", Completion: "0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pricing.isFree())
		})
	}
}

func TestHasFreeKeyword(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		display string
		keyword string
		want    bool
	}{
		{"id suffix", "google/gemma-3-12b-it:free", "Gemma 3 12B", "free", true},
		{"display name", "some/model", "Some Model (Free)", "free", true},
		{"case insensitive", "vendor/model:FREE", "", "free", true},
		{"absent", "vendor/model", "Paid Model", "free", false},
		{"custom keyword", "vendor/model-gratis", "", "gratis", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFreeKeyword(tt.id, tt.display, tt.keyword))
		})
	}
}

func TestFilterFree(t *testing.T) {
	entries := []catalogEntry{
		{ID: "a-free", Name: "A", Pricing: freePricing()},
		{ID: "b-paid", Name: "B", Pricing: paidPricing()},
		{ID: "c-free", Name: "C", Pricing: freePricing()},
		{ID: "d", Name: "D Free Tier", Pricing: freePricing()},
		{ID: "e-free-but-priced", Name: "E", Pricing: paidPricing()},
		{ID: "", Name: "no id", Pricing: freePricing()},
	}

	got := filterFree(entries, "free")

	var ids []string
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a-free", "c-free", "d"}, ids)
}

func TestFilterFree_NameFallsBackToID(t *testing.T) {
	got := filterFree([]catalogEntry{{ID: "x-free", Pricing: freePricing()}}, "free")
	require.Len(t, got, 1)
	assert.Equal(t, "x-free", got[0].Name)
}

func TestSortByContext(t *testing.T) {
	models := []Model{
		{ID: "a-free", ContextTokens: 1000},
		{ID: "b-free", ContextTokens: 5000},
		{ID: "c-free", ContextTokens: 3000},
		{ID: "d-free", ContextTokens: 3000},
	}

	sortByContext(models)

	var ids []string
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	// Ties keep catalog order.
	assert.Equal(t, []string{"b-free", "c-free", "d-free", "a-free"}, ids)
}

func TestContextTokens_FieldVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"context_length", `{"context_length": 8192}`, 8192},
		{"context_window", `{"context_window": 4096}`, 4096},
		{"max_context_tokens", `{"max_context_tokens": 2048}`, 2048},
		{"nested limits", `{"limits": {"context_length": 16384}}`, 16384},
		{"nested usage", `{"usage": {"max_tokens": 1024}}`, 1024},
		{"float coerced", `{"context_length": 8192.0}`, 8192},
		{"first positive wins", `{"context_length": 8192, "tokens": 99}`, 8192},
		{"absent", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e catalogEntry
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.want, e.contextTokens())
		})
	}
}
