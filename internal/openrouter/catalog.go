package openrouter

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

const (
	baseURL  = "https://openrouter.ai/api/v1"
	referer  = "https://github.com/halcyonlabs/trumpbot"
	appTitle = "TrumpBot"
)

// ErrCatalogFetch marks a failed catalog refresh. The previous model state
// is retained when this happens.
var ErrCatalogFetch = errors.New("model catalog fetch failed")

// Catalog lists the provider's model catalog.
type Catalog interface {
	ListModels(ctx context.Context) ([]catalogEntry, error)
}

type catalogClient struct {
	http *resty.Client
}

// NewCatalogClient builds a resty client against the OpenRouter API.
func NewCatalogClient(cfg config.OpenRouterConfig) Catalog {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("HTTP-Referer", referer).
		SetHeader("X-Title", appTitle)
	return &catalogClient{http: client}
}

func (c *catalogClient) ListModels(ctx context.Context) ([]catalogEntry, error) {
	var out catalogResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/models")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogFetch, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogFetch, resp.StatusCode())
	}
	return out.Data, nil
}
