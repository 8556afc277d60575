package embedder

import (
	"net/http"

	"ragcore/internal/config"
	"ragcore/internal/errs"
	"ragcore/internal/obs"
)

// New dispatches on cfg.Provider to build the configured Client.
func New(cfg config.EmbedderConfig) (Client, error) {
	switch cfg.Provider {
	case "deterministic":
		return NewDeterministic(cfg.Dimension), nil
	case "http":
		httpClient := obs.NewHTTPClient(&http.Client{})
		return NewHTTPClient(httpClient, cfg.BaseURL, cfg.Path, cfg.APIKey, cfg.APIHeader, cfg.Model, cfg.Dimension, cfg.Timeout), nil
	default:
		return nil, errs.New(errs.ConfigInvalid, "unknown embedder provider: "+cfg.Provider)
	}
}
