package main

import (
	"log/slog"

	"quickprompt/internal/config"
)

// GetConfig returns a copy of the current settings.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetProviderConfigs returns the configured LLM providers in file order.
func (a *App) GetProviderConfigs() []config.ProviderConfig {
	cfg := a.getConfigSnapshot()
	if cfg.LLMProviders == nil {
		return []config.ProviderConfig{}
	}
	return cfg.LLMProviders
}

// GetAllowedProviders lists the provider identifiers accepted by
// SaveProviderConfig.
func (a *App) GetAllowedProviders() []string {
	return config.AllowedProviderList()
}

// SaveProviderConfig adds or replaces the provider entry with p.Name. The
// entry moves to the end of the list.
func (a *App) SaveProviderConfig(p config.ProviderConfig) ([]config.ProviderConfig, error) {
	saved, err := a.updateConfig(func(cfg *config.Config) error {
		return config.UpsertProvider(cfg, p)
	})
	if err != nil {
		slog.Warn("[WARN-CONFIG] provider save rejected", "name", p.Name, "error", err)
		return nil, err
	}
	a.emitEvent(eventConfigUpdated, ConfigEvent{Source: "providers"})
	return saved.LLMProviders, nil
}

// SaveUIConfig stores presentation preferences. An unknown theme falls back
// to the default rather than failing.
func (a *App) SaveUIConfig(ui config.UIConfig) (config.UIConfig, error) {
	saved, err := a.updateConfig(func(cfg *config.Config) error {
		cfg.UI = ui
		return nil
	})
	if err != nil {
		return config.UIConfig{}, err
	}
	a.emitEvent(eventConfigUpdated, ConfigEvent{Source: "ui"})
	return saved.UI, nil
}
