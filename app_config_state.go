package main

import (
	"fmt"

	"quickprompt/internal/config"
)

// getConfigSnapshot returns a deep-copied config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a deep-copied config protected by cfgMu.
// All write access to App.cfg should go through this helper.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

// updateConfig applies mutate to a copy of the current config, persists it
// and only then publishes it. On any error the in-memory config is left
// untouched.
func (a *App) updateConfig(mutate func(*config.Config) error) (config.Config, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	if a.configPath == "" {
		return config.Config{}, fmt.Errorf("config path is not initialized")
	}
	next := a.getConfigSnapshot()
	if err := mutate(&next); err != nil {
		return config.Config{}, err
	}
	saved, err := config.Save(a.configPath, next)
	if err != nil {
		return config.Config{}, err
	}
	a.setConfigSnapshot(saved)
	return saved, nil
}
