package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quickprompt/internal/config"
	"quickprompt/internal/hotkeys"
)

// CustomPromptConfig is the frontend form for a prompt binding.
type CustomPromptConfig struct {
	Name           string `json:"name"`
	ProviderName   string `json:"provider_name"`
	PromptTemplate string `json:"prompt_template"`
	Shortcut       string `json:"shortcut"`
}

// ShortcutsEvent is the payload of shortcuts-updated.
type ShortcutsEvent struct {
	Shortcuts []hotkeys.Binding `json:"shortcuts"`
	Version   uint64            `json:"version"`
}

func (a *App) shortcutSource(context.Context) ([]hotkeys.Binding, error) {
	return a.getConfigSnapshot().Shortcuts, nil
}

// onRegistryRefreshed drops any in-flight prompt, re-attaches the window
// matcher, re-registers global hotkeys and tells the frontend. It runs after
// every registry refresh.
func (a *App) onRegistryRefreshed(snapshot []hotkeys.Binding) {
	a.abandonInFlightPrompt()
	a.matcher.Attach(snapshot)
	if manager, err := a.requireHotkeys(); err == nil {
		if applyErr := manager.Apply(a.backgroundContext(), snapshot, a.onHotkeyTriggered); applyErr != nil {
			slog.Warn("[DEBUG-HOTKEY] some shortcuts could not be registered globally", "error", applyErr)
		}
	}
	a.emitEvent(eventShortcutsUpdated, ShortcutsEvent{
		Shortcuts: snapshot,
		Version:   a.registry.Version(),
	})
}

func (a *App) refreshShortcuts() {
	if err := a.registry.Refresh(a.backgroundContext()); err != nil {
		slog.Warn("[DEBUG-HOTKEY] shortcut refresh failed", "error", err)
	}
}

// GetShortcuts returns every binding, including those without a trigger.
func (a *App) GetShortcuts() []hotkeys.Binding {
	cfg := a.getConfigSnapshot()
	if cfg.Shortcuts == nil {
		return []hotkeys.Binding{}
	}
	return cfg.Shortcuts
}

// UpdateShortcut rebinds an existing binding to wire. An empty wire clears
// the trigger. The stored form is canonical.
func (a *App) UpdateShortcut(name string, wire string) (hotkeys.Binding, error) {
	var updated hotkeys.Binding
	_, err := a.updateConfig(func(cfg *config.Config) error {
		b, setErr := config.SetShortcut(cfg, name, strings.TrimSpace(wire))
		updated = b
		return setErr
	})
	if err != nil {
		slog.Warn("[DEBUG-HOTKEY] shortcut update rejected", "name", name, "shortcut", wire, "error", err)
		return hotkeys.Binding{}, err
	}
	slog.Info("[DEBUG-HOTKEY] shortcut updated", "name", updated.Name, "shortcut", updated.Shortcut)
	a.refreshShortcuts()
	return updated, nil
}

// GetReservedShortcuts lists the combinations capture refuses to commit.
func (a *App) GetReservedShortcuts() []hotkeys.ReservedShortcut {
	return hotkeys.ReservedShortcuts()
}

// ReloadShortcuts re-reads the bindings from the config file on disk and
// re-applies them.
func (a *App) ReloadShortcuts() ([]hotkeys.Binding, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("reload shortcuts: %w", err)
	}
	a.cfgSaveMu.Lock()
	current := a.getConfigSnapshot()
	current.Shortcuts = cfg.Shortcuts
	a.setConfigSnapshot(current)
	a.cfgSaveMu.Unlock()

	a.refreshShortcuts()
	return a.GetShortcuts(), nil
}

// GetActiveHotkeys lists the bindings currently registered with the OS.
func (a *App) GetActiveHotkeys() []hotkeys.ActiveBinding {
	manager, err := a.requireHotkeys()
	if err != nil {
		return []hotkeys.ActiveBinding{}
	}
	return manager.ActiveBindings()
}

// RegisterCustomPrompt creates or replaces the prompt binding named p.Name.
// The provider must already be configured.
func (a *App) RegisterCustomPrompt(p CustomPromptConfig) (hotkeys.Binding, error) {
	binding := hotkeys.Binding{
		Name:     strings.TrimSpace(p.Name),
		Shortcut: strings.TrimSpace(p.Shortcut),
		Command:  hotkeys.Prompt{ProviderName: p.ProviderName, Prompt: p.PromptTemplate},
	}
	_, err := a.updateConfig(func(cfg *config.Config) error {
		if _, ok := config.FindProvider(*cfg, p.ProviderName); !ok {
			return fmt.Errorf("%w: %q", config.ErrProviderNotDefined, p.ProviderName)
		}
		if existing, ok := config.FindShortcut(*cfg, binding.Name); ok {
			if _, isPrompt := existing.AsPrompt(); !isPrompt {
				return fmt.Errorf("%w: %q is bound to %s", errNotCustomPrompt, binding.Name, existing.Command.Kind())
			}
		}
		if err := config.UpsertShortcut(cfg, binding); err != nil {
			return err
		}
		binding, _ = config.FindShortcut(*cfg, binding.Name)
		return nil
	})
	if err != nil {
		slog.Warn("[DEBUG-HOTKEY] custom prompt rejected", "name", p.Name, "error", err)
		return hotkeys.Binding{}, err
	}
	a.refreshShortcuts()
	return binding, nil
}

// GetCustomPrompts returns the prompt bindings in config order.
func (a *App) GetCustomPrompts() []CustomPromptConfig {
	cfg := a.getConfigSnapshot()
	out := make([]CustomPromptConfig, 0, len(cfg.Shortcuts))
	for _, b := range cfg.Shortcuts {
		p, ok := b.AsPrompt()
		if !ok {
			continue
		}
		out = append(out, CustomPromptConfig{
			Name:           b.Name,
			ProviderName:   p.ProviderName,
			PromptTemplate: p.Prompt,
			Shortcut:       b.Shortcut,
		})
	}
	return out
}
