// Package config loads and persists the quickprompt settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"quickprompt/internal/hotkeys"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond
	// Port 0 is valid and means "OS auto-assign".
	maxValidPort = 65535

	defaultTheme       = "light"
	defaultTemperature = 0.7
	maxTemperature     = 2.0
)

// Errors returned by the Upsert helpers.
var (
	ErrEmptyName          = errors.New("name is required")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrShortcutNotFound   = errors.New("shortcut not found")
	ErrPromptNotFound     = errors.New("custom prompt not found")
	ErrProviderNotDefined = errors.New("provider configuration not found")
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := slices.Clone(defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// ProviderConfig holds the credentials and sampling parameters for one
// named LLM provider entry. Prompt bindings refer to it by Name.
type ProviderConfig struct {
	Name        string  `yaml:"name" json:"name"`
	Provider    string  `yaml:"provider" json:"provider"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// Point is a window position in screen pixels.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Size is a window size in pixels.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// UIConfig holds presentation preferences. Nil geometry means "let the
// window manager decide".
type UIConfig struct {
	Theme          string `yaml:"theme" json:"theme"`
	WindowPosition *Point `yaml:"window_position,omitempty" json:"window_position"`
	WindowSize     *Size  `yaml:"window_size,omitempty" json:"window_size"`
}

// Config is the full settings document.
type Config struct {
	LLMProviders   []ProviderConfig  `yaml:"llm_providers" json:"llm_providers"`
	Shortcuts      []hotkeys.Binding `yaml:"shortcuts" json:"shortcuts"`
	UI             UIConfig          `yaml:"ui" json:"ui"`
	WebSocketPort  int               `yaml:"websocket_port" json:"websocket_port"`
	HistoryEnabled bool              `yaml:"history_enabled" json:"history_enabled"`
	// HistoryPath overrides the prompt history database location.
	// Empty means history.db next to the config file.
	HistoryPath string `yaml:"history_path,omitempty" json:"history_path"`
}

var allowedProviders = []string{
	"anthropic",
	"deepseek",
	"google",
	"groq",
	"ollama",
	"openai",
	"phind",
	"xai",
}

var allowedThemes = []string{"light", "dark", "system"}

// DefaultConfig returns the settings written on first start.
func DefaultConfig() Config {
	return Config{
		LLMProviders: []ProviderConfig{},
		Shortcuts: []hotkeys.Binding{
			{Name: "Toggle Window", Shortcut: "shift+cmd+k", Command: hotkeys.ToggleWindow{}},
			{Name: "Get Cursor Position", Shortcut: "shift+k", Command: hotkeys.GetCursorPosition{}},
			{Name: "Get Selected Text", Shortcut: "shift+j", Command: hotkeys.GetSelectedText{}},
			{Name: "Print Hello", Shortcut: "shift+h", Command: hotkeys.PrintHello{}},
		},
		UI:             UIConfig{Theme: defaultTheme},
		HistoryEnabled: true,
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "quickprompt", "config.yaml")
}

// Load reads the config file. A missing or empty file yields defaults.
// Malformed entries are repaired or dropped with a warning; only an
// unreadable or unparsable file is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// AllowedProviderList returns the provider identifiers accepted in
// ProviderConfig.Provider, sorted alphabetically.
func AllowedProviderList() []string {
	return slices.Clone(allowedProviders)
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.LLMProviders != nil {
		dst.LLMProviders = slices.Clone(src.LLMProviders)
	}
	dst.Shortcuts = hotkeys.CloneBindings(src.Shortcuts)
	if src.UI.WindowPosition != nil {
		p := *src.UI.WindowPosition
		dst.UI.WindowPosition = &p
	}
	if src.UI.WindowSize != nil {
		s := *src.UI.WindowSize
		dst.UI.WindowSize = &s
	}
	return dst
}

// FindShortcut returns the binding with the given name.
func FindShortcut(cfg Config, name string) (hotkeys.Binding, bool) {
	for _, b := range cfg.Shortcuts {
		if b.Name == name {
			return b, true
		}
	}
	return hotkeys.Binding{}, false
}

// FindProvider returns the provider entry with the given name.
func FindProvider(cfg Config, name string) (ProviderConfig, bool) {
	for _, p := range cfg.LLMProviders {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// UpsertShortcut replaces the binding named b.Name in place or appends it.
// Bindings are never removed; clearing a shortcut stores an empty string.
// MUTATES: cfg.Shortcuts.
func UpsertShortcut(cfg *Config, b hotkeys.Binding) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return ErrEmptyName
	}
	if err := hotkeys.Validate(b.Shortcut, hotkeys.ModeFor(b.Command)); err != nil {
		return err
	}
	b.Shortcut = hotkeys.Canonical(b.Shortcut)
	for i := range cfg.Shortcuts {
		if cfg.Shortcuts[i].Name == b.Name {
			cfg.Shortcuts[i] = b
			return nil
		}
	}
	cfg.Shortcuts = append(cfg.Shortcuts, b)
	return nil
}

// SetShortcut changes only the key combination of an existing binding.
// MUTATES: cfg.Shortcuts.
func SetShortcut(cfg *Config, name, wire string) (hotkeys.Binding, error) {
	existing, ok := FindShortcut(*cfg, name)
	if !ok {
		return hotkeys.Binding{}, fmt.Errorf("%w: %q", ErrShortcutNotFound, name)
	}
	existing.Shortcut = wire
	if err := UpsertShortcut(cfg, existing); err != nil {
		return hotkeys.Binding{}, err
	}
	updated, _ := FindShortcut(*cfg, name)
	return updated, nil
}

// UpsertProvider removes any entry with the same name and appends p.
// MUTATES: cfg.LLMProviders.
func UpsertProvider(cfg *Config, p ProviderConfig) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrEmptyName
	}
	p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
	if !slices.Contains(allowedProviders, p.Provider) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, p.Provider)
	}
	cfg.LLMProviders = slices.DeleteFunc(cfg.LLMProviders, func(existing ProviderConfig) bool {
		return existing.Name == p.Name
	})
	cfg.LLMProviders = append(cfg.LLMProviders, p)
	return nil
}

// Save validates cfg, writes it atomically and returns the normalized copy.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	cfg = Clone(cfg)
	applyDefaultsAndValidate(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	// API keys live in this file.
	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// filepath.Rel returns an absolute path for Windows cross-drive escapes.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and repairs cfg in place.
// Nothing here is fatal: a bad entry must not keep the app from starting.
// MUTATES: cfg is directly modified.
func applyDefaultsAndValidate(cfg *Config) {
	if isZeroConfig(*cfg) {
		*cfg = DefaultConfig()
		return
	}
	if cfg.LLMProviders == nil {
		cfg.LLMProviders = []ProviderConfig{}
	}
	if cfg.Shortcuts == nil {
		cfg.Shortcuts = []hotkeys.Binding{}
	}
	validateTheme(cfg)
	validateWebSocketPort(cfg)
	sanitizeProviders(cfg)
	sanitizeShortcuts(cfg)
}

func validateTheme(cfg *Config) {
	theme := strings.ToLower(strings.TrimSpace(cfg.UI.Theme))
	if theme == "" {
		theme = defaultTheme
	}
	if !slices.Contains(allowedThemes, theme) {
		slog.Warn("[WARN-CONFIG] unknown ui.theme, falling back to default", "theme", cfg.UI.Theme, "default", defaultTheme)
		theme = defaultTheme
	}
	cfg.UI.Theme = theme
}

// validateWebSocketPort resets out-of-range ports to 0 (auto-assign).
func validateWebSocketPort(cfg *Config) {
	if cfg.WebSocketPort < 0 || cfg.WebSocketPort > maxValidPort {
		slog.Warn("[WARN-CONFIG] websocket_port out of valid range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.WebSocketPort, "max", maxValidPort)
		cfg.WebSocketPort = 0
	}
}

// sanitizeProviders drops unnamed, duplicate and unknown-provider entries
// and clamps sampling parameters.
func sanitizeProviders(cfg *Config) {
	seen := make(map[string]struct{}, len(cfg.LLMProviders))
	kept := cfg.LLMProviders[:0]
	for _, p := range cfg.LLMProviders {
		p.Name = strings.TrimSpace(p.Name)
		p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
		if p.Name == "" {
			slog.Warn("[WARN-CONFIG] dropping llm provider without name", "provider", p.Provider)
			continue
		}
		if _, dup := seen[p.Name]; dup {
			slog.Warn("[WARN-CONFIG] dropping duplicate llm provider", "name", p.Name)
			continue
		}
		if !slices.Contains(allowedProviders, p.Provider) {
			slog.Warn("[WARN-CONFIG] dropping llm provider with unknown type", "name", p.Name, "provider", p.Provider)
			continue
		}
		if p.Temperature < 0 || p.Temperature > maxTemperature {
			slog.Warn("[WARN-CONFIG] temperature out of range, using default",
				"name", p.Name, "configured", p.Temperature, "default", defaultTemperature)
			p.Temperature = defaultTemperature
		}
		if p.MaxTokens < 0 {
			slog.Warn("[WARN-CONFIG] negative max_tokens reset to 0 (provider default)", "name", p.Name)
			p.MaxTokens = 0
		}
		seen[p.Name] = struct{}{}
		kept = append(kept, p)
	}
	cfg.LLMProviders = kept
}

// sanitizeShortcuts canonicalizes shortcut strings. Entries that fail
// structural validation keep their binding but lose the trigger.
func sanitizeShortcuts(cfg *Config) {
	seen := make(map[string]struct{}, len(cfg.Shortcuts))
	kept := cfg.Shortcuts[:0]
	for _, b := range cfg.Shortcuts {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			slog.Warn("[WARN-CONFIG] dropping shortcut without name", "shortcut", b.Shortcut)
			continue
		}
		if _, dup := seen[b.Name]; dup {
			slog.Warn("[WARN-CONFIG] dropping duplicate shortcut", "name", b.Name)
			continue
		}
		if err := hotkeys.Validate(b.Shortcut, hotkeys.ModeFor(b.Command)); err != nil {
			slog.Warn("[WARN-CONFIG] invalid shortcut cleared", "name", b.Name, "error", err)
			b.Shortcut = ""
		}
		b.Shortcut = hotkeys.Canonical(b.Shortcut)
		if _, unknown := b.Command.(hotkeys.Unknown); unknown {
			slog.Warn("[WARN-CONFIG] shortcut has unknown command, it will never fire", "name", b.Name, "command", b.Command.Kind())
		}
		seen[b.Name] = struct{}{}
		kept = append(kept, b)
	}
	cfg.Shortcuts = kept
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
