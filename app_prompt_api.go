package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"quickprompt/internal/config"
	"quickprompt/internal/history"
)

// selectedTextPlaceholder is replaced with the captured selection.
const selectedTextPlaceholder = "{{selectedText}}"

const historyWriteTimeout = 2 * time.Second

var (
	// ErrPromptInFlight is returned while an earlier prompt has not completed.
	ErrPromptInFlight  = errors.New("a prompt is already running")
	ErrNoSelectedText  = errors.New("no text is selected")
	errNotCustomPrompt = errors.New("not a custom prompt")
	errPromptAbandoned = errors.New("prompt abandoned: shortcuts were reloaded")
)

// PromptRequest is the payload of prompt:execute. The frontend performs the
// provider call and reports back through CompletePrompt.
type PromptRequest struct {
	RequestID string                `json:"request_id"`
	Name      string                `json:"name"`
	Shortcut  string                `json:"shortcut"`
	Provider  config.ProviderConfig `json:"provider"`
	Prompt    string                `json:"prompt"`
}

// PromptResult is the payload of prompt:completed.
type PromptResult struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// renderPrompt substitutes every placeholder occurrence with text.
func renderPrompt(template, text string) string {
	return strings.ReplaceAll(template, selectedTextPlaceholder, text)
}

func (a *App) isPromptInFlight() bool {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()
	return a.inFlight != nil
}

// SetSelectedText stores the text the next prompt runs against.
func (a *App) SetSelectedText(text string) {
	a.promptMu.Lock()
	a.selectedText = text
	a.promptMu.Unlock()
}

// GetSelectedText returns the stored selection.
func (a *App) GetSelectedText() string {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()
	return a.selectedText
}

// ExecuteCustomPrompt starts the prompt binding called name against the
// stored selection. Only one prompt runs at a time.
func (a *App) ExecuteCustomPrompt(name string) (PromptRequest, error) {
	cfg := a.getConfigSnapshot()
	binding, ok := config.FindShortcut(cfg, name)
	if !ok {
		return PromptRequest{}, fmt.Errorf("%w: %q", config.ErrPromptNotFound, name)
	}
	prompt, ok := binding.AsPrompt()
	if !ok {
		return PromptRequest{}, fmt.Errorf("%w: %q", errNotCustomPrompt, name)
	}
	provider, ok := config.FindProvider(cfg, prompt.ProviderName)
	if !ok {
		return PromptRequest{}, fmt.Errorf("%w: %q", config.ErrProviderNotDefined, prompt.ProviderName)
	}

	a.promptMu.Lock()
	if a.inFlight != nil {
		running := a.inFlight.Name
		a.promptMu.Unlock()
		slog.Debug("[DEBUG-DISPATCH] prompt rejected while busy", "name", name, "running", running)
		return PromptRequest{}, ErrPromptInFlight
	}
	if a.selectedText == "" {
		a.promptMu.Unlock()
		return PromptRequest{}, ErrNoSelectedText
	}
	req := PromptRequest{
		RequestID: uuid.NewString(),
		Name:      binding.Name,
		Shortcut:  binding.Shortcut,
		Provider:  provider,
		Prompt:    renderPrompt(prompt.Prompt, a.selectedText),
	}
	a.inFlight = &req
	a.promptMu.Unlock()

	if store, err := a.requireHistory(); err == nil {
		ctx, cancel := context.WithTimeout(a.backgroundContext(), historyWriteTimeout)
		beginErr := store.Begin(ctx, history.Run{
			ID:           req.RequestID,
			PromptName:   req.Name,
			ProviderName: provider.Name,
			Shortcut:     req.Shortcut,
		})
		cancel()
		if beginErr != nil {
			slog.Warn("[DEBUG-HISTORY] failed to record prompt start", "request", req.RequestID, "error", beginErr)
		}
	}

	slog.Info("[DEBUG-DISPATCH] prompt started", "name", req.Name, "request", req.RequestID)
	a.emitEvent(eventPromptExecute, req)
	return req, nil
}

// CompletePrompt reports the outcome of the prompt identified by requestID.
// A completion for anything but the running prompt is ignored.
func (a *App) CompletePrompt(requestID string, response string, errMessage string) {
	a.promptMu.Lock()
	if a.inFlight == nil || a.inFlight.RequestID != requestID {
		a.promptMu.Unlock()
		slog.Debug("[DEBUG-DISPATCH] stale prompt completion ignored", "request", requestID)
		return
	}
	req := *a.inFlight
	a.inFlight = nil
	if errMessage == "" {
		a.lastResponse = response
	}
	a.promptMu.Unlock()

	a.finishPrompt(req, response, errMessage)
}

// abandonInFlightPrompt clears the busy flag when the shortcuts are
// reloaded, so a completion the frontend never sent cannot block dispatch.
func (a *App) abandonInFlightPrompt() {
	a.promptMu.Lock()
	if a.inFlight == nil {
		a.promptMu.Unlock()
		return
	}
	req := *a.inFlight
	a.inFlight = nil
	a.promptMu.Unlock()

	a.finishPrompt(req, "", errPromptAbandoned.Error())
}

func (a *App) finishPrompt(req PromptRequest, response string, errMessage string) {
	if store, err := a.requireHistory(); err == nil {
		ctx, cancel := context.WithTimeout(a.backgroundContext(), historyWriteTimeout)
		finishErr := store.Finish(ctx, req.RequestID, errMessage, time.Now())
		cancel()
		if finishErr != nil {
			slog.Warn("[DEBUG-HISTORY] failed to record prompt outcome", "request", req.RequestID, "error", finishErr)
		}
	}

	result := PromptResult{RequestID: req.RequestID, Name: req.Name, Error: errMessage}
	if errMessage == "" {
		result.Response = response
		slog.Info("[DEBUG-DISPATCH] prompt completed", "name", req.Name, "request", req.RequestID)
	} else {
		slog.Warn("[DEBUG-DISPATCH] prompt failed", "name", req.Name, "request", req.RequestID, "error", errMessage)
	}
	a.emitEvent(eventPromptCompleted, result)
}

// GetLastResponse returns the most recent successful prompt response.
func (a *App) GetLastResponse() string {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()
	return a.lastResponse
}

// GetPromptHistory returns up to limit recent runs, newest first. It
// returns an empty list when history is disabled.
func (a *App) GetPromptHistory(limit int) ([]history.Run, error) {
	store, err := a.requireHistory()
	if err != nil {
		return []history.Run{}, nil
	}
	return store.Recent(a.backgroundContext(), limit)
}
