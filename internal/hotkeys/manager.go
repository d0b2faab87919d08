package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"quickprompt/internal/keys"
	"quickprompt/internal/workerutil"
)

// Registration is one hotkey held with the operating system.
type Registration interface {
	// Keydown delivers one value per activation. It is closed after Unregister.
	Keydown() <-chan struct{}
	Unregister() error
}

// Registrar registers canonical key combinations with the operating system.
type Registrar interface {
	Register(names []keys.Name) (Registration, error)
}

// Registrars for real OS hotkeys live in internal/hotkeys/osreg.

// unavailableRegistrar backs a Manager created without a registrar.
type unavailableRegistrar struct{}

func (unavailableRegistrar) Register([]keys.Name) (Registration, error) {
	return nil, ErrUnsupportedPlatform
}

// ActiveBinding describes a binding currently registered with the OS.
type ActiveBinding struct {
	Name     string      `json:"name"`
	Shortcut string      `json:"shortcut"`
	Kind     CommandKind `json:"kind"`
}

type activeHotkey struct {
	binding Binding
	reg     Registration
}

// Manager owns the set of globally registered hotkeys. Apply replaces the
// whole set; there is no incremental update.
type Manager struct {
	registrar Registrar

	// Supervision is passed to each listener's supervisor. Set before Apply.
	Supervision workerutil.Options

	mu     sync.Mutex
	active []activeHotkey
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager. With a nil registrar every registration
// fails with ErrUnsupportedPlatform.
func NewManager(registrar Registrar) *Manager {
	if registrar == nil {
		registrar = unavailableRegistrar{}
	}
	return &Manager{registrar: registrar}
}

// CheckGlobal reports whether names can be registered with the OS: one or
// more modifiers followed by exactly one regular key.
func CheckGlobal(names []keys.Name) error {
	modifiers, others := keys.Partition(names)
	if len(modifiers) == 0 || len(others) != 1 {
		return ErrNotGloballyUsable
	}
	return nil
}

// Apply unregisters every previous hotkey and registers each binding that
// has a shortcut and a non-prompt command. onTrigger runs on a listener
// goroutine and must not call Apply or Stop synchronously.
//
// Bindings that cannot be registered are skipped; their errors are joined
// into the returned error while the remaining bindings stay active.
func (m *Manager) Apply(ctx context.Context, bindings []Binding, onTrigger func(Binding)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.stopLocked(); err != nil {
		errs = append(errs, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for _, b := range bindings {
		if b.Shortcut == "" || b.Command == nil {
			continue
		}
		if _, isPrompt := b.AsPrompt(); isPrompt {
			continue
		}
		if _, unknown := b.Command.(Unknown); unknown {
			continue
		}
		names := keys.Sort(Decode(b.Shortcut))
		if err := CheckGlobal(names); err != nil {
			slog.Warn("[DEBUG-HOTKEY] skipping binding", "name", b.Name, "shortcut", b.Shortcut, "error", err)
			errs = append(errs, fmt.Errorf("binding %q (%s): %w", b.Name, b.Shortcut, err))
			continue
		}
		reg, err := m.registrar.Register(names)
		if err != nil {
			slog.Warn("[DEBUG-HOTKEY] registration failed", "name", b.Name, "shortcut", b.Shortcut, "error", err)
			errs = append(errs, fmt.Errorf("register %q (%s): %w", b.Name, b.Shortcut, err))
			continue
		}
		m.active = append(m.active, activeHotkey{binding: b, reg: reg})
		m.listen(listenCtx, b, reg, onTrigger)
		slog.Debug("[DEBUG-HOTKEY] registered", "name", b.Name, "shortcut", b.Shortcut)
	}
	return errors.Join(errs...)
}

func (m *Manager) listen(ctx context.Context, b Binding, reg Registration, onTrigger func(Binding)) {
	workerutil.Supervise(ctx, "hotkey:"+b.Name, &m.wg, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-reg.Keydown():
				if !ok {
					return
				}
				if onTrigger != nil {
					onTrigger(b)
				}
			}
		}
	}, m.Supervision)
}

// Stop unregisters every hotkey and waits for the listeners to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	var errs []error
	for _, a := range m.active {
		if err := a.reg.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister %q: %w", a.binding.Name, err))
		}
	}
	m.active = nil
	m.wg.Wait()
	return errors.Join(errs...)
}

// ActiveBindings lists the bindings currently registered, in apply order.
func (m *Manager) ActiveBindings() []ActiveBinding {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActiveBinding, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, ActiveBinding{
			Name:     a.binding.Name,
			Shortcut: a.binding.Shortcut,
			Kind:     a.binding.Command.Kind(),
		})
	}
	return out
}
