//go:build (windows || ((darwin || linux) && cgo)) && !nohotkeys

// Package osreg registers global hotkeys with the operating system through
// golang.design/x/hotkey. On Linux the library needs an X11 display as soon
// as it is linked, so only the app binary imports this package; headless
// builds of the app use the nohotkeys tag.
package osreg

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

var hotkeyKeys = map[keys.Name]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	keys.Space:      hotkey.KeySpace,
	keys.Enter:      hotkey.KeyReturn,
	keys.Escape:     hotkey.KeyEscape,
	keys.Delete:     hotkey.KeyDelete,
	keys.Tab:        hotkey.KeyTab,
	keys.ArrowLeft:  hotkey.KeyLeft,
	keys.ArrowRight: hotkey.KeyRight,
	keys.ArrowUp:    hotkey.KeyUp,
	keys.ArrowDown:  hotkey.KeyDown,

	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"F13": hotkey.KeyF13, "F14": hotkey.KeyF14, "F15": hotkey.KeyF15, "F16": hotkey.KeyF16,
	"F17": hotkey.KeyF17, "F18": hotkey.KeyF18, "F19": hotkey.KeyF19, "F20": hotkey.KeyF20,
}

// toHotkey converts a canonical key sequence into the library's types.
func toHotkey(names []keys.Name) ([]hotkey.Modifier, hotkey.Key, error) {
	if err := hotkeys.CheckGlobal(names); err != nil {
		return nil, 0, err
	}
	modifiers, others := keys.Partition(names)
	mods := make([]hotkey.Modifier, 0, len(modifiers))
	for _, m := range modifiers {
		mod, ok := hotkeyModifiers[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %s", hotkeys.ErrUnsupportedKey, m)
		}
		mods = append(mods, mod)
	}
	key, ok := hotkeyKeys[others[0]]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", hotkeys.ErrUnsupportedKey, others[0])
	}
	return mods, key, nil
}

type systemRegistrar struct{}

// New returns the registrar for the host operating system.
func New() hotkeys.Registrar { return systemRegistrar{} }

func (systemRegistrar) Register(names []keys.Name) (hotkeys.Registration, error) {
	mods, key, err := toHotkey(names)
	if err != nil {
		return nil, err
	}
	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, err
	}
	r := &systemRegistration{
		hk:      hk,
		keydown: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go r.forward()
	return r, nil
}

type systemRegistration struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (r *systemRegistration) forward() {
	defer close(r.keydown)
	for {
		select {
		case <-r.done:
			return
		case <-r.hk.Keydown():
			select {
			case r.keydown <- struct{}{}:
			default:
				// Previous activation not consumed yet; drop the repeat.
			}
		}
	}
}

func (r *systemRegistration) Keydown() <-chan struct{} { return r.keydown }

func (r *systemRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
	})
	return err
}
