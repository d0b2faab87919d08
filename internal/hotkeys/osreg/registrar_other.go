//go:build !(windows || ((darwin || linux) && cgo)) || nohotkeys

package osreg

import (
	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

type unsupportedRegistrar struct{}

// New returns a registrar that refuses every registration.
func New() hotkeys.Registrar { return unsupportedRegistrar{} }

func (unsupportedRegistrar) Register([]keys.Name) (hotkeys.Registration, error) {
	return nil, hotkeys.ErrUnsupportedPlatform
}
