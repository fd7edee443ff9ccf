package transport

import (
	"errors"
	"sync"
)

// The wire protocol adapter lives in its own module and registers itself
// here from an init function, the same way database/sql drivers do.

var (
	providerMu sync.RWMutex
	provider   Provider
)

// RegisterProvider installs the wire adapter. Calling it twice panics:
// exactly one adapter must be linked into the binary.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()

	if p == nil {
		panic("transport: RegisterProvider with nil provider")
	}
	if provider != nil {
		panic("transport: provider already registered")
	}
	provider = p
}

// RegisteredProvider returns the installed wire adapter.
func RegisteredProvider() (Provider, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()

	if provider == nil {
		return nil, errors.New("transport: no provider registered (link a wire adapter)")
	}
	return provider, nil
}
