package eventlink

import "errors"

// Sentinel errors for Runtime lifecycle.
var (
	// ErrAlreadyStarted is returned by Start on a running runtime.
	ErrAlreadyStarted = errors.New("runtime already started")

	// ErrRuntimeClosed is returned by Start after Close.
	ErrRuntimeClosed = errors.New("runtime is closed")
)
