// internal/source/interface.go

// Package source defines the adapter contract the reconciliation engine
// consumes for each of its two playback sources, plus a mock for tests and a
// clock-driven simulated source for the demo.
package source

import "time"

// Adapter is the contract a playback source must satisfy. Commands are
// fire-and-forget: completion is reported through the event feed, never
// synchronously. Adapters must be safe for calls from the engine's goroutines.
type Adapter interface {
	Play()
	Pause()
	SeekTo(pos time.Duration)
	Position() time.Duration
	Duration() time.Duration
	Ready() bool
	Events() *Feed
}

// Verify implementations at compile time.
var (
	_ Adapter = (*Mock)(nil)
	_ Adapter = (*Sim)(nil)
)
