// internal/source/events.go
package source

import (
	"sync"
	"time"
)

// Event identifies a passive notification from a playback source.
type Event int

const (
	// EventCanPlayThrough fires when a paused source finishes buffering or a
	// requested seek and can proceed from its current position.
	EventCanPlayThrough Event = iota
	// EventBuffering fires when a source stalls and starts buffering.
	EventBuffering
	// EventPlaying fires when a source starts or resumes advancing.
	EventPlaying
	// EventEnded fires when a source reaches its end of stream.
	EventEnded
	// EventPaused fires when a source confirms it has paused.
	EventPaused
	// EventPositionJumped fires on an unrequested position jump (drop frame).
	// Media-element adapters only.
	EventPositionJumped
	// EventPlayableChanged fires when replay readiness flips. Whiteboard
	// adapters only; consumed once at startup.
	EventPlayableChanged
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventCanPlayThrough:
		return "CanPlayThrough"
	case EventBuffering:
		return "Buffering"
	case EventPlaying:
		return "Playing"
	case EventEnded:
		return "Ended"
	case EventPaused:
		return "Paused"
	case EventPositionJumped:
		return "PositionJumped"
	case EventPlayableChanged:
		return "PlayableChanged"
	default:
		return "Unknown"
	}
}

// Payload carries event details. Position is set for EventPositionJumped,
// Playable for EventPlayableChanged.
type Payload struct {
	Position time.Duration
	Playable bool
}

// Feed is a typed subscription registry. On and Once return an explicit
// unsubscribe handle; one-shot semantics are implemented by unsubscribing
// inside the wrapper before the callback runs, so re-registration from within
// the callback body is race-free.
type Feed struct {
	mu   sync.Mutex
	next int
	subs map[Event]map[int]func(Payload)
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[Event]map[int]func(Payload))}
}

// On registers a persistent listener and returns its unsubscribe handle.
// Unsubscribing twice is harmless.
func (f *Feed) On(ev Event, fn func(Payload)) (off func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(ev, fn)
}

// Once registers a listener that unsubscribes itself before firing.
func (f *Feed) Once(ev Event, fn func(Payload)) (off func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var offSelf func()
	offSelf = f.addLocked(ev, func(p Payload) {
		offSelf()
		fn(p)
	})
	return offSelf
}

// Emit invokes every listener registered for ev. Listeners are snapshotted
// first, so a listener may subscribe or unsubscribe without deadlocking.
func (f *Feed) Emit(ev Event, p Payload) {
	f.mu.Lock()
	listeners := make([]func(Payload), 0, len(f.subs[ev]))
	for _, fn := range f.subs[ev] {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// Reset drops every listener. Used by the crash path.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = make(map[Event]map[int]func(Payload))
}

func (f *Feed) addLocked(ev Event, fn func(Payload)) (off func()) {
	id := f.next
	f.next++
	if f.subs[ev] == nil {
		f.subs[ev] = make(map[int]func(Payload))
	}
	f.subs[ev][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[ev], id)
	}
}
