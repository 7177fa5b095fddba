// internal/source/mock.go
package source

import (
	"sync"
	"time"
)

// Mock is a test double for Adapter. Commands only record themselves; tests
// drive the engine by emitting events on the feed manually.
type Mock struct {
	mu         sync.Mutex
	feed       *Feed
	position   time.Duration
	duration   time.Duration
	ready      bool
	playCalls  int
	pauseCalls int
	seekCalls  []time.Duration
}

// NewMock creates a mock adapter. It starts ready with a 10 minute duration.
func NewMock() *Mock {
	return &Mock{
		feed:     NewFeed(),
		duration: 10 * time.Minute,
		ready:    true,
	}
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
}

func (m *Mock) SeekTo(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Mock) Events() *Feed { return m.feed }

// Test helpers

func (m *Mock) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// Emit helpers so tests read as source behavior.

func (m *Mock) EmitPlaying()        { m.feed.Emit(EventPlaying, Payload{}) }
func (m *Mock) EmitPaused()         { m.feed.Emit(EventPaused, Payload{}) }
func (m *Mock) EmitBuffering()      { m.feed.Emit(EventBuffering, Payload{}) }
func (m *Mock) EmitCanPlayThrough() { m.feed.Emit(EventCanPlayThrough, Payload{}) }
func (m *Mock) EmitEnded()          { m.feed.Emit(EventEnded, Payload{}) }

func (m *Mock) EmitPositionJumped(pos time.Duration) {
	m.SetPosition(pos)
	m.feed.Emit(EventPositionJumped, Payload{Position: pos})
}

func (m *Mock) EmitPlayableChanged(playable bool) {
	m.SetReady(playable)
	m.feed.Emit(EventPlayableChanged, Payload{Playable: playable})
}
