// internal/source/sim.go
package source

import (
	"sync"
	"time"
)

const (
	defaultSimTick = 50 * time.Millisecond
	simCmdLatency  = 10 * time.Millisecond
)

// SimOptions configures a simulated source.
type SimOptions struct {
	Duration     time.Duration // total stream length
	StartupDelay time.Duration // time until the source reports ready
	SeekDelay    time.Duration // latency of a requested seek
	Whiteboard   bool          // report readiness via PlayableChanged instead of CanPlayThrough
	Tick         time.Duration // clock resolution (default 50ms)
}

// Sim is a clock-driven simulated playback source. It advances its position
// in real time while playing, reports readiness after a startup delay, honors
// seeks with a configurable latency, and can be told to stall or jump to
// exercise the engine's passive reconciliation paths.
type Sim struct {
	opts SimOptions
	feed *Feed

	mu      sync.Mutex
	pos     time.Duration
	playing bool
	ready   bool
	stalled bool

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSim creates and starts a simulated source.
func NewSim(opts SimOptions) *Sim {
	if opts.Tick <= 0 {
		opts.Tick = defaultSimTick
	}
	s := &Sim{
		opts:   opts,
		feed:   NewFeed(),
		closed: make(chan struct{}),
	}
	go s.startup()
	go s.clock()
	return s
}

// Close stops the simulation clock.
func (s *Sim) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *Sim) startup() {
	select {
	case <-time.After(s.opts.StartupDelay):
	case <-s.closed:
		return
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	if s.opts.Whiteboard {
		s.feed.Emit(EventPlayableChanged, Payload{Playable: true})
	} else {
		s.feed.Emit(EventCanPlayThrough, Payload{})
	}
}

func (s *Sim) clock() {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if !s.playing || s.stalled {
			s.mu.Unlock()
			continue
		}
		s.pos += s.opts.Tick
		ended := s.pos >= s.opts.Duration
		if ended {
			s.pos = s.opts.Duration
			s.playing = false
		}
		s.mu.Unlock()

		if ended {
			s.feed.Emit(EventEnded, Payload{})
		}
	}
}

func (s *Sim) Play() {
	go func() {
		if !s.sleep(simCmdLatency) {
			return
		}
		s.mu.Lock()
		if !s.ready || s.pos >= s.opts.Duration {
			s.mu.Unlock()
			return
		}
		s.playing = true
		s.mu.Unlock()
		s.feed.Emit(EventPlaying, Payload{})
	}()
}

func (s *Sim) Pause() {
	go func() {
		if !s.sleep(simCmdLatency) {
			return
		}
		s.mu.Lock()
		s.playing = false
		s.mu.Unlock()
		s.feed.Emit(EventPaused, Payload{})
	}()
}

func (s *Sim) SeekTo(pos time.Duration) {
	go func() {
		if !s.sleep(s.opts.SeekDelay + simCmdLatency) {
			return
		}
		s.mu.Lock()
		if pos >= s.opts.Duration {
			s.pos = s.opts.Duration
			s.playing = false
			s.mu.Unlock()
			s.feed.Emit(EventEnded, Payload{})
			return
		}
		s.pos = max(pos, 0)
		playing := s.playing
		s.mu.Unlock()
		if playing {
			s.feed.Emit(EventPlaying, Payload{})
		} else {
			s.feed.Emit(EventCanPlayThrough, Payload{})
		}
	}()
}

func (s *Sim) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Sim) Duration() time.Duration { return s.opts.Duration }

func (s *Sim) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Sim) Events() *Feed { return s.feed }

// Stall makes the source buffer for d, then report recovery: a stall that
// survives to the end still playing resumes with Playing, one that was paused
// mid-stall reports CanPlayThrough instead.
func (s *Sim) Stall(d time.Duration) {
	s.mu.Lock()
	if s.stalled {
		s.mu.Unlock()
		return
	}
	s.stalled = true
	s.mu.Unlock()
	s.feed.Emit(EventBuffering, Payload{})

	go func() {
		if !s.sleep(d) {
			return
		}
		s.mu.Lock()
		s.stalled = false
		playing := s.playing
		s.mu.Unlock()
		if playing {
			s.feed.Emit(EventPlaying, Payload{})
		} else {
			s.feed.Emit(EventCanPlayThrough, Payload{})
		}
	}()
}

// Jump performs an unrequested position jump (drop frame).
func (s *Sim) Jump(to time.Duration) {
	s.mu.Lock()
	s.pos = max(min(to, s.opts.Duration), 0)
	pos := s.pos
	s.mu.Unlock()
	s.feed.Emit(EventPositionJumped, Payload{Position: pos})
}

func (s *Sim) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.closed:
		return false
	}
}
