// internal/source/sim_test.go
package source

import (
	"testing"
	"time"
)

// expectEvent subscribes before the caller issues the command that should
// produce the event, so synchronous emissions are not missed.
func expectEvent(t *testing.T, f *Feed, ev Event) func() Payload {
	t.Helper()
	ch := make(chan Payload, 1)
	f.Once(ev, func(p Payload) { ch <- p })
	return func() Payload {
		select {
		case p := <-ch:
			return p
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v", ev)
			return Payload{}
		}
	}
}

func waitEvent(t *testing.T, f *Feed, ev Event) Payload {
	t.Helper()
	return expectEvent(t, f, ev)()
}

func TestSim_StartupReadiness(t *testing.T) {
	video := NewSim(SimOptions{Duration: time.Second, StartupDelay: 10 * time.Millisecond, Tick: 10 * time.Millisecond})
	defer video.Close()

	waitEvent(t, video.Events(), EventCanPlayThrough)
	if !video.Ready() {
		t.Error("video should be ready after startup")
	}
}

func TestSim_WhiteboardReadiness(t *testing.T) {
	wb := NewSim(SimOptions{Duration: time.Second, StartupDelay: 10 * time.Millisecond, Whiteboard: true, Tick: 10 * time.Millisecond})
	defer wb.Close()

	p := waitEvent(t, wb.Events(), EventPlayableChanged)
	if !p.Playable {
		t.Error("playable payload should be true")
	}
}

func TestSim_PlayAdvancesAndEnds(t *testing.T) {
	s := NewSim(SimOptions{Duration: 50 * time.Millisecond, Tick: 10 * time.Millisecond})
	defer s.Close()

	waitEvent(t, s.Events(), EventCanPlayThrough)

	playing := expectEvent(t, s.Events(), EventPlaying)
	ended := expectEvent(t, s.Events(), EventEnded)
	s.Play()
	playing()
	ended()

	if got := s.Position(); got != 50*time.Millisecond {
		t.Errorf("Position() = %v, want clamped to duration", got)
	}
}

func TestSim_SeekPastDurationEnds(t *testing.T) {
	s := NewSim(SimOptions{Duration: time.Second, Tick: 10 * time.Millisecond})
	defer s.Close()
	waitEvent(t, s.Events(), EventCanPlayThrough)

	ended := expectEvent(t, s.Events(), EventEnded)
	s.SeekTo(2 * time.Second)
	ended()
	if got := s.Position(); got != time.Second {
		t.Errorf("Position() = %v, want 1s", got)
	}
}

func TestSim_SeekWhilePausedReportsCanPlayThrough(t *testing.T) {
	s := NewSim(SimOptions{Duration: time.Second, Tick: 10 * time.Millisecond})
	defer s.Close()
	waitEvent(t, s.Events(), EventCanPlayThrough)

	seeked := expectEvent(t, s.Events(), EventCanPlayThrough)
	s.SeekTo(200 * time.Millisecond)
	seeked()
	if got := s.Position(); got != 200*time.Millisecond {
		t.Errorf("Position() = %v, want 200ms", got)
	}
}

func TestSim_StallWhilePlayingRecovers(t *testing.T) {
	s := NewSim(SimOptions{Duration: 10 * time.Second, Tick: 10 * time.Millisecond})
	defer s.Close()
	waitEvent(t, s.Events(), EventCanPlayThrough)

	s.Play()
	waitEvent(t, s.Events(), EventPlaying)

	buffering := expectEvent(t, s.Events(), EventBuffering)
	recovered := expectEvent(t, s.Events(), EventPlaying)
	s.Stall(20 * time.Millisecond)
	buffering()
	recovered()
}

func TestSim_JumpEmitsPositionJumped(t *testing.T) {
	s := NewSim(SimOptions{Duration: time.Second, Tick: 10 * time.Millisecond})
	defer s.Close()
	waitEvent(t, s.Events(), EventCanPlayThrough)

	jumped := expectEvent(t, s.Events(), EventPositionJumped)
	s.Jump(300 * time.Millisecond)
	p := jumped()
	if p.Position != 300*time.Millisecond {
		t.Errorf("jump position = %v, want 300ms", p.Position)
	}
}
