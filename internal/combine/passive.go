// internal/combine/passive.go
package combine

import (
	"time"

	"github.com/llehouerou/lockstep/internal/machine"
	"github.com/llehouerou/lockstep/internal/source"
	"github.com/llehouerou/lockstep/internal/status"
)

// wirePassive installs the persistent listeners that turn spontaneous source
// notifications into reconciliation procedures. Each wrapper checks the
// origin tag first: an event from source X is acted on only while the tag is
// None or X, so echoes of the engine's own commands are never reprocessed.
func (e *Engine) wirePassive() {
	e.offVideoBuffering = e.video.Events().On(source.EventBuffering,
		e.passiveHook(status.SourceVideo, e.passiveBuffering))
	e.offVideoPlaying = e.video.Events().On(source.EventPlaying,
		e.passiveHook(status.SourceVideo, e.passiveResume))
	e.offVideoEnded = e.video.Events().On(source.EventEnded,
		e.passiveHook(status.SourceVideo, e.passiveEnded))
	e.offVideoJumped = e.video.Events().On(source.EventPositionJumped, func(p source.Payload) {
		e.mu.Lock()
		ok := !e.crashed && e.trigger.Allows(status.SourceVideo)
		e.mu.Unlock()
		if !ok {
			return
		}
		pos := p.Position
		e.queue.Go(func() error { return e.passiveDropFrame(pos) })
	})

	e.offWhiteboardBuffering = e.whiteboard.Events().On(source.EventBuffering,
		e.passiveHook(status.SourceWhiteboard, e.passiveBuffering))
	e.offWhiteboardPlaying = e.whiteboard.Events().On(source.EventPlaying,
		e.passiveHook(status.SourceWhiteboard, e.passiveResume))
	e.offWhiteboardEnded = e.whiteboard.Events().On(source.EventEnded,
		e.passiveHook(status.SourceWhiteboard, e.passiveEnded))

	// Startup readiness: each source leaves its initial buffering state on
	// its own readiness signal; the whiteboard reports it as a playable flip.
	if !e.video.Ready() {
		e.offVideoReady = e.video.Events().Once(source.EventCanPlayThrough, func(source.Payload) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.machine.SetStatus(status.SourceVideo, status.AtomPause)
			e.publishCurrentLocked()
		})
	}
	if !e.whiteboard.Ready() {
		e.offWhiteboardReady = e.whiteboard.Events().Once(source.EventPlayableChanged, func(p source.Payload) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if p.Playable {
				e.machine.SetStatus(status.SourceWhiteboard, status.AtomPause)
				e.publishCurrentLocked()
			}
		})
	}
}

func (e *Engine) teardownPassiveLocked() {
	for _, off := range []func(){
		e.offVideoBuffering, e.offVideoPlaying, e.offVideoEnded, e.offVideoJumped, e.offVideoReady,
		e.offWhiteboardBuffering, e.offWhiteboardPlaying, e.offWhiteboardEnded, e.offWhiteboardReady,
	} {
		if off != nil {
			off()
		}
	}
}

// passiveHook gates an event from s on the origin tag and, when allowed,
// queues the reconciliation procedure as its own top-level unit. The
// procedure re-reads the current state once it runs, because earlier units
// may already have resolved the situation.
func (e *Engine) passiveHook(s status.Source, run func(status.Source) error) func(source.Payload) {
	return func(source.Payload) {
		e.mu.Lock()
		ok := !e.crashed && e.trigger.Allows(s)
		e.mu.Unlock()
		if !ok {
			return
		}
		e.queue.Go(func() error { return run(s) })
	}
}

// passiveBufferingProc pauses the healthy source while s buffers.
type passiveBufferingProc struct {
	e    *Engine
	done chan error

	offOtherPaused func()
}

func (e *Engine) passiveBuffering(s status.Source) error {
	p := &passiveBufferingProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Combined() != status.CombinedPlaying {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked("passive buffering", status.TriggerFor(s), p.done,
		[]status.Combined{status.CombinedPlayingBuffering},
		nil,
	)

	e.machine.SetStatus(s, status.AtomPlayingBuffering)
	e.publishCurrentLocked()

	other := s.Other()
	if a := e.machine.Status(other); a == status.AtomPause || a == status.AtomEnded {
		// Already parked: skip the pause command, the status update above is
		// all that was left to do.
		p.teardownLocked()
		e.mu.Unlock()
		return nil
	}

	e.machine.One(status.CombinedPlayingBuffering, func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.done <- nil
	})
	p.offOtherPaused = e.onceAtom(other, source.EventPaused, status.AtomPause)
	e.adapter(other).Pause()
	e.mu.Unlock()

	return e.wait(p.done, "passive buffering")
}

func (p *passiveBufferingProc) teardownLocked() {
	if p.offOtherPaused != nil {
		p.offOtherPaused()
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}

// passiveResumeProc reacts to a buffering source reporting playing again:
// the parked source is driven back to play so both advance together.
type passiveResumeProc struct {
	e    *Engine
	done chan error

	offOtherPlaying func()
	offOtherEnded   func()
	offSelfPaused   func()
	offSelfEnded    func()
}

func (e *Engine) passiveResume(s status.Source) error {
	p := &passiveResumeProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	// Only a source recovering from a stall the engine reacted to needs
	// reconciliation; anything else is an echo already handled elsewhere.
	if e.machine.Status(s) != status.AtomPlayingBuffering {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked("passive resume", status.TriggerFor(s), p.done,
		[]status.Combined{
			status.CombinedToPlay,
			status.CombinedToPause,
			status.CombinedPlayingBuffering,
			status.CombinedPause,
			status.CombinedPlaying,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPause, status.CombinedPlaying, status.CombinedEnded},
	)

	other := s.Other()
	if e.machine.Status(other) == status.AtomPlayingBuffering {
		// Both sides were stalled; wait for the other's own recovery.
		p.offOtherPlaying = e.onceAtom(other, source.EventPlaying, status.AtomPlaying)
	}
	// The origin tag suppresses the other side's passive ended wrapper while
	// this procedure is in flight, so its stream end is observed here.
	p.offOtherEnded = e.onceAtom(other, source.EventEnded, status.AtomEnded)

	e.machine.On(status.CombinedPlayingBuffering, func(prev, cur machine.Pair, commit func()) { commit() })
	e.machine.On(status.CombinedToPlay, func(prev, cur machine.Pair, commit func()) {
		if p.offOtherPlaying == nil {
			p.offOtherPlaying = e.onceAtom(other, source.EventPlaying, status.AtomPlaying)
			e.adapter(other).Play()
		}
		commit()
	})
	e.machine.One(status.CombinedToPause, func(prev, cur machine.Pair, commit func()) {
		// The other side ended while we stalled; park the survivor.
		for _, src := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
			if cur.Get(src) == status.AtomPlaying {
				p.offSelfPaused = e.onceAtom(src, source.EventPaused, status.AtomPause)
				p.offSelfEnded = e.onceAtom(src, source.EventEnded, status.AtomEnded)
				e.adapter(src).Pause()
			}
		}
		commit()
	})
	e.machine.One(status.CombinedPlaying, p.terminal(status.CombinedPlaying))
	e.machine.One(status.CombinedPause, p.terminal(status.CombinedPause))
	e.machine.One(status.CombinedEnded, p.terminal(status.CombinedEnded))

	e.machine.SetStatus(s, status.AtomPlaying)
	e.mu.Unlock()

	return e.wait(p.done, "passive resume")
}

func (p *passiveResumeProc) terminal(c status.Combined) machine.Handler {
	return func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.e.publish(c, "")
		p.done <- nil
	}
}

func (p *passiveResumeProc) teardownLocked() {
	for _, off := range []func(){p.offOtherPlaying, p.offOtherEnded, p.offSelfPaused, p.offSelfEnded} {
		if off != nil {
			off()
		}
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}

// passiveEndedProc parks the surviving source when s exhausts its stream.
type passiveEndedProc struct {
	e    *Engine
	done chan error

	offOtherPaused func()
	offOtherEnded  func()
}

func (e *Engine) passiveEnded(s status.Source) error {
	p := &passiveEndedProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Status(s) == status.AtomEnded {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked("passive ended", status.TriggerFor(s), p.done,
		[]status.Combined{
			status.CombinedToPause,
			status.CombinedPause,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPause, status.CombinedEnded},
	)

	other := s.Other()
	// Both sources can exhaust near-simultaneously; the other side's own
	// ended notification would be suppressed by the origin tag, so this
	// procedure listens for it directly.
	p.offOtherEnded = e.onceAtom(other, source.EventEnded, status.AtomEnded)

	e.machine.One(status.CombinedToPause, func(prev, cur machine.Pair, commit func()) {
		for _, src := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
			a := cur.Get(src)
			if a == status.AtomPlaying || a == status.AtomPlayingBuffering {
				p.offOtherPaused = e.onceAtom(src, source.EventPaused, status.AtomPause)
				e.adapter(src).Pause()
			}
		}
		commit()
	})
	e.machine.One(status.CombinedPause, p.terminal(status.CombinedPause))
	e.machine.One(status.CombinedEnded, p.terminal(status.CombinedEnded))

	e.machine.SetStatus(s, status.AtomEnded)
	e.mu.Unlock()

	return e.wait(p.done, "passive ended")
}

func (p *passiveEndedProc) terminal(c status.Combined) machine.Handler {
	return func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.e.publish(c, "")
		p.done <- nil
	}
}

func (p *passiveEndedProc) teardownLocked() {
	for _, off := range []func(){p.offOtherPaused, p.offOtherEnded} {
		if off != nil {
			off()
		}
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}

// passiveDropFrameProc handles an unrequested video position jump: pause the
// video, realign the whiteboard to the jumped position, then resume both
// through the standard one-side-parked path.
type passiveDropFrameProc struct {
	e    *Engine
	done chan error

	offVideoPaused   func()
	offVideoPlaying  func()
	offWhiteboardHit func()
}

func (e *Engine) passiveDropFrame(pos time.Duration) error {
	p := &passiveDropFrameProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Combined() != status.CombinedPlaying {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked("drop frame realign", status.TriggerVideo, p.done,
		[]status.Combined{
			status.CombinedPlayingSeeking,
			status.CombinedToPlay,
			status.CombinedPause,
			status.CombinedPlaying,
		},
		[]status.Combined{status.CombinedPause, status.CombinedPlaying},
	)

	e.machine.SetStatus(status.SourceWhiteboard, status.AtomPlayingSeeking)
	e.machine.On(status.CombinedPlayingSeeking, func(prev, cur machine.Pair, commit func()) { commit() })

	e.machine.One(status.CombinedToPlay, func(prev, cur machine.Pair, commit func()) {
		p.offVideoPlaying = e.onceAtom(status.SourceVideo, source.EventPlaying, status.AtomPlaying)
		e.video.Play()
		commit()
	})
	e.machine.One(status.CombinedPlaying, p.terminal(status.CombinedPlaying))
	e.machine.One(status.CombinedPause, p.terminal(status.CombinedPause))

	// Realign strictly after the video confirms its pause, so the whiteboard
	// cannot land before the pair is parked.
	p.offVideoPaused = e.video.Events().Once(source.EventPaused, func(source.Payload) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.machine.SetStatus(status.SourceVideo, status.AtomPause)
		if pos >= e.whiteboard.Duration() {
			p.offWhiteboardHit = e.onceAtom(status.SourceWhiteboard, source.EventEnded, status.AtomEnded)
		} else {
			p.offWhiteboardHit = e.onceAtom(status.SourceWhiteboard, source.EventPlaying, status.AtomPlaying)
		}
		e.whiteboard.SeekTo(pos)
	})
	e.video.Pause()
	e.mu.Unlock()

	return e.wait(p.done, "drop frame realign")
}

func (p *passiveDropFrameProc) terminal(c status.Combined) machine.Handler {
	return func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.e.publish(c, "")
		p.done <- nil
	}
}

func (p *passiveDropFrameProc) teardownLocked() {
	for _, off := range []func(){p.offVideoPaused, p.offVideoPlaying, p.offWhiteboardHit} {
		if off != nil {
			off()
		}
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}
