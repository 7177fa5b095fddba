// internal/combine/procedures.go
package combine

import (
	"time"

	"github.com/llehouerou/lockstep/internal/machine"
	"github.com/llehouerou/lockstep/internal/source"
	"github.com/llehouerou/lockstep/internal/status"
)

func (e *Engine) adapter(s status.Source) source.Adapter {
	if s == status.SourceVideo {
		return e.video
	}
	return e.whiteboard
}

// beginLocked installs the transition lock and marks the procedure active.
// Caller holds e.mu.
func (e *Engine) beginLocked(name string, trigger status.Trigger, done chan error, allow, unlockOn []status.Combined) {
	e.trigger = trigger
	e.activeProc = name
	e.activeDone = done
	e.machine.Lock(allow, unlockOn)
}

// endLocked clears the lock, the origin tag and the active-procedure
// bookkeeping. Caller holds e.mu.
func (e *Engine) endLocked() {
	e.trigger = status.TriggerNone
	e.activeProc = ""
	e.activeDone = nil
	e.machine.Unlock()
}

// onceAtom attaches a one-shot adapter listener that records the given atom
// status for the source when the event arrives.
func (e *Engine) onceAtom(s status.Source, ev source.Event, a status.Atom) func() {
	return e.adapter(s).Events().Once(ev, func(source.Payload) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.machine.SetStatus(s, a)
	})
}

// onAtom is the persistent variant of onceAtom.
func (e *Engine) onAtom(s status.Source, ev source.Event, a status.Atom) func() {
	return e.adapter(s).Events().On(ev, func(source.Payload) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.machine.SetStatus(s, a)
	})
}

// publishCurrentLocked surfaces the current combined status if it is
// publicly visible. Caller holds e.mu.
func (e *Engine) publishCurrentLocked() {
	e.publish(e.machine.Combined(), "")
}

// playHooks holds one source's listener handles for the play procedure.
type playHooks struct {
	offPlaying   func()
	offPaused    func()
	offReady     func()
	offPlayable  func()
	offBuffering func()
	offEnded     func()
}

func (h *playHooks) detach() {
	for _, off := range []func(){h.offPlaying, h.offPaused, h.offReady, h.offPlayable, h.offBuffering, h.offEnded} {
		if off != nil {
			off()
		}
	}
}

// playProc drives both sources from a paused or buffering rest state to
// Playing. The same reactive controller covers all three buffering sub-cases:
// the cells the pair wanders through differ, the per-cell reactions do not.
type playProc struct {
	e    *Engine
	done chan error

	video      playHooks
	whiteboard playHooks

	// commanded tracks whether this procedure has issued play to a source,
	// which decides how that source's buffering notifications are classified.
	commanded [2]bool
}

func (e *Engine) playFromPause() error {
	return e.runPlay(status.CombinedPause, "play from pause",
		[]status.Combined{
			status.CombinedToPlay,
			status.CombinedToPause,
			status.CombinedPause,
			status.CombinedPlaying,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPlaying, status.CombinedEnded},
	)
}

func (e *Engine) playFromPauseBuffering() error {
	return e.runPlay(status.CombinedPauseBuffering, "play from buffering",
		[]status.Combined{
			status.CombinedPauseBuffering,
			status.CombinedPlayingBuffering,
			status.CombinedToPause,
			status.CombinedToPlay,
			status.CombinedPause,
			status.CombinedPlaying,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPlaying, status.CombinedEnded},
	)
}

func (e *Engine) playFromEnded() error {
	if err := e.rewind(); err != nil {
		return err
	}
	return e.playFromPause()
}

func (e *Engine) runPlay(from status.Combined, name string, allow, unlockOn []status.Combined) error {
	p := &playProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	// A passive procedure queued ahead of us may have moved the status since
	// the public call branched.
	if e.machine.Combined() != from {
		e.mu.Unlock()
		return nil
	}
	// The Pause cell also covers a pair with one side exhausted; only a seek
	// or a rewind can restart that pair, so play is a no-op there.
	pair := e.machine.Pair()
	if pair.Whiteboard == status.AtomEnded || pair.Video == status.AtomEnded {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked(name, status.TriggerPlugin, p.done, allow, unlockOn)
	p.setupLocked()
	e.mu.Unlock()

	return e.wait(p.done, name)
}

// setupLocked wires listeners and handlers, then issues the starting
// commands implied by the actual pair. Caller holds e.mu.
func (p *playProc) setupLocked() {
	e := p.e

	p.wireSourceLocked(status.SourceVideo, &p.video)
	p.wireSourceLocked(status.SourceWhiteboard, &p.whiteboard)

	e.machine.On(status.CombinedPause, p.handlePause)
	e.machine.On(status.CombinedToPlay, p.handleToPlay)
	e.machine.On(status.CombinedToPause, p.handleToPause)
	e.machine.On(status.CombinedPlayingBuffering, p.handlePlayingBuffering)
	e.machine.On(status.CombinedPauseBuffering, func(prev, cur machine.Pair, commit func()) { commit() })
	e.machine.One(status.CombinedPlaying, p.terminal(status.CombinedPlaying))
	e.machine.One(status.CombinedEnded, p.terminal(status.CombinedEnded))

	// Starting commands depend on the pair, not the combined name: the ready
	// side of a half-buffering pair starts first only when the whiteboard is
	// the one still loading.
	pair := e.machine.Pair()
	switch {
	case pair.Whiteboard == status.AtomPause && pair.Video == status.AtomPause:
		p.playSourceLocked(status.SourceVideo)
		p.playSourceLocked(status.SourceWhiteboard)
	case pair.Whiteboard == status.AtomPause && pair.Video == status.AtomPauseBuffering:
		// Video still buffering: hold both until it reports ready, then the
		// Pause cell starts the pair together.
	case pair.Whiteboard == status.AtomPauseBuffering && pair.Video == status.AtomPause:
		// Whiteboard still loading: let video run ahead; the ToPause cell
		// parks it again if it outruns the whiteboard.
		p.playSourceLocked(status.SourceVideo)
	case pair.Whiteboard == status.AtomPauseBuffering && pair.Video == status.AtomPauseBuffering:
		p.playSourceLocked(status.SourceVideo)
		p.playSourceLocked(status.SourceWhiteboard)
	}
}

func (p *playProc) wireSourceLocked(s status.Source, hooks *playHooks) {
	e := p.e
	hooks.offPlaying = e.onAtom(s, source.EventPlaying, status.AtomPlaying)
	hooks.offPaused = e.onAtom(s, source.EventPaused, status.AtomPause)
	hooks.offReady = e.onAtom(s, source.EventCanPlayThrough, status.AtomPause)
	// The origin tag keeps the passive wrapper from seeing the stream end
	// while this procedure is in flight, so it is observed here.
	hooks.offEnded = e.onAtom(s, source.EventEnded, status.AtomEnded)
	if s == status.SourceWhiteboard {
		hooks.offPlayable = e.whiteboard.Events().On(source.EventPlayableChanged, func(pl source.Payload) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if pl.Playable {
				e.machine.SetStatus(s, status.AtomPause)
			} else {
				e.machine.SetStatus(s, status.AtomPauseBuffering)
			}
		})
	}
	hooks.offBuffering = e.adapter(s).Events().On(source.EventBuffering, func(source.Payload) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if p.commanded[s] {
			e.machine.SetStatus(s, status.AtomPlayingBuffering)
		} else {
			e.machine.SetStatus(s, status.AtomPauseBuffering)
		}
	})
}

func (p *playProc) playSourceLocked(s status.Source) {
	p.commanded[s] = true
	p.e.adapter(s).Play()
}

// handlePause: both sides parked and ready, release them together. A pair
// with one side exhausted shares this cell; it stays parked instead.
func (p *playProc) handlePause(prev, cur machine.Pair, commit func()) {
	if cur.Whiteboard == status.AtomEnded || cur.Video == status.AtomEnded {
		// A commanded source may not have confirmed playing yet; park it so
		// it cannot start advancing after the procedure completes.
		for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
			if cur.Get(s) == status.AtomPause && p.commanded[s] {
				p.e.adapter(s).Pause()
			}
		}
		commit()
		p.teardownLocked()
		p.e.publish(status.CombinedPause, "")
		p.done <- nil
		return
	}
	for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
		if cur.Get(s) == status.AtomPause {
			p.playSourceLocked(s)
		}
	}
	commit()
}

// handleToPlay: one side is already advancing, drive the parked one.
// Re-issuing play to a source that was already commanded is harmless.
func (p *playProc) handleToPlay(prev, cur machine.Pair, commit func()) {
	for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
		if cur.Get(s) == status.AtomPause {
			p.playSourceLocked(s)
		}
	}
	commit()
}

// handleToPause: one side outran the other, which is still buffering or has
// ended; park the runner until the pair can move together.
func (p *playProc) handleToPause(prev, cur machine.Pair, commit func()) {
	for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
		if cur.Get(s) == status.AtomPlaying {
			p.e.adapter(s).Pause()
		}
	}
	commit()
}

// handlePlayingBuffering: within the play procedure this cell needs driving
// only when exactly one side is advancing while the other still buffers.
func (p *playProc) handlePlayingBuffering(prev, cur machine.Pair, commit func()) {
	for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
		other := cur.Get(s.Other())
		if cur.Get(s) == status.AtomPlaying &&
			(other == status.AtomPauseBuffering || other == status.AtomPlayingBuffering) {
			p.e.adapter(s).Pause()
		}
	}
	commit()
}

func (p *playProc) terminal(c status.Combined) machine.Handler {
	return func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.e.publish(c, "")
		p.done <- nil
	}
}

func (p *playProc) teardownLocked() {
	p.video.detach()
	p.whiteboard.detach()
	p.e.machine.OffAll()
	p.e.endLocked()
}

// rewind seeks both sources back to zero and waits until both confirm,
// landing the pair on Pause so a regular play-from-pause can follow.
type rewindProc struct {
	e    *Engine
	done chan error

	offVideoReady      func()
	offWhiteboardReady func()
}

func (e *Engine) rewind() error {
	p := &rewindProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Combined() != status.CombinedEnded {
		e.mu.Unlock()
		return nil
	}
	e.beginLocked("rewind", status.TriggerPlugin, p.done,
		[]status.Combined{status.CombinedPauseSeeking, status.CombinedPause},
		[]status.Combined{status.CombinedPause},
	)

	e.machine.SetStatus(status.SourceVideo, status.AtomPauseSeeking)
	e.machine.SetStatus(status.SourceWhiteboard, status.AtomPauseSeeking)

	p.offVideoReady = e.onceAtom(status.SourceVideo, source.EventCanPlayThrough, status.AtomPause)
	p.offWhiteboardReady = e.onceAtom(status.SourceWhiteboard, source.EventCanPlayThrough, status.AtomPause)

	e.machine.One(status.CombinedPause, func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.done <- nil
	})

	e.video.SeekTo(0)
	e.whiteboard.SeekTo(0)
	e.mu.Unlock()

	return e.wait(p.done, "rewind")
}

func (p *rewindProc) teardownLocked() {
	if p.offVideoReady != nil {
		p.offVideoReady()
	}
	if p.offWhiteboardReady != nil {
		p.offWhiteboardReady()
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}

// pauseProc drives both sources from Playing to Pause.
type pauseProc struct {
	e    *Engine
	done chan error

	offVideoPaused      func()
	offWhiteboardPaused func()
	offVideoEnded       func()
	offWhiteboardEnded  func()
}

func (e *Engine) pauseFromPlaying() error {
	p := &pauseProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Combined() != status.CombinedPlaying {
		e.mu.Unlock()
		return nil
	}
	// The first source to confirm lands the pair on a cell that happens to
	// share the ToPlay name with the play path; here it is just the
	// half-confirmed intermediate.
	e.beginLocked("pause", status.TriggerPlugin, p.done,
		[]status.Combined{status.CombinedToPlay, status.CombinedPause, status.CombinedEnded},
		[]status.Combined{status.CombinedPause, status.CombinedEnded},
	)

	p.offVideoPaused = e.onceAtom(status.SourceVideo, source.EventPaused, status.AtomPause)
	p.offWhiteboardPaused = e.onceAtom(status.SourceWhiteboard, source.EventPaused, status.AtomPause)
	// A source racing its stream end reports ended instead of paused; both
	// are acceptable landings for this procedure.
	p.offVideoEnded = e.onceAtom(status.SourceVideo, source.EventEnded, status.AtomEnded)
	p.offWhiteboardEnded = e.onceAtom(status.SourceWhiteboard, source.EventEnded, status.AtomEnded)

	e.machine.On(status.CombinedToPlay, func(prev, cur machine.Pair, commit func()) { commit() })
	e.machine.One(status.CombinedPause, func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		e.publish(status.CombinedPause, "")
		p.done <- nil
	})
	e.machine.One(status.CombinedEnded, func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		e.publish(status.CombinedEnded, "")
		p.done <- nil
	})

	e.video.Pause()
	e.whiteboard.Pause()
	e.mu.Unlock()

	return e.wait(p.done, "pause")
}

func (p *pauseProc) teardownLocked() {
	for _, off := range []func(){p.offVideoPaused, p.offWhiteboardPaused, p.offVideoEnded, p.offWhiteboardEnded} {
		if off != nil {
			off()
		}
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}

// seekProc moves both sources to a target position. willEnd records, per
// source, whether the target lies beyond that source's own duration, so the
// resume reaction is suppressed for a source that is going to land on Ended.
type seekProc struct {
	e    *Engine
	done chan error

	willEnd [2]bool

	offVideoDone      func()
	offWhiteboardDone func()
	offRunnerPaused   func()
	offRunnerEnded    func()
}

func (e *Engine) seekWhilePlaying(pos time.Duration) error {
	p := &seekProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	if e.machine.Combined() != status.CombinedPlaying {
		e.mu.Unlock()
		return nil
	}
	p.willEnd[status.SourceVideo] = pos >= e.video.Duration()
	p.willEnd[status.SourceWhiteboard] = pos >= e.whiteboard.Duration()

	e.beginLocked("seek while playing", status.TriggerPlugin, p.done,
		[]status.Combined{
			status.CombinedPlayingSeeking,
			status.CombinedToPause,
			status.CombinedPause,
			status.CombinedPlaying,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPause, status.CombinedPlaying, status.CombinedEnded},
	)

	e.machine.SetStatus(status.SourceWhiteboard, status.AtomPlayingSeeking)
	e.machine.SetStatus(status.SourceVideo, status.AtomPlayingSeeking)

	p.offVideoDone = p.wireLandingLocked(status.SourceVideo, status.AtomPlaying)
	p.offWhiteboardDone = p.wireLandingLocked(status.SourceWhiteboard, status.AtomPlaying)

	e.machine.On(status.CombinedPlayingSeeking, func(prev, cur machine.Pair, commit func()) { commit() })
	e.machine.One(status.CombinedToPause, p.handleToPause)
	e.machine.One(status.CombinedPlaying, p.terminal(status.CombinedPlaying))
	e.machine.One(status.CombinedPause, p.terminal(status.CombinedPause))
	e.machine.One(status.CombinedEnded, p.terminal(status.CombinedEnded))

	e.video.SeekTo(pos)
	e.whiteboard.SeekTo(pos)
	e.mu.Unlock()

	return e.wait(p.done, "seek while playing")
}

func (e *Engine) seekWhilePaused(pos time.Duration) error {
	p := &seekProc{e: e, done: make(chan error, 1)}

	e.mu.Lock()
	if e.crashed {
		e.mu.Unlock()
		return ErrDisabled
	}
	switch e.machine.Combined() {
	case status.CombinedPause, status.CombinedPauseBuffering, status.CombinedEnded:
	default:
		e.mu.Unlock()
		return nil
	}
	p.willEnd[status.SourceVideo] = pos >= e.video.Duration()
	p.willEnd[status.SourceWhiteboard] = pos >= e.whiteboard.Duration()

	e.beginLocked("seek while paused", status.TriggerPlugin, p.done,
		[]status.Combined{
			status.CombinedPauseSeeking,
			status.CombinedPause,
			status.CombinedEnded,
		},
		[]status.Combined{status.CombinedPause, status.CombinedEnded},
	)

	e.machine.SetStatus(status.SourceWhiteboard, status.AtomPauseSeeking)
	e.machine.SetStatus(status.SourceVideo, status.AtomPauseSeeking)

	p.offVideoDone = p.wireLandingLocked(status.SourceVideo, status.AtomPause)
	p.offWhiteboardDone = p.wireLandingLocked(status.SourceWhiteboard, status.AtomPause)

	e.machine.On(status.CombinedPauseSeeking, func(prev, cur machine.Pair, commit func()) { commit() })
	e.machine.One(status.CombinedPause, p.terminal(status.CombinedPause))
	e.machine.One(status.CombinedEnded, p.terminal(status.CombinedEnded))

	e.video.SeekTo(pos)
	e.whiteboard.SeekTo(pos)
	e.mu.Unlock()

	return e.wait(p.done, "seek while paused")
}

// wireLandingLocked attaches the one-shot listeners for a source's seek
// completion. A source headed past its own bound reports Ended; the resume
// reaction is suppressed for it. Other sources land on resumeAtom via the
// event that matches it, but can still report Ended instead when the target
// sits close enough to their bound that playback runs out before the
// landing event fires.
func (p *seekProc) wireLandingLocked(s status.Source, resumeAtom status.Atom) func() {
	if p.willEnd[s] {
		return p.e.onceAtom(s, source.EventEnded, status.AtomEnded)
	}
	ev := source.EventPlaying
	if resumeAtom == status.AtomPause {
		ev = source.EventCanPlayThrough
	}
	offLanding := p.e.onceAtom(s, ev, resumeAtom)
	offEnded := p.e.onceAtom(s, source.EventEnded, status.AtomEnded)
	return func() {
		offLanding()
		offEnded()
	}
}

// handleToPause: one source landed on Ended while the other resumed playing;
// park the survivor.
func (p *seekProc) handleToPause(prev, cur machine.Pair, commit func()) {
	for _, s := range []status.Source{status.SourceVideo, status.SourceWhiteboard} {
		if cur.Get(s) == status.AtomPlaying {
			p.offRunnerPaused = p.e.onceAtom(s, source.EventPaused, status.AtomPause)
			p.offRunnerEnded = p.e.onceAtom(s, source.EventEnded, status.AtomEnded)
			p.e.adapter(s).Pause()
		}
	}
	commit()
}

func (p *seekProc) terminal(c status.Combined) machine.Handler {
	return func(prev, cur machine.Pair, commit func()) {
		commit()
		p.teardownLocked()
		p.e.publish(c, "")
		p.done <- nil
	}
}

func (p *seekProc) teardownLocked() {
	for _, off := range []func(){p.offVideoDone, p.offWhiteboardDone, p.offRunnerPaused, p.offRunnerEnded} {
		if off != nil {
			off()
		}
	}
	p.e.machine.OffAll()
	p.e.endLocked()
}
