// internal/combine/engine.go

// Package combine implements the reconciliation engine that keeps two
// independently-driven playback sources (a media element and a whiteboard
// replayer) in lockstep: same play/pause phase, same timeline position, with
// buffering or seeking on either side parking the other until both can
// proceed together.
package combine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/lockstep/internal/machine"
	"github.com/llehouerou/lockstep/internal/session"
	"github.com/llehouerou/lockstep/internal/source"
	"github.com/llehouerou/lockstep/internal/status"
	"github.com/llehouerou/lockstep/internal/taskqueue"
)

// DefaultWatchdog bounds how long a procedure waits for source notifications
// before the engine gives up and crashes. A source that never reports back
// would otherwise stall the engine forever; no retry can help because every
// transition is driven by an authoritative external notification.
const DefaultWatchdog = 30 * time.Second

// ErrDisabled is returned by public calls after the engine has crashed.
var ErrDisabled = errors.New("combine: engine disabled")

// StatusCallback observes public status changes. It is invoked from a
// dedicated notifier goroutine, never from inside the engine's own turn, and
// may block without stalling reconciliation.
type StatusCallback func(s status.Combined, message string)

// Options configures an Engine.
type Options struct {
	Video      source.Adapter
	Whiteboard source.Adapter
	Logger     zerolog.Logger
	// Watchdog bounds each procedure's wait for source notifications.
	// Zero selects DefaultWatchdog; a negative value disables the bound.
	Watchdog time.Duration
	// Session, when set, receives a snapshot on every public status change.
	Session *session.Store
}

type notification struct {
	status  status.Combined
	message string
}

// Engine is the reconciliation orchestrator. All mutation of the state
// machine happens under mu; procedures run one at a time on the task queue
// and wait for source events with mu released.
type Engine struct {
	log        zerolog.Logger
	video      source.Adapter
	whiteboard source.Adapter

	queue    *taskqueue.Queue
	watchdog time.Duration
	store    *session.Store

	mu         sync.Mutex
	machine    *machine.Machine
	trigger    status.Trigger
	activeProc string
	activeDone chan error
	crashed    bool
	closed     bool

	// Passive listener handles, named so teardown is total and auditable.
	offVideoBuffering      func()
	offVideoPlaying        func()
	offVideoEnded          func()
	offVideoJumped         func()
	offVideoReady          func()
	offWhiteboardBuffering func()
	offWhiteboardPlaying   func()
	offWhiteboardEnded     func()
	offWhiteboardReady     func()

	notifyCh   chan notification
	notifyDone chan struct{}

	subMu      sync.Mutex
	subs       map[int]StatusCallback
	subNext    int
	lastPublic status.Combined
	hasPublic  bool
}

// New builds an engine around the two source adapters. Both adapters are
// required; missing one is a construction error, not a runtime state.
func New(opts Options) (*Engine, error) {
	if opts.Video == nil {
		return nil, fmt.Errorf("combine: video adapter is required")
	}
	if opts.Whiteboard == nil {
		return nil, fmt.Errorf("combine: whiteboard adapter is required")
	}

	watchdog := opts.Watchdog
	switch {
	case watchdog == 0:
		watchdog = DefaultWatchdog
	case watchdog < 0:
		watchdog = 0
	}

	e := &Engine{
		log:        opts.Logger,
		video:      opts.Video,
		whiteboard: opts.Whiteboard,
		queue:      taskqueue.New(),
		watchdog:   watchdog,
		store:      opts.Session,
		notifyCh:   make(chan notification, 64),
		notifyDone: make(chan struct{}),
		subs:       make(map[int]StatusCallback),
	}

	e.machine = machine.New(e.log, initialAtom(opts.Whiteboard), initialAtom(opts.Video))
	e.machine.OnCrash(e.crashLocked)

	e.wirePassive()
	go e.notifier()

	return e, nil
}

func initialAtom(a source.Adapter) status.Atom {
	if a.Ready() {
		return status.AtomPause
	}
	return status.AtomPauseBuffering
}

// CombinedStatus returns the current combined status. A crashed or closed
// engine reports Disabled regardless of the last healthy pair.
func (e *Engine) CombinedStatus() status.Combined {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.crashed {
		return status.CombinedDisabled
	}
	return e.machine.Combined()
}

// Position returns the media element's timeline position; the media element
// is the timeline master.
func (e *Engine) Position() time.Duration {
	return e.video.Position()
}

// Duration returns the synchronized timeline length: the shorter of the two
// sources, since past it one of them has nothing left to play.
func (e *Engine) Duration() time.Duration {
	return min(e.video.Duration(), e.whiteboard.Duration())
}

// OnStatusChange registers a public status observer and returns its
// unsubscribe handle. The callback fires whenever the publicly-visible status
// actually changes; the internal ToPlay/ToPause transients are never
// surfaced.
func (e *Engine) OnStatusChange(cb StatusCallback) (off func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.subNext
	e.subNext++
	e.subs[id] = cb
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

// Play drives both sources toward Playing. It is a no-op from any status the
// command does not apply to (already playing, mid-seek).
func (e *Engine) Play() error {
	if e.disabled() {
		return ErrDisabled
	}
	return e.queue.Do(func() error {
		switch e.CombinedStatus() {
		case status.CombinedPause:
			return e.playFromPause()
		case status.CombinedPauseBuffering:
			return e.playFromPauseBuffering()
		case status.CombinedEnded:
			return e.playFromEnded()
		default:
			return nil
		}
	})
}

// Pause drives both sources toward Pause. Only meaningful from Playing.
func (e *Engine) Pause() error {
	if e.disabled() {
		return ErrDisabled
	}
	return e.queue.Do(func() error {
		if e.CombinedStatus() != status.CombinedPlaying {
			return nil
		}
		return e.pauseFromPlaying()
	})
}

// Seek moves both sources to pos. A source whose own duration is shorter
// than pos lands on Ended instead; the combined status converges to Ended
// only once both sources have exhausted their streams.
func (e *Engine) Seek(pos time.Duration) error {
	if e.disabled() {
		return ErrDisabled
	}
	return e.queue.Do(func() error {
		switch e.CombinedStatus() {
		case status.CombinedPlaying:
			return e.seekWhilePlaying(pos)
		case status.CombinedPause, status.CombinedPauseBuffering, status.CombinedEnded:
			return e.seekWhilePaused(pos)
		default:
			return nil
		}
	})
}

// Close detaches the engine from both sources and stops the notifier. Public
// calls return ErrDisabled afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.crashed = true
	e.teardownPassiveLocked()
	e.mu.Unlock()

	e.queue.Destroy()
	close(e.notifyDone)
	return nil
}

func (e *Engine) disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.crashed
}

// crashLocked is the single unrecoverable failure path: invalid status pair
// or watchdog expiry. Caller holds e.mu (the machine crash hook runs inside
// SetStatus). It drains the queue, detaches every listener on both sources
// and surfaces Disabled with a diagnostic; afterwards the engine is inert.
func (e *Engine) crashLocked(pair machine.Pair) {
	if e.crashed {
		return
	}
	e.crashed = true

	msg := fmt.Sprintf("invalid status pair (whiteboard=%s, video=%s)", pair.Whiteboard, pair.Video)
	if e.activeProc != "" {
		msg = fmt.Sprintf("%s detected by %s", msg, e.activeProc)
	}
	e.log.Error().Str("diagnostic", msg).Msg("engine crashed")

	e.video.Events().Reset()
	e.whiteboard.Events().Reset()
	e.machine.OffAll()
	e.machine.Unlock()

	if e.activeDone != nil {
		select {
		case e.activeDone <- ErrDisabled:
		default:
		}
		e.activeDone = nil
	}

	// The queue runner is executing the current unit; Destroy only rejects
	// pending and future units, which is exactly the drain we want. Run it
	// off-turn so a crash from inside a queued unit cannot self-deadlock.
	go e.queue.Destroy()

	e.publish(status.CombinedDisabled, msg)
}

// crashTimeout is the watchdog variant of the crash path, entered without
// e.mu held.
func (e *Engine) crashTimeout(proc string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.crashed {
		return
	}
	e.crashed = true

	msg := fmt.Sprintf("procedure %s timed out waiting for source notifications", proc)
	e.log.Error().Str("diagnostic", msg).Msg("engine crashed")

	e.video.Events().Reset()
	e.whiteboard.Events().Reset()
	e.machine.OffAll()
	e.machine.Unlock()
	e.activeDone = nil

	go e.queue.Destroy()

	e.publish(status.CombinedDisabled, msg)
}

// publish queues a public status notification. Duplicates of the last
// published value and internal transients are dropped.
func (e *Engine) publish(c status.Combined, message string) {
	if c.Transient() {
		return
	}
	e.subMu.Lock()
	if e.hasPublic && e.lastPublic == c {
		e.subMu.Unlock()
		return
	}
	e.lastPublic = c
	e.hasPublic = true
	e.subMu.Unlock()

	select {
	case e.notifyCh <- notification{status: c, message: message}:
	default:
		e.log.Warn().Stringer("status", c).Msg("notification buffer full, dropping")
	}
}

// notifier delivers public status callbacks in order, outside the engine's
// own turn, and persists a session snapshot when a store is configured.
func (e *Engine) notifier() {
	for {
		select {
		case <-e.notifyDone:
			return
		case n := <-e.notifyCh:
			if e.store != nil {
				e.store.SaveDebounced(session.Snapshot{
					Status:   n.status.String(),
					Position: e.video.Position(),
				})
			}
			e.subMu.Lock()
			cbs := make([]StatusCallback, 0, len(e.subs))
			for _, cb := range e.subs {
				cbs = append(cbs, cb)
			}
			e.subMu.Unlock()
			for _, cb := range cbs {
				cb(n.status, n.message)
			}
		}
	}
}

// wait blocks until the procedure's done channel fires or the watchdog
// expires. Must be called with e.mu released.
func (e *Engine) wait(done <-chan error, proc string) error {
	if e.watchdog <= 0 {
		return <-done
	}
	timer := time.NewTimer(e.watchdog)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		e.crashTimeout(proc)
		return ErrDisabled
	}
}
