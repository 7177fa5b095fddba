// internal/machine/machine.go

// Package machine owns the two per-source status records and derives the
// combined status on every update. It is the only writer of the records; the
// engine serializes all calls, so the machine itself carries no lock.
package machine

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/lockstep/internal/status"
)

// Pair is a snapshot of both sources' atom statuses.
type Pair struct {
	Whiteboard status.Atom
	Video      status.Atom
}

// Combined returns the combined status for the pair.
func (p Pair) Combined() status.Combined {
	return status.Combine(p.Whiteboard, p.Video)
}

// Get returns the atom status for a source.
func (p Pair) Get(s status.Source) status.Atom {
	if s == status.SourceVideo {
		return p.Video
	}
	return p.Whiteboard
}

// Handler reacts to the arrival of a combined status. prev and cur are
// snapshots of both sources' previous/current fields taken at dispatch time.
// commit advances both sources' previous fields to the cur snapshot; it is
// deferred so the handler can still compare against the pre-transition pair
// after further synchronous writes happen inside its body.
type Handler func(prev, cur Pair, commit func())

type record struct {
	current  status.Atom
	previous status.Atom
}

// Machine is the combined-status state machine.
type Machine struct {
	log zerolog.Logger

	video      record
	whiteboard record

	handlers map[status.Combined]Handler

	locked     bool
	allow      map[status.Combined]bool
	unlockOn   map[status.Combined]bool
	disabledOK []Pair

	onCrash func(Pair)
	crashed bool
}

// New creates a machine with both sources at their initial atom statuses.
func New(log zerolog.Logger, whiteboard, video status.Atom) *Machine {
	return &Machine{
		log:        log,
		video:      record{current: video, previous: video},
		whiteboard: record{current: whiteboard, previous: whiteboard},
		handlers:   make(map[status.Combined]Handler),
	}
}

// OnCrash registers the single crash hook. It fires at most once, when
// Disabled is reached with a pair no in-flight procedure has whitelisted;
// afterwards the machine is inert.
func (m *Machine) OnCrash(fn func(Pair)) {
	m.onCrash = fn
}

// Crashed reports whether the crash hook has fired.
func (m *Machine) Crashed() bool {
	return m.crashed
}

// Status returns the current atom status of a source.
func (m *Machine) Status(s status.Source) status.Atom {
	if s == status.SourceVideo {
		return m.video.current
	}
	return m.whiteboard.current
}

// Pair returns a snapshot of both current atom statuses.
func (m *Machine) Pair() Pair {
	return Pair{Whiteboard: m.whiteboard.current, Video: m.video.current}
}

// PreviousPair returns a snapshot of both previous atom statuses.
func (m *Machine) PreviousPair() Pair {
	return Pair{Whiteboard: m.whiteboard.previous, Video: m.video.previous}
}

// Combined returns the combined status derived from the current pair.
func (m *Machine) Combined() status.Combined {
	return m.Pair().Combined()
}

// SetStatus updates a source's current atom status. Setting the value the
// source already has is a no-op: previous is untouched and no handler fires.
// Otherwise the combined status is recomputed and dispatched under the lock
// rules.
func (m *Machine) SetStatus(s status.Source, a status.Atom) {
	if m.crashed {
		return
	}

	rec := &m.whiteboard
	if s == status.SourceVideo {
		rec = &m.video
	}
	if rec.current == a {
		return
	}
	rec.current = a

	combined := m.Combined()
	m.log.Debug().
		Stringer("source", s).
		Stringer("atom", a).
		Stringer("combined", combined).
		Msg("status updated")

	m.dispatch(combined)
}

// On registers a persistent handler for a combined status, replacing any
// existing handler for that status.
func (m *Machine) On(c status.Combined, h Handler) {
	m.handlers[c] = h
}

// One registers a one-shot handler. The registration is cleared immediately
// before the handler body runs, so re-registering from inside it is race-free.
func (m *Machine) One(c status.Combined, h Handler) {
	m.handlers[c] = func(prev, cur Pair, commit func()) {
		delete(m.handlers, c)
		h(prev, cur, commit)
	}
}

// Off clears the handlers for the given combined statuses.
func (m *Machine) Off(statuses ...status.Combined) {
	for _, c := range statuses {
		delete(m.handlers, c)
	}
}

// OffAll clears every registered handler.
func (m *Machine) OffAll() {
	m.handlers = make(map[status.Combined]Handler)
}

// Lock restricts dispatch: while locked, only a combined status in allow may
// fire its handler, and reaching a status in unlockOn clears the lock first.
// disabledOK lists the exact pairs for which Disabled is a legitimate
// intermediate on this path. First lock wins: locking while locked is a no-op.
func (m *Machine) Lock(allow, unlockOn []status.Combined, disabledOK ...Pair) {
	if m.locked {
		return
	}
	m.locked = true
	m.allow = make(map[status.Combined]bool, len(allow))
	for _, c := range allow {
		m.allow[c] = true
	}
	m.unlockOn = make(map[status.Combined]bool, len(unlockOn))
	for _, c := range unlockOn {
		m.unlockOn[c] = true
	}
	m.disabledOK = disabledOK
}

// Unlock clears the lock unconditionally.
func (m *Machine) Unlock() {
	m.locked = false
	m.allow = nil
	m.unlockOn = nil
	m.disabledOK = nil
}

// Locked reports whether a transition lock is in place.
func (m *Machine) Locked() bool {
	return m.locked
}

func (m *Machine) dispatch(c status.Combined) {
	cur := m.Pair()

	if c == status.CombinedDisabled && !m.pairPermitted(cur) {
		m.crash(cur)
		return
	}

	if m.locked {
		if !m.allow[c] {
			return
		}
		if m.unlockOn[c] {
			m.Unlock()
		}
	}

	h := m.handlers[c]
	if h == nil {
		return
	}

	prev := m.PreviousPair()
	h(prev, cur, func() {
		m.whiteboard.previous = cur.Whiteboard
		m.video.previous = cur.Video
	})
}

func (m *Machine) pairPermitted(p Pair) bool {
	for _, ok := range m.disabledOK {
		if ok == p {
			return true
		}
	}
	return false
}

func (m *Machine) crash(p Pair) {
	if m.crashed {
		return
	}
	m.crashed = true
	m.log.Error().
		Stringer("whiteboard", p.Whiteboard).
		Stringer("video", p.Video).
		Msg("invalid status pair")
	if m.onCrash != nil {
		m.onCrash(p)
	}
}
