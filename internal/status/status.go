// internal/status/status.go
package status

// Atom represents the lifecycle state of a single playback source in
// isolation. Each source (the video element and the whiteboard replayer)
// carries its own Atom; nothing outside this package may invent new values.
type Atom int

const (
	AtomPauseSeeking Atom = iota
	AtomPause
	AtomPauseBuffering
	AtomPlayingBuffering
	AtomPlaying
	AtomPlayingSeeking
	AtomEnded
)

// atomCount is the table dimension; keep in sync with the Atom constants.
const atomCount = 7

// String returns the atom status name.
func (a Atom) String() string {
	switch a {
	case AtomPauseSeeking:
		return "PauseSeeking"
	case AtomPause:
		return "Pause"
	case AtomPauseBuffering:
		return "PauseBuffering"
	case AtomPlayingBuffering:
		return "PlayingBuffering"
	case AtomPlaying:
		return "Playing"
	case AtomPlayingSeeking:
		return "PlayingSeeking"
	case AtomEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Source identifies which playback source an atom status belongs to.
type Source int

const (
	SourceVideo Source = iota
	SourceWhiteboard
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceVideo:
		return "Video"
	case SourceWhiteboard:
		return "Whiteboard"
	default:
		return "Unknown"
	}
}

// Other returns the opposite source.
func (s Source) Other() Source {
	if s == SourceVideo {
		return SourceWhiteboard
	}
	return SourceVideo
}

// Trigger tags who caused the in-flight change. A passive event from source X
// is processed only while the tag is TriggerNone or the tag for X; this
// suppresses reprocessing of a source's echo of a command the engine itself
// issued.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerVideo
	TriggerWhiteboard
	TriggerPlugin
)

// String returns the trigger name.
func (t Trigger) String() string {
	switch t {
	case TriggerNone:
		return "None"
	case TriggerVideo:
		return "Video"
	case TriggerWhiteboard:
		return "Whiteboard"
	case TriggerPlugin:
		return "Plugin"
	default:
		return "Unknown"
	}
}

// TriggerFor returns the trigger tag for a source.
func TriggerFor(s Source) Trigger {
	if s == SourceVideo {
		return TriggerVideo
	}
	return TriggerWhiteboard
}

// Allows reports whether a passive event from source s may be processed
// while this trigger tag is in effect.
func (t Trigger) Allows(s Source) bool {
	return t == TriggerNone || t == TriggerFor(s)
}

// Combined is the externally-meaningful state derived from both atom statuses
// together. It is always recomputed from the two current atoms via Combine and
// never stored independently.
type Combined int

const (
	CombinedPauseSeeking Combined = iota
	CombinedPlayingSeeking
	CombinedPauseBuffering
	CombinedPlayingBuffering
	CombinedToPlay
	CombinedToPause
	CombinedPause
	CombinedPlaying
	CombinedEnded
	CombinedDisabled
)

// String returns the combined status name.
func (c Combined) String() string {
	switch c {
	case CombinedPauseSeeking:
		return "PauseSeeking"
	case CombinedPlayingSeeking:
		return "PlayingSeeking"
	case CombinedPauseBuffering:
		return "PauseBuffering"
	case CombinedPlayingBuffering:
		return "PlayingBuffering"
	case CombinedToPlay:
		return "ToPlay"
	case CombinedToPause:
		return "ToPause"
	case CombinedPause:
		return "Pause"
	case CombinedPlaying:
		return "Playing"
	case CombinedEnded:
		return "Ended"
	case CombinedDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Transient reports whether the status is an internal transient cell
// (ToPlay/ToPause) that must never be surfaced to public observers.
func (c Combined) Transient() bool {
	return c == CombinedToPlay || c == CombinedToPause
}
