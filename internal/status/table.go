// internal/status/table.go
package status

// combineTable maps (whiteboard atom, video atom) to a combined status.
// Rows are the whiteboard atom, columns the video atom, both in constant
// declaration order: PauseSeeking, Pause, PauseBuffering, PlayingBuffering,
// Playing, PlayingSeeking, Ended.
//
// Two cells sharing a name are still distinct states: (w=Pause, v=Playing)
// and (w=Playing, v=Pause) are both ToPlay, but the reconciliation logic
// decides which source to drive from the actual pair, never from the name.
//
// Disabled cells are combinations the engine never produces while healthy;
// reaching one outside a procedure's explicit whitelist is a crash.
var combineTable = [atomCount][atomCount]Combined{
	// whiteboard = PauseSeeking
	{
		CombinedPauseSeeking, // video = PauseSeeking
		CombinedPauseSeeking, // video = Pause
		CombinedPauseSeeking, // video = PauseBuffering
		CombinedDisabled,     // video = PlayingBuffering
		CombinedDisabled,     // video = Playing
		CombinedDisabled,     // video = PlayingSeeking
		CombinedPauseSeeking, // video = Ended
	},
	// whiteboard = Pause
	{
		CombinedPauseSeeking,     // video = PauseSeeking
		CombinedPause,            // video = Pause
		CombinedPauseBuffering,   // video = PauseBuffering
		CombinedPlayingBuffering, // video = PlayingBuffering
		CombinedToPlay,           // video = Playing
		CombinedPlayingSeeking,   // video = PlayingSeeking
		CombinedPause,            // video = Ended
	},
	// whiteboard = PauseBuffering
	{
		CombinedPauseSeeking,     // video = PauseSeeking
		CombinedPauseBuffering,   // video = Pause
		CombinedPauseBuffering,   // video = PauseBuffering
		CombinedPlayingBuffering, // video = PlayingBuffering
		CombinedToPause,          // video = Playing
		CombinedDisabled,         // video = PlayingSeeking
		CombinedPauseBuffering,   // video = Ended
	},
	// whiteboard = PlayingBuffering
	{
		CombinedDisabled,         // video = PauseSeeking
		CombinedPlayingBuffering, // video = Pause
		CombinedPlayingBuffering, // video = PauseBuffering
		CombinedPlayingBuffering, // video = PlayingBuffering
		CombinedPlayingBuffering, // video = Playing
		CombinedPlayingSeeking,   // video = PlayingSeeking
		CombinedToPause,          // video = Ended
	},
	// whiteboard = Playing
	{
		CombinedDisabled,         // video = PauseSeeking
		CombinedToPlay,           // video = Pause
		CombinedToPause,          // video = PauseBuffering
		CombinedPlayingBuffering, // video = PlayingBuffering
		CombinedPlaying,          // video = Playing
		CombinedPlayingSeeking,   // video = PlayingSeeking
		CombinedToPause,          // video = Ended
	},
	// whiteboard = PlayingSeeking
	{
		CombinedDisabled,       // video = PauseSeeking
		CombinedPlayingSeeking, // video = Pause
		CombinedDisabled,       // video = PauseBuffering
		CombinedPlayingSeeking, // video = PlayingBuffering
		CombinedPlayingSeeking, // video = Playing
		CombinedPlayingSeeking, // video = PlayingSeeking
		CombinedPlayingSeeking, // video = Ended
	},
	// whiteboard = Ended
	{
		CombinedPauseSeeking,   // video = PauseSeeking
		CombinedPause,          // video = Pause
		CombinedPauseBuffering, // video = PauseBuffering
		CombinedToPause,        // video = PlayingBuffering
		CombinedToPause,        // video = Playing
		CombinedPlayingSeeking, // video = PlayingSeeking
		CombinedEnded,          // video = Ended
	},
}

// Combine returns the combined status for a pair of atom statuses. It is a
// pure table lookup; out-of-range atoms resolve to Disabled.
func Combine(whiteboard, video Atom) Combined {
	if whiteboard < 0 || whiteboard >= atomCount || video < 0 || video >= atomCount {
		return CombinedDisabled
	}
	return combineTable[whiteboard][video]
}
