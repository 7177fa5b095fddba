// internal/status/status_test.go
package status

import "testing"

func TestAtom_String(t *testing.T) {
	tests := []struct {
		atom Atom
		want string
	}{
		{AtomPauseSeeking, "PauseSeeking"},
		{AtomPause, "Pause"},
		{AtomPauseBuffering, "PauseBuffering"},
		{AtomPlayingBuffering, "PlayingBuffering"},
		{AtomPlaying, "Playing"},
		{AtomPlayingSeeking, "PlayingSeeking"},
		{AtomEnded, "Ended"},
		{Atom(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.atom.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.atom, got, tt.want)
		}
	}
}

func TestCombined_String(t *testing.T) {
	tests := []struct {
		combined Combined
		want     string
	}{
		{CombinedPauseSeeking, "PauseSeeking"},
		{CombinedPlayingSeeking, "PlayingSeeking"},
		{CombinedPauseBuffering, "PauseBuffering"},
		{CombinedPlayingBuffering, "PlayingBuffering"},
		{CombinedToPlay, "ToPlay"},
		{CombinedToPause, "ToPause"},
		{CombinedPause, "Pause"},
		{CombinedPlaying, "Playing"},
		{CombinedEnded, "Ended"},
		{CombinedDisabled, "Disabled"},
		{Combined(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.combined.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.combined, got, tt.want)
		}
	}
}

func TestCombined_Transient(t *testing.T) {
	for c := CombinedPauseSeeking; c <= CombinedDisabled; c++ {
		want := c == CombinedToPlay || c == CombinedToPause
		if got := c.Transient(); got != want {
			t.Errorf("%v.Transient() = %v, want %v", c, got, want)
		}
	}
}

func TestSource_Other(t *testing.T) {
	if SourceVideo.Other() != SourceWhiteboard {
		t.Error("Video.Other() should be Whiteboard")
	}
	if SourceWhiteboard.Other() != SourceVideo {
		t.Error("Whiteboard.Other() should be Video")
	}
}

func TestTrigger_Allows(t *testing.T) {
	tests := []struct {
		trigger Trigger
		source  Source
		want    bool
	}{
		{TriggerNone, SourceVideo, true},
		{TriggerNone, SourceWhiteboard, true},
		{TriggerVideo, SourceVideo, true},
		{TriggerVideo, SourceWhiteboard, false},
		{TriggerWhiteboard, SourceWhiteboard, true},
		{TriggerWhiteboard, SourceVideo, false},
		{TriggerPlugin, SourceVideo, false},
		{TriggerPlugin, SourceWhiteboard, false},
	}
	for _, tt := range tests {
		if got := tt.trigger.Allows(tt.source); got != tt.want {
			t.Errorf("%v.Allows(%v) = %v, want %v", tt.trigger, tt.source, got, tt.want)
		}
	}
}

// TestCombine_Total checks every one of the 49 pairs resolves to exactly one
// defined combined status.
func TestCombine_Total(t *testing.T) {
	for w := AtomPauseSeeking; w <= AtomEnded; w++ {
		for v := AtomPauseSeeking; v <= AtomEnded; v++ {
			c := Combine(w, v)
			if c < CombinedPauseSeeking || c > CombinedDisabled {
				t.Errorf("Combine(%v, %v) = %d, out of range", w, v, c)
			}
		}
	}
}

func TestCombine_Cells(t *testing.T) {
	tests := []struct {
		name       string
		whiteboard Atom
		video      Atom
		want       Combined
	}{
		{"both paused", AtomPause, AtomPause, CombinedPause},
		{"both playing", AtomPlaying, AtomPlaying, CombinedPlaying},
		{"both ended", AtomEnded, AtomEnded, CombinedEnded},
		{"initial both buffering", AtomPauseBuffering, AtomPauseBuffering, CombinedPauseBuffering},
		{"video ahead of paused whiteboard", AtomPause, AtomPlaying, CombinedToPlay},
		{"whiteboard ahead of paused video", AtomPlaying, AtomPause, CombinedToPlay},
		{"video ahead of buffering whiteboard", AtomPauseBuffering, AtomPlaying, CombinedToPause},
		{"whiteboard ahead of buffering video", AtomPlaying, AtomPauseBuffering, CombinedToPause},
		{"video stalled while playing", AtomPlaying, AtomPlayingBuffering, CombinedPlayingBuffering},
		{"whiteboard stalled while playing", AtomPlayingBuffering, AtomPlaying, CombinedPlayingBuffering},
		{"video ended while whiteboard plays", AtomPlaying, AtomEnded, CombinedToPause},
		{"whiteboard ended while video plays", AtomEnded, AtomPlaying, CombinedToPause},
		{"video ended, whiteboard paused", AtomPause, AtomEnded, CombinedPause},
		{"whiteboard ended, video paused", AtomEnded, AtomPause, CombinedPause},
		{"seek while paused, one side done", AtomPause, AtomPauseSeeking, CombinedPauseSeeking},
		{"seek while playing, one side done", AtomPlaying, AtomPlayingSeeking, CombinedPlayingSeeking},
		{"seek past one duration while playing", AtomEnded, AtomPlayingSeeking, CombinedPlayingSeeking},
		{"invalid pause-seek against playing", AtomPauseSeeking, AtomPlaying, CombinedDisabled},
		{"invalid playing against pause-seek", AtomPlaying, AtomPauseSeeking, CombinedDisabled},
		{"out of range whiteboard", Atom(99), AtomPause, CombinedDisabled},
		{"out of range video", AtomPause, Atom(-1), CombinedDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.whiteboard, tt.video); got != tt.want {
				t.Errorf("Combine(%v, %v) = %v, want %v", tt.whiteboard, tt.video, got, tt.want)
			}
		})
	}
}

// TestCombine_DisabledCells pins the exact set of invalid pairs so an
// accidental table edit cannot silently widen or narrow the crash surface.
func TestCombine_DisabledCells(t *testing.T) {
	invalid := map[[2]Atom]bool{
		{AtomPauseSeeking, AtomPlayingBuffering}: true,
		{AtomPauseSeeking, AtomPlaying}:          true,
		{AtomPauseSeeking, AtomPlayingSeeking}:   true,
		{AtomPauseBuffering, AtomPlayingSeeking}: true,
		{AtomPlayingBuffering, AtomPauseSeeking}: true,
		{AtomPlaying, AtomPauseSeeking}:          true,
		{AtomPlayingSeeking, AtomPauseSeeking}:   true,
		{AtomPlayingSeeking, AtomPauseBuffering}: true,
	}
	for w := AtomPauseSeeking; w <= AtomEnded; w++ {
		for v := AtomPauseSeeking; v <= AtomEnded; v++ {
			want := invalid[[2]Atom{w, v}]
			got := Combine(w, v) == CombinedDisabled
			if got != want {
				t.Errorf("Combine(%v, %v) disabled = %v, want %v", w, v, got, want)
			}
		}
	}
}
