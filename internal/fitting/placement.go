package fitting

import (
	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
)

// Place returns the start time for a clip of durationMS. A clip that fits
// the cue's own span keeps the cue start. A longer clip borrows leading slack,
// up to its overflow, only when the window has at least as much room before
// the cue as after it.
func Place(cue subtitle.Cue, window timing.Window, durationMS int) int {
	if durationMS <= cue.DurationMS() {
		return cue.StartMS
	}

	overflow := durationMS - cue.DurationMS()
	marginBefore := cue.StartMS - window.StartMS
	marginAfter := window.EndMS - cue.EndMS

	if marginBefore >= marginAfter {
		shift := max(0, min(overflow, marginBefore))
		return cue.StartMS - shift
	}
	return cue.StartMS
}
