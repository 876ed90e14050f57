// Package timing derives the span of time each cue may occupy from the
// original timestamps of its neighbors.
package timing

import "srtvoice/internal/subtitle"

// TailSlackMS is the room granted after the final cue, which has no
// successor to bound it.
const TailSlackMS = 10000

type Window struct {
	StartMS int `json:"start_ms"`
	EndMS   int `json:"end_ms"`
}

func (w Window) SizeMS() int {
	return w.EndMS - w.StartMS
}

// Compute uses TailSlackMS for a cue without successor.
func Compute(cue subtitle.Cue, prevEndMS, nextStartMS *int, marginMS int) Window {
	return compute(cue, prevEndMS, nextStartMS, marginMS, TailSlackMS)
}

// ComputeAll returns one window per cue, in input order. Neighbors are taken
// from the slice as given, so callers pass cues in timeline order.
func ComputeAll(cues []subtitle.Cue, marginMS, tailSlackMS int) []Window {
	windows := make([]Window, len(cues))
	for i, cue := range cues {
		var prevEnd, nextStart *int
		if i > 0 {
			end := cues[i-1].EndMS
			prevEnd = &end
		}
		if i < len(cues)-1 {
			start := cues[i+1].StartMS
			nextStart = &start
		}
		windows[i] = compute(cue, prevEnd, nextStart, marginMS, tailSlackMS)
	}
	return windows
}

func compute(cue subtitle.Cue, prevEndMS, nextStartMS *int, marginMS, tailSlackMS int) Window {
	start := 0
	if prevEndMS != nil {
		start = max(0, *prevEndMS+marginMS)
	}
	start = min(start, cue.StartMS)

	end := cue.EndMS + tailSlackMS
	if nextStartMS != nil {
		end = *nextStartMS - marginMS
	}

	return Window{StartMS: start, EndMS: end}
}
